package retrieval

import "regexp"

// romanizedWords maps romanized Hindi and Kannada words to English.
var romanizedWords = map[string]string{
	"mera":   "my",
	"mere":   "my",
	"ghutna": "knee",
	"ghutne": "knee",
	"dard":   "pain",
	"bahut":  "very",
	"hai":    "is",
	"me":     "in",
	"pet":    "stomach",
	"sar":    "head",
	"peeth":  "back",
	"kamar":  "back",
	"pair":   "leg",
	"hath":   "hand",
	"kandha": "shoulder",

	"nanna":  "my",
	"nanage": "to me",
	"kai":    "hand",
	"kaal":   "leg",
	"melu":   "swelling",
	"aagide": "is swollen",
	"novu":   "pain",
	"tale":   "head",
	"hotte":  "stomach",
}

type scriptPattern struct {
	re      *regexp.Regexp
	english string
}

// scriptPatterns apply only to queries containing non-ASCII text.
var scriptPatterns = []scriptPattern{
	{regexp.MustCompile(`(?i)घुटन|ghutna|ghutne`), "knee"},
	{regexp.MustCompile(`(?i)दर्द|dard|novu`), "pain"},
	{regexp.MustCompile(`(?i)हाथ|हात|हत्थ|kai`), "hand"},
	{regexp.MustCompile(`(?i)पैर|पाय|kaal`), "leg"},
	{regexp.MustCompile(`(?i)सूजन|मेलु|melu|aagide`), "swelling swollen"},
	{regexp.MustCompile(`(?i)सिर|sir|tale`), "head"},
	{regexp.MustCompile(`(?i)पेट|hotte`), "stomach"},
}

// UnavailableService is a specialty the hospital does not offer.
type UnavailableService struct {
	Service  string
	Keywords []string
}

// UnavailableServices is checked in order; the first keyword hit wins.
var UnavailableServices = []UnavailableService{
	{Service: "Dental/Dentistry", Keywords: []string{"dental", "dentist", "tooth", "teeth", "cavity", "orthodont"}},
	{Service: "Ophthalmology", Keywords: []string{"eye", "vision", "opthalm", "glasses", "contact lens"}},
	{Service: "Dermatology", Keywords: []string{"dermatology", "skin", "acne", "rash", "dermatologist"}},
	{Service: "Physiotherapy", Keywords: []string{"physical therapy", "physiotherapy", "rehabilitation", "physio"}},
	{Service: "Radiology/Imaging", Keywords: []string{"radiology", "x-ray", "ct scan", "mri", "ultrasound scan"}},
}

// medicalKeywords decide whether a query describes a symptom at all.
var medicalKeywords = []string{
	"pain", "hurt", "ache", "swollen", "fever", "sick", "illness", "disease",
	"problem", "issue", "concern", "symptom", "feel", "feeling", "doctor",
	"appointment", "checkup", "health", "medical", "emergency", "acute",
	"chronic", "severe", "mild", "bleeding", "infection", "injury",
}

// commonWords is the vocabulary for the gibberish check: the medical keywords
// plus everyday English and body-part words.
var commonWords = append(append([]string{}, medicalKeywords...),
	"my", "i", "have", "need", "want", "get", "book", "make", "help", "can",
	"the", "a", "an", "is", "are", "am", "me", "and", "or", "but", "with",
	"knee", "leg", "hand", "arm", "head", "stomach", "chest", "back", "neck",
	"shoulder", "foot", "ankle", "hip", "joint", "bone", "muscle", "skin",
	"eye", "ear", "nose", "throat", "mouth", "teeth", "heart", "lung",
	"pregnancy", "pregnant", "child", "baby", "diabetes", "blood", "pressure",
	"sugar", "kidney", "liver", "urine", "stool", "vomit", "nausea", "dizzy",
)

var commonWordSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(commonWords))
	for _, w := range commonWords {
		set[w] = struct{}{}
	}
	return set
}()

// appointmentOnlyPatterns catch booking requests that carry no symptom.
var appointmentOnlyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(can i|i want|i need|how to|when can).*(book|make|schedule|get).*(appointment|doctor)`),
	regexp.MustCompile(`(?i)^(appointment|doctor|booking).*(tomorrow|today|next week)`),
	regexp.MustCompile(`(?i)book.*appointment.*don'?t (know|remember)`),
}

// Guidance messages.
const (
	msgGibberish        = `I'm having trouble understanding your request. Could you describe your symptoms or health concern more clearly? For example: "I have knee pain", "I need pregnancy care", or "My child has a fever".`
	msgTooShort         = `Could you please describe your symptoms or health concern in more detail? For example, tell me where you feel pain or what specific issue you're experiencing.`
	msgUnclearSymptoms  = `I'm having trouble understanding your health concern. Could you describe your symptoms more clearly? For example: "I have knee pain", "I need pregnancy care", or "My child has a fever".`
	msgNoSymptoms       = `I'd be happy to help you book an appointment! First, could you tell me what health issue or symptoms you're experiencing? This will help me recommend the right specialist for you.`
	msgUnavailableFmt   = `I apologize, but we currently don't have %s specialists at %s. However, I can help you find doctors for other medical concerns. What symptoms or health issues are you experiencing?`
	defaultHospitalName = "Even Hospital"
)

// GuidanceExamples are offered with every vague-query response.
var GuidanceExamples = []string{
	"I have knee pain when walking",
	"I'm pregnant and need prenatal care",
	"My child has high fever",
	"I have chest pain and shortness of breath",
}
