package retrieval

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Translation is the outcome of rewriting a query into English.
type Translation struct {
	Original      string `json:"original"`
	Translated    string `json:"translated"`
	WasTranslated bool   `json:"wasTranslated"`
}

// Query returns the text downstream stages should search with.
func (t Translation) Query() string {
	if t.WasTranslated {
		return t.Translated
	}
	return t.Original
}

// TranslateFunc rewrites a raw patient query.
type TranslateFunc func(query string) Translation

// GibberishResult reports whether a query looks like random words.
type GibberishResult struct {
	IsGibberish bool
	Message     string
}

// GibberishFunc classifies a query as gibberish or not.
type GibberishFunc func(query string) GibberishResult

// TranslateQuery substitutes romanized Hindi/Kannada words word by word and,
// for queries with native script, appends the English equivalent of every
// recognized medical term.
func TranslateQuery(query string) Translation {
	words := strings.Fields(strings.ToLower(query))
	translated := strings.ToLower(query)
	wasTranslated := false

	substituted := make([]string, len(words))
	for i, w := range words {
		if en, ok := romanizedWords[w]; ok {
			substituted[i] = en
			wasTranslated = true
			continue
		}
		substituted[i] = w
	}
	if wasTranslated {
		translated = strings.Join(substituted, " ")
	}

	if hasNonASCII(query) {
		for _, p := range scriptPatterns {
			if p.re.MatchString(query) {
				translated += " " + p.english
				wasTranslated = true
			}
		}
	}

	return Translation{Original: query, Translated: translated, WasTranslated: wasTranslated}
}

func hasNonASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return true
		}
	}
	return false
}

// ServiceCheck is the unavailable-service gate result.
type ServiceCheck struct {
	IsUnavailable bool
	Service       string
	Message       string
}

// DetectUnavailableService flags queries about specialties the hospital lacks.
func DetectUnavailableService(query, hospitalName string) ServiceCheck {
	if hospitalName == "" {
		hospitalName = defaultHospitalName
	}
	lower := strings.ToLower(query)
	for _, svc := range UnavailableServices {
		for _, kw := range svc.Keywords {
			if strings.Contains(lower, kw) {
				return ServiceCheck{
					IsUnavailable: true,
					Service:       svc.Service,
					Message:       fmt.Sprintf(msgUnavailableFmt, svc.Service, hospitalName),
				}
			}
		}
	}
	return ServiceCheck{}
}

// DetectGibberish flags queries of three or more words where fewer than 30%
// of the words overlap the common vocabulary.
func DetectGibberish(query string) GibberishResult {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(words) < 3 {
		return GibberishResult{}
	}
	recognized := 0
	for _, w := range words {
		if recognizedWord(w) {
			recognized++
		}
	}
	if float64(recognized)/float64(len(words)) < 0.3 {
		return GibberishResult{IsGibberish: true, Message: msgGibberish}
	}
	return GibberishResult{}
}

func recognizedWord(w string) bool {
	if _, ok := commonWordSet[w]; ok {
		return true
	}
	for _, c := range commonWords {
		if strings.Contains(w, c) || strings.Contains(c, w) {
			return true
		}
	}
	return false
}

// VagueReason identifies which vagueness rule fired.
type VagueReason string

const (
	ReasonGibberish       VagueReason = "gibberish"
	ReasonTooShort        VagueReason = "too_short"
	ReasonUnclearSymptoms VagueReason = "unclear_symptoms"
	ReasonNoSymptoms      VagueReason = "no_symptoms"
)

// VagueCheck is the vagueness gate result. At most one reason is reported.
type VagueCheck struct {
	IsVague bool
	Reason  VagueReason
	Message string
}

// DetectVagueQuery runs the vagueness rules in order against the query and the
// recommendations its search produced.
func DetectVagueQuery(query string, recs []Recommendation, gibberish GibberishFunc) VagueCheck {
	if gibberish == nil {
		gibberish = DetectGibberish
	}
	lower := strings.ToLower(strings.TrimSpace(query))

	if g := gibberish(query); g.IsGibberish {
		msg := g.Message
		if msg == "" {
			msg = msgGibberish
		}
		return VagueCheck{IsVague: true, Reason: ReasonGibberish, Message: msg}
	}

	if utf8.RuneCountInString(lower) < 10 && len(recs) == 0 {
		return VagueCheck{IsVague: true, Reason: ReasonTooShort, Message: msgTooShort}
	}

	if len(recs) > 0 && !mentionsMedicalTerm(lower) {
		var sum float64
		for _, r := range recs {
			sum += r.RelevanceScore
		}
		if sum/float64(len(recs)) < 0.3 {
			return VagueCheck{IsVague: true, Reason: ReasonUnclearSymptoms, Message: msgUnclearSymptoms}
		}
	}

	for _, re := range appointmentOnlyPatterns {
		if re.MatchString(query) {
			return VagueCheck{IsVague: true, Reason: ReasonNoSymptoms, Message: msgNoSymptoms}
		}
	}

	return VagueCheck{}
}

// mentionsMedicalTerm looks only at words longer than two characters.
func mentionsMedicalTerm(lower string) bool {
	for _, w := range strings.Fields(lower) {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		for _, kw := range medicalKeywords {
			if strings.Contains(w, kw) {
				return true
			}
		}
	}
	return false
}
