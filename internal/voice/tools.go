package voice

// Function names the voice platforms may call.
const (
	FuncFindDoctor            = "find_doctor"
	FuncFindDoctorByName      = "find_doctor_by_name"
	FuncBookAppointment       = "book_appointment"
	FuncGetDoctorAvailability = "get_doctor_availability"
)

// FunctionDef describes a callable tool in the JSON-schema form both
// platforms accept.
type FunctionDef struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  ParamsSpec `json:"parameters"`
}

// ParamsSpec is an object schema with string properties.
type ParamsSpec struct {
	Type       string                `json:"type"`
	Properties map[string]ParamField `json:"properties"`
	Required   []string              `json:"required"`
}

type ParamField struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

func stringField(desc string) ParamField {
	return ParamField{Type: "string", Description: desc}
}

var (
	findDoctorDef = FunctionDef{
		Name:        FuncFindDoctor,
		Description: "Search for doctors based on patient symptoms or health condition. Call this immediately when patient mentions any symptoms.",
		Parameters: ParamsSpec{
			Type:       "object",
			Properties: map[string]ParamField{"symptoms": stringField("Patient's symptoms or health concern")},
			Required:   []string{"symptoms"},
		},
	}
	bookAppointmentDef = FunctionDef{
		Name:        FuncBookAppointment,
		Description: "Book an appointment with a selected doctor",
		Parameters: ParamsSpec{
			Type: "object",
			Properties: map[string]ParamField{
				"doctor_name":    stringField("Name of the doctor"),
				"patient_name":   stringField("Patient's full name"),
				"patient_phone":  stringField("Patient's phone number"),
				"preferred_date": stringField("Preferred appointment date (YYYY-MM-DD)"),
				"preferred_time": stringField("Preferred appointment time in 12-hour format (e.g., '9:00 AM', '2:30 PM'). If not specified, first available slot will be assigned."),
			},
			Required: []string{"doctor_name", "patient_name", "patient_phone", "preferred_date"},
		},
	}
	availabilityDef = FunctionDef{
		Name:        FuncGetDoctorAvailability,
		Description: "Check doctor's availability for appointments",
		Parameters: ParamsSpec{
			Type: "object",
			Properties: map[string]ParamField{
				"doctor_name": stringField("Name of the doctor"),
				"date":        stringField("Date to check availability (YYYY-MM-DD)"),
			},
			Required: []string{"doctor_name"},
		},
	}
	findDoctorByNameDef = FunctionDef{
		Name:        FuncFindDoctorByName,
		Description: "Search for a specific doctor by their name when patient requests a particular doctor. Use this when patient says 'I want Dr. [Name]' or 'Book with Doctor [Name]' or mentions a specific doctor name.",
		Parameters: ParamsSpec{
			Type:       "object",
			Properties: map[string]ParamField{"doctor_name": stringField("Full or partial doctor name (e.g., 'Puranik', 'Harish', 'Dr. Puranik')")},
			Required:   []string{"doctor_name"},
		},
	}
)

// Functions returns every tool the dispatcher understands.
func Functions() []FunctionDef {
	return []FunctionDef{findDoctorDef, bookAppointmentDef, availabilityDef, findDoctorByNameDef}
}
