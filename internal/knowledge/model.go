package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Hospital is the static descriptive record surfaced verbatim in prompts and responses.
type Hospital struct {
	Name       string `json:"name"`
	Location   string `json:"location"`
	Philosophy string `json:"philosophy"`
}

// DocumentInfo carries the summary counts published with the knowledge document.
type DocumentInfo struct {
	TotalDoctors     int `json:"total_doctors"`
	TotalSpecialties int `json:"total_specialties"`
}

// Fee is a consultation fee. The source document mixes numbers and currency strings,
// so both decode into the same textual form.
type Fee string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (f *Fee) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Fee(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("knowledge: consultation fee: %w", err)
	}
	*f = Fee(n.String())
	return nil
}

// Doctor is a single doctor profile.
type Doctor struct {
	DoctorID        string   `json:"doctor_id"`
	Name            string   `json:"name"`
	Specialty       string   `json:"specialty"`
	ExperienceYears int      `json:"experience_years"`
	ConsultationFee Fee      `json:"consultation_fee"`
	Credentials     []string `json:"credentials,omitempty"`
	Languages       []string `json:"languages"`
	KeyExpertise    []string `json:"key_expertise"`
	WhyRecommend    string   `json:"why_recommend"`
}

// QAPair is a canned question and answer attached to a condition.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Condition groups patient phrasing and the doctors recommended for it.
type Condition struct {
	Name               string   `json:"condition"`
	Specialty          string   `json:"-"`
	PatientPhrases     []string `json:"patient_phrases"`
	RecommendedDoctors []string `json:"recommended_doctors"`
	QAPairs            []QAPair `json:"qa_pairs,omitempty"`
}

// Specialty is a department summary with its common conditions.
type Specialty struct {
	Name               string      `json:"specialty"`
	Description        string      `json:"description"`
	DoctorsInSpecialty int         `json:"doctors_in_specialty"`
	Conditions         []Condition `json:"common_conditions"`
}

// Document mirrors the knowledge base file layout.
type Document struct {
	Hospital     Hospital      `json:"hospital"`
	DocumentInfo *DocumentInfo `json:"document_info,omitempty"`
	Doctors      []Doctor      `json:"doctor_profiles"`
	Specialties  []Specialty   `json:"specialties_and_conditions"`
}
