package retrieval

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
)

// FormattedDoctor is the voice-friendly view of a recommendation.
type FormattedDoctor struct {
	Name           string        `json:"name"`
	Specialty      string        `json:"specialty"`
	Experience     string        `json:"experience"`
	Fee            knowledge.Fee `json:"fee"`
	Languages      string        `json:"languages"`
	Expertise      string        `json:"expertise"`
	Recommendation string        `json:"recommendation"`
	MatchReason    string        `json:"matchReason"`
}

// FormatDoctorRecommendation flattens a recommendation for speech.
func FormatDoctorRecommendation(r Recommendation) FormattedDoctor {
	d := r.Doctor
	expertise := d.KeyExpertise
	if len(expertise) > 3 {
		expertise = expertise[:3]
	}
	return FormattedDoctor{
		Name:           d.Name,
		Specialty:      d.Specialty,
		Experience:     fmt.Sprintf("%d years", d.ExperienceYears),
		Fee:            d.ConsultationFee,
		Languages:      strings.Join(d.Languages, ", "),
		Expertise:      strings.Join(expertise, ", "),
		Recommendation: d.WhyRecommend,
		MatchReason:    r.MatchReason,
	}
}

// QA is a related question/answer pair and its similarity to the query.
type QA struct {
	Question  string  `json:"question"`
	Answer    string  `json:"answer"`
	Relevance float64 `json:"relevance"`
}

// ConditionMatch is one entry of a condition context lookup.
type ConditionMatch struct {
	Condition          string   `json:"condition"`
	Specialty          string   `json:"specialty"`
	RecommendedDoctors []string `json:"recommended_doctors"`
	Similarity         float64  `json:"similarity"`
}

// Guidance tells the caller how to recover from a gated query.
type Guidance struct {
	Type     string   `json:"type"`
	Action   string   `json:"action"`
	Examples []string `json:"examples,omitempty"`
}

// Error discriminators for gated responses.
const (
	ErrorUnavailableService = "unavailable_service"
	ErrorVagueQuery         = "vague_query"
)

// Response is what the voice bot layer receives for a query. Success and
// gated responses serialize to different shapes.
type Response struct {
	Success      bool                `json:"success"`
	Query        string              `json:"query"`
	Doctors      []FormattedDoctor   `json:"doctors,omitempty"`
	RelatedQA    []QA                `json:"relatedQA,omitempty"`
	HospitalInfo *knowledge.Hospital `json:"hospitalInfo,omitempty"`

	Error    string      `json:"error,omitempty"`
	Reason   VagueReason `json:"reason,omitempty"`
	Service  string      `json:"service,omitempty"`
	Message  string      `json:"message,omitempty"`
	Guidance *Guidance   `json:"guidance,omitempty"`
}

func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Success {
		doctors := r.Doctors
		if doctors == nil {
			doctors = []FormattedDoctor{}
		}
		qa := r.RelatedQA
		if qa == nil {
			qa = []QA{}
		}
		return json.Marshal(struct {
			Success      bool                `json:"success"`
			Query        string              `json:"query"`
			Doctors      []FormattedDoctor   `json:"doctors"`
			RelatedQA    []QA                `json:"relatedQA"`
			HospitalInfo *knowledge.Hospital `json:"hospitalInfo"`
		}{true, r.Query, doctors, qa, r.HospitalInfo})
	}
	return json.Marshal(struct {
		Success  bool        `json:"success"`
		Error    string      `json:"error"`
		Message  string      `json:"message"`
		Query    string      `json:"query"`
		Guidance *Guidance   `json:"guidance,omitempty"`
		Service  string      `json:"service,omitempty"`
		Reason   VagueReason `json:"reason,omitempty"`
	}{false, r.Error, r.Message, r.Query, r.Guidance, r.Service, r.Reason})
}

func unavailableResponse(query string, check ServiceCheck) *Response {
	return &Response{
		Success: false,
		Error:   ErrorUnavailableService,
		Service: check.Service,
		Message: check.Message,
		Query:   query,
		Guidance: &Guidance{
			Type:   "unavailable_service",
			Action: "describe_symptoms",
		},
	}
}

func vagueResponse(query string, check VagueCheck) *Response {
	return &Response{
		Success: false,
		Error:   ErrorVagueQuery,
		Reason:  check.Reason,
		Message: check.Message,
		Query:   query,
		Guidance: &Guidance{
			Type:     "vague_query",
			Action:   "clarify_symptoms",
			Examples: append([]string(nil), GuidanceExamples...),
		},
	}
}

// finite maps NaN and infinities to zero; encoding/json rejects them.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (r Recommendation) MarshalJSON() ([]byte, error) {
	type alias Recommendation
	a := alias(r)
	a.RelevanceScore = finite(a.RelevanceScore)
	return json.Marshal(a)
}

func (c ScoredChunk) MarshalJSON() ([]byte, error) {
	type alias ScoredChunk
	a := alias(c)
	a.Chunk.Embedding = nil
	a.Similarity = finite(a.Similarity)
	a.FinalScore = finite(a.FinalScore)
	return json.Marshal(a)
}
