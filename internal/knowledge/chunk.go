package knowledge

import (
	"fmt"
	"strings"
)

// ChunkType tags what a knowledge chunk was derived from.
type ChunkType string

const (
	ChunkDoctorProfile ChunkType = "doctor_profile"
	ChunkCondition     ChunkType = "condition"
	ChunkPatientPhrase ChunkType = "patient_phrase"
	ChunkQAPair        ChunkType = "qa_pair"
	ChunkSpecialty     ChunkType = "specialty"
)

// ChunkMetadata holds the typed fields a chunk may carry. Which fields are set
// depends on the chunk type.
type ChunkMetadata struct {
	DoctorID           string   `json:"doctor_id,omitempty"`
	Name               string   `json:"name,omitempty"`
	Specialty          string   `json:"specialty,omitempty"`
	ExperienceYears    int      `json:"experience_years,omitempty"`
	ConsultationFee    Fee      `json:"consultation_fee,omitempty"`
	Languages          []string `json:"languages,omitempty"`
	Condition          string   `json:"condition,omitempty"`
	RecommendedDoctors []string `json:"recommended_doctors,omitempty"`
	PatientPhrases     []string `json:"patient_phrases,omitempty"`
	OriginalPhrase     string   `json:"original_phrase,omitempty"`
	Question           string   `json:"question,omitempty"`
	Answer             string   `json:"answer,omitempty"`
	Description        string   `json:"description,omitempty"`
	DoctorsCount       int      `json:"doctors_count,omitempty"`
}

// Chunk is a unit of embeddable text.
type Chunk struct {
	ID        string        `json:"id"`
	Type      ChunkType     `json:"type"`
	Text      string        `json:"text"`
	Metadata  ChunkMetadata `json:"metadata"`
	Embedding []float32     `json:"embedding,omitempty"`
}

// ExtractChunks produces every embeddable chunk in a fixed order: doctor profiles,
// conditions each followed by their patient phrases, Q&A pairs, then specialties.
// IDs come from one counter shared across the run.
func (b *Base) ExtractChunks() []Chunk {
	var chunks []Chunk
	next := 0
	id := func(prefix string) string {
		s := fmt.Sprintf("%s_%d", prefix, next)
		next++
		return s
	}

	for _, d := range b.doc.Doctors {
		text := strings.Join([]string{
			"Doctor: " + d.Name,
			"Specialty: " + d.Specialty,
			fmt.Sprintf("Experience: %d years", d.ExperienceYears),
			"Credentials: " + strings.Join(d.Credentials, ", "),
			"Languages: " + strings.Join(d.Languages, ", "),
			"Consultation Fee: " + string(d.ConsultationFee),
			"Key Expertise: " + strings.Join(d.KeyExpertise, ", "),
			"Why Recommend: " + d.WhyRecommend,
		}, "\n")
		chunks = append(chunks, Chunk{
			ID:   id("doctor"),
			Type: ChunkDoctorProfile,
			Text: text,
			Metadata: ChunkMetadata{
				DoctorID:        d.DoctorID,
				Name:            d.Name,
				Specialty:       d.Specialty,
				ExperienceYears: d.ExperienceYears,
				ConsultationFee: d.ConsultationFee,
				Languages:       d.Languages,
			},
		})
	}

	for _, s := range b.doc.Specialties {
		for _, c := range s.Conditions {
			text := strings.Join([]string{
				"Condition: " + c.Name,
				"Specialty: " + s.Name,
				"Patient Symptoms: " + strings.Join(c.PatientPhrases, ", "),
				"Recommended Doctors: " + strings.Join(c.RecommendedDoctors, ", "),
				"Specialty Description: " + s.Description,
			}, "\n")
			chunks = append(chunks, Chunk{
				ID:   id("condition"),
				Type: ChunkCondition,
				Text: text,
				Metadata: ChunkMetadata{
					Condition:          c.Name,
					Specialty:          s.Name,
					RecommendedDoctors: c.RecommendedDoctors,
					PatientPhrases:     c.PatientPhrases,
				},
			})

			for _, phrase := range c.PatientPhrases {
				chunks = append(chunks, Chunk{
					ID:   id("phrase"),
					Type: ChunkPatientPhrase,
					Text: fmt.Sprintf("Patient says: \"%s\". This indicates: %s. Specialty: %s. Recommended doctors: %s",
						phrase, c.Name, s.Name, strings.Join(c.RecommendedDoctors, ", ")),
					Metadata: ChunkMetadata{
						OriginalPhrase:     phrase,
						Condition:          c.Name,
						Specialty:          s.Name,
						RecommendedDoctors: c.RecommendedDoctors,
					},
				})
			}
		}
	}

	for _, s := range b.doc.Specialties {
		for _, c := range s.Conditions {
			for _, qa := range c.QAPairs {
				chunks = append(chunks, Chunk{
					ID:   id("qa"),
					Type: ChunkQAPair,
					Text: "Question: " + qa.Question + "\nAnswer: " + qa.Answer,
					Metadata: ChunkMetadata{
						Question:  qa.Question,
						Answer:    qa.Answer,
						Condition: c.Name,
						Specialty: s.Name,
					},
				})
			}
		}
	}

	for _, s := range b.doc.Specialties {
		names := make([]string, 0, len(s.Conditions))
		for _, c := range s.Conditions {
			names = append(names, c.Name)
		}
		text := strings.Join([]string{
			"Specialty: " + s.Name,
			"Description: " + s.Description,
			fmt.Sprintf("Number of Doctors: %d", s.DoctorsInSpecialty),
			"Common Conditions Treated: " + strings.Join(names, ", "),
		}, "\n")
		chunks = append(chunks, Chunk{
			ID:   id("specialty"),
			Type: ChunkSpecialty,
			Text: text,
			Metadata: ChunkMetadata{
				Specialty:    s.Name,
				Description:  s.Description,
				DoctorsCount: s.DoctorsInSpecialty,
			},
		})
	}

	return chunks
}
