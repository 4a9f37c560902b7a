package retrieval

import (
	"fmt"
	"sort"

	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
	"github.com/wolfman30/hospital-voicebot/internal/vectorindex"
)

const generalMatchReason = "General match based on specialty and expertise"

// DoctorDirectory resolves doctor references found in chunk metadata.
type DoctorDirectory interface {
	DoctorByName(name string) (knowledge.Doctor, bool)
	DoctorByID(id string) (knowledge.Doctor, bool)
}

// Recommendation is one deduplicated doctor suggestion.
type Recommendation struct {
	Doctor           knowledge.Doctor `json:"doctor"`
	RelevanceScore   float64          `json:"relevanceScore"`
	MatchedCondition string           `json:"matchedCondition,omitempty"`
	MatchedSpecialty string           `json:"matchedSpecialty,omitempty"`
	MatchReason      string           `json:"matchReason"`
}

// SearchResults is the aggregator output for one query.
type SearchResults struct {
	Query           string           `json:"query"`
	TotalResults    int              `json:"totalResults"`
	Recommendations []Recommendation `json:"recommendations"`
	RawResults      []ScoredChunk    `json:"rawResults"`
}

// Aggregate turns ranked chunks into at most k recommendations, one per doctor.
// Phrase and condition chunks nominate their recommended doctors; the first
// nomination of a doctor wins. With no nominations it falls back to the
// doctor-profile chunks in rank order.
func Aggregate(dir DoctorDirectory, ranked []ScoredChunk, k int) []Recommendation {
	recs := []Recommendation{}
	seen := make(map[string]bool)

	for _, c := range ranked {
		if c.Chunk.Type != knowledge.ChunkPatientPhrase && c.Chunk.Type != knowledge.ChunkCondition {
			continue
		}
		for _, name := range c.Chunk.Metadata.RecommendedDoctors {
			d, ok := dir.DoctorByName(name)
			if !ok || seen[d.DoctorID] {
				continue
			}
			seen[d.DoctorID] = true
			reason := fmt.Sprintf("Relevant for: %s", c.Chunk.Metadata.Condition)
			if c.Chunk.Type == knowledge.ChunkPatientPhrase {
				reason = fmt.Sprintf("Matches symptom: \"%s\"", c.Chunk.Metadata.OriginalPhrase)
			}
			recs = append(recs, Recommendation{
				Doctor:           d,
				RelevanceScore:   c.FinalScore,
				MatchedCondition: c.Chunk.Metadata.Condition,
				MatchedSpecialty: c.Chunk.Metadata.Specialty,
				MatchReason:      reason,
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return vectorindex.Outranks(recs[i].RelevanceScore, recs[j].RelevanceScore)
	})
	if len(recs) > k {
		recs = recs[:k]
	}
	if len(recs) > 0 {
		return recs
	}

	for _, c := range ranked {
		if len(recs) == k {
			break
		}
		if c.Chunk.Type != knowledge.ChunkDoctorProfile {
			continue
		}
		d, ok := dir.DoctorByID(c.Chunk.Metadata.DoctorID)
		if !ok || seen[d.DoctorID] {
			continue
		}
		seen[d.DoctorID] = true
		recs = append(recs, Recommendation{
			Doctor:           d,
			RelevanceScore:   c.FinalScore,
			MatchedSpecialty: c.Chunk.Metadata.Specialty,
			MatchReason:      generalMatchReason,
		})
	}
	return recs
}

// searchResults assembles the aggregator output, keeping the top three ranked
// chunks for context.
func searchResults(query string, ranked []ScoredChunk, recs []Recommendation) *SearchResults {
	raw := ranked
	if len(raw) > 3 {
		raw = raw[:3]
	}
	return &SearchResults{
		Query:           query,
		TotalResults:    len(recs),
		Recommendations: recs,
		RawResults:      raw,
	}
}

var _ DoctorDirectory = (*knowledge.Base)(nil)
