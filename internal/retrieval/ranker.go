package retrieval

import (
	"sort"
	"strings"

	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
	"github.com/wolfman30/hospital-voicebot/internal/vectorindex"
)

// BoostRule adds Weight when the metadata field it reads appears in the query.
type BoostRule struct {
	Field  string
	Weight float64
	Value  func(knowledge.ChunkMetadata) string
}

// DefaultBoosts favors exact mentions of conditions, specialties and doctor names.
var DefaultBoosts = []BoostRule{
	{Field: "condition", Weight: 0.10, Value: func(m knowledge.ChunkMetadata) string { return m.Condition }},
	{Field: "specialty", Weight: 0.10, Value: func(m knowledge.ChunkMetadata) string { return m.Specialty }},
	{Field: "name", Weight: 0.15, Value: func(m knowledge.ChunkMetadata) string { return m.Name }},
}

// ScoredChunk is a search result after keyword boosting.
type ScoredChunk struct {
	Chunk      knowledge.Chunk `json:"chunk"`
	Similarity float64         `json:"similarity"`
	Boost      float64         `json:"boost"`
	FinalScore float64         `json:"finalScore"`
}

// Rank boosts semantic results by keyword presence, re-sorts them by final
// score and keeps the top k. Boosts are never negative.
func Rank(query string, candidates []vectorindex.Result, k int, rules []BoostRule) []ScoredChunk {
	if rules == nil {
		rules = DefaultBoosts
	}
	lower := strings.ToLower(query)

	scored := make([]ScoredChunk, len(candidates))
	for i, c := range candidates {
		var boost float64
		for _, r := range rules {
			v := r.Value(c.Chunk.Metadata)
			if v != "" && r.Weight > 0 && strings.Contains(lower, strings.ToLower(v)) {
				boost += r.Weight
			}
		}
		scored[i] = ScoredChunk{
			Chunk:      c.Chunk,
			Similarity: c.Similarity,
			Boost:      boost,
			FinalScore: c.Similarity + boost,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return vectorindex.Outranks(scored[i].FinalScore, scored[j].FinalScore)
	})
	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
