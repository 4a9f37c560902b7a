package voice

import (
	"regexp"
	"strings"

	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
)

const (
	nameSimilarityThreshold = 0.75
	maxNameMatches          = 3
)

var titlePrefix = regexp.MustCompile(`(?i)^(dr\.?|doctor)\s*`)

// levenshtein returns the edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1]
				continue
			}
			cur[j] = 1 + min(prev[j-1], prev[j], cur[j-1])
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// similar reports whether a and b are more than 75% alike by edit distance.
func similar(a, b string) bool {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return false
	}
	return 1-float64(levenshtein(a, b))/float64(longest) > nameSimilarityThreshold
}

// MatchDoctorsByName finds doctors whose name contains the query or is close
// to it, so "Dr. Puranic" still finds "Harish Puranik". All matches are
// returned in directory order.
func MatchDoctorsByName(doctors []knowledge.Doctor, query string) []knowledge.Doctor {
	clean := strings.TrimSpace(titlePrefix.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), ""))
	if clean == "" {
		return nil
	}
	var out []knowledge.Doctor
	for _, d := range doctors {
		full := strings.ToLower(d.Name)
		parts := strings.Fields(full)
		if len(parts) == 0 {
			continue
		}
		last := parts[len(parts)-1]
		first := strings.Join(parts[:len(parts)-1], " ")
		if strings.Contains(full, clean) || strings.Contains(last, clean) ||
			(first != "" && strings.Contains(first, clean)) ||
			similar(clean, last) || similar(clean, full) {
			out = append(out, d)
		}
	}
	return out
}
