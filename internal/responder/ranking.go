package responder

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/suPer8Hu/dispensary/internal/search"
)

const MaxRankedResults = 3

var cannabisTerms = []string{"cannabis", "marijuana", "hemp", "weed", "thc", "cbd", "strain", "cultivar"}

type ScoredResult struct {
	search.Result
	Score float64 `json:"score"`
}

// Rank scores vendor results and keeps the best MaxRankedResults.
// Vendor order counts for something but is not trusted as relevance.
func Rank(query string, results []search.Result, now time.Time) []ScoredResult {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	years := []string{strconv.Itoa(now.Year()), strconv.Itoa(now.Year() - 1)}

	scored := make([]ScoredResult, 0, len(results))
	for i, r := range results {
		text := strings.ToLower(r.Title + " " + r.Snippet)
		score := 1.0 / float64(i+1)
		for _, w := range words {
			if strings.Contains(text, w) {
				score += 0.1
			}
		}
		for _, term := range cannabisTerms {
			if strings.Contains(text, term) {
				score += 0.2
				break
			}
		}
		for _, y := range years {
			if strings.Contains(text, y) {
				score += 0.1
				break
			}
		}
		scored = append(scored, ScoredResult{Result: r, Score: score})
	}

	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })
	if len(scored) > MaxRankedResults {
		scored = scored[:MaxRankedResults]
	}
	return scored
}
