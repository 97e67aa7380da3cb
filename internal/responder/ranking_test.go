package responder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/dispensary/internal/search"
)

func TestRank_BoostsRelevantResults(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	results := []search.Result{
		{Title: "Garden supplies sale", Snippet: "tomato cages and hoses", Link: "https://1.example"},
		{Title: "Houseplant care", Snippet: "general tips", Link: "https://2.example"},
		{Title: "Yellow leaves on cannabis", Snippet: "nitrogen deficiency guide 2026", Link: "https://3.example"},
		{Title: "Overwatering", Snippet: "root rot", Link: "https://4.example"},
	}

	ranked := Rank("yellow leaves", results, now)
	require.Len(t, ranked, MaxRankedResults)

	assert.Equal(t, "https://1.example", ranked[0].Link)
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-9)

	// third by position, lifted above the second result:
	// 1/3 + 0.2 (two query words) + 0.2 (cannabis) + 0.1 (year)
	assert.Equal(t, "https://3.example", ranked[1].Link)
	assert.InDelta(t, 1.0/3+0.5, ranked[1].Score, 1e-9)
	assert.Equal(t, "https://2.example", ranked[2].Link)
}

func TestRank_EmptyInput(t *testing.T) {
	assert.Empty(t, Rank("anything", nil, time.Now()))
}
