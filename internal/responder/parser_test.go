package responder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_ConfidenceThreshold(t *testing.T) {
	low := Parse("The lower leaves show a nitrogen deficiency.\nConfidence: 85%")
	assert.Equal(t, 85, low.ConfidencePercent)
	assert.True(t, low.NeedsSearch)
	assert.Equal(t, DefaultSearchQuery, low.SearchQuery)
	assert.Equal(t, "The lower leaves show a nitrogen deficiency.", low.Text)

	high := Parse("The lower leaves show a nitrogen deficiency.\nConfidence: 95%")
	assert.Equal(t, 95, high.ConfidencePercent)
	assert.False(t, high.NeedsSearch)
	assert.Empty(t, high.SearchQuery)
}

func TestParse_HedgeWordsForceSearch(t *testing.T) {
	p := Parse("It is hard to tell from this photo. Confidence: 96%")
	assert.True(t, p.Hedged)
	assert.True(t, p.NeedsSearch)
}

func TestParse_DefaultsWhenConfidenceMissing(t *testing.T) {
	p := Parse("Looks like light burn.")
	assert.Equal(t, DefaultConfidence, p.ConfidencePercent)
	assert.True(t, p.NeedsSearch)

	p = Parse("Confidence: 250%")
	assert.Equal(t, 100, p.ConfidencePercent)
}

func TestParse_Sections(t *testing.T) {
	raw := "RESPONSE: Your plant has root rot caused by overwatering.\n" +
		"CONFIDENCE: 80%\n" +
		"RECOMMENDATIONS:\n" +
		"- Let the soil dry out\n" +
		"2. Repot into a fabric pot\n" +
		"\nYou could search online for \"cannabis root rot treatment\" to learn more."

	p := Parse(raw)
	assert.Equal(t, "Your plant has root rot caused by overwatering.", p.Text)
	assert.Equal(t, 80, p.ConfidencePercent)
	assert.Equal(t, []string{"Let the soil dry out", "Repot into a fabric pot"}, p.Recommendations)
	assert.True(t, p.NeedsSearch)
	assert.Equal(t, "cannabis root rot treatment", p.SearchQuery)
}
