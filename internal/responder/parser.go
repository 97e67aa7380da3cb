package responder

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultConfidence = 70
	// Replies below this confidence trigger a web search.
	SearchConfidenceThreshold = 90
	DefaultSearchQuery        = "cannabis plant care"
)

var hedgeWords = []string{
	"unsure",
	"not sure",
	"uncertain",
	"need more",
	"more information",
	"difficult to determine",
	"hard to tell",
	"cannot determine",
}

var (
	confidenceRe     = regexp.MustCompile(`(?i)confidence(?:\s+(?:level|score))?\s*[:=\-]?\s*\**\s*(\d{1,3})\s*%`)
	searchQueryRe    = regexp.MustCompile(`(?i)\bsearch(?:ing)?\b[^.\n]{0,40}?\bfor\s+["'“]?([^"'”.?!\n]{3,100})`)
	sectionRe        = regexp.MustCompile(`(?im)^\s*\**\s*(response|diagnosis|confidence|recommendations?)\s*\**\s*:`)
	bulletRe         = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
	multiBlankLineRe = regexp.MustCompile(`\n{3,}`)
)

// Parsed is the structured view of a free-text AI reply.
type Parsed struct {
	Text              string   `json:"text"`
	ConfidencePercent int      `json:"confidencePercent"`
	NeedsSearch       bool     `json:"needsSearch"`
	SearchQuery       string   `json:"searchQuery,omitempty"`
	Recommendations   []string `json:"recommendations,omitempty"`
	Hedged            bool     `json:"hedged,omitempty"`
}

// Parse extracts confidence, recommendations and the search decision from raw.
// The vendor output is untrusted; anything missing falls back to defaults.
func Parse(raw string) Parsed {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	p := Parsed{ConfidencePercent: parseConfidence(raw)}

	sections := splitSections(raw)
	p.Text = sections["response"]
	if p.Text == "" {
		p.Text = sections["diagnosis"]
	}
	if p.Text == "" {
		p.Text = stripConfidenceLines(raw)
	}
	p.Text = strings.TrimSpace(multiBlankLineRe.ReplaceAllString(p.Text, "\n\n"))
	p.Recommendations = parseBullets(sections["recommendations"])

	lower := strings.ToLower(raw)
	for _, w := range hedgeWords {
		if strings.Contains(lower, w) {
			p.Hedged = true
			break
		}
	}
	p.NeedsSearch = p.ConfidencePercent < SearchConfidenceThreshold || p.Hedged
	if p.NeedsSearch {
		p.SearchQuery = extractSearchQuery(raw)
	}
	return p
}

func parseConfidence(raw string) int {
	m := confidenceRe.FindStringSubmatch(raw)
	if m == nil {
		return DefaultConfidence
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultConfidence
	}
	if n > 100 {
		return 100
	}
	return n
}

// splitSections keys each "NAME:" block by its lowercased name.
func splitSections(raw string) map[string]string {
	out := map[string]string{}
	locs := sectionRe.FindAllStringSubmatchIndex(raw, -1)
	for i, loc := range locs {
		name := strings.ToLower(raw[loc[2]:loc[3]])
		if name == "recommendation" {
			name = "recommendations"
		}
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if _, seen := out[name]; !seen {
			out[name] = strings.TrimSpace(raw[loc[1]:end])
		}
	}
	return out
}

func stripConfidenceLines(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, ln := range lines {
		if confidenceRe.MatchString(ln) && len(strings.TrimSpace(ln)) < 40 {
			continue
		}
		kept = append(kept, ln)
	}
	return strings.Join(kept, "\n")
}

func parseBullets(block string) []string {
	if block == "" {
		return nil
	}
	var out []string
	for _, ln := range strings.Split(block, "\n") {
		if m := bulletRe.FindStringSubmatch(ln); m != nil {
			if item := strings.TrimSpace(m[1]); item != "" {
				out = append(out, item)
			}
		}
	}
	if len(out) == 0 {
		if s := strings.TrimSpace(block); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func extractSearchQuery(raw string) string {
	m := searchQueryRe.FindStringSubmatch(raw)
	if m == nil {
		return DefaultSearchQuery
	}
	q := strings.TrimSpace(m[1])
	if len(q) < 3 {
		return DefaultSearchQuery
	}
	return q
}
