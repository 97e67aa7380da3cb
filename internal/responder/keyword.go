package responder

import "strings"

// Rule maps a keyword set to a canned answer. Rules are tried in order and
// the first rule with any keyword present in the message wins.
type Rule struct {
	Name     string
	Keywords []string
	Response string
}

const FallbackRule = "fallback"

var DefaultRules = []Rule{
	{
		Name:     "indica",
		Keywords: []string{"indica", "relaxing", "relax", "sleep"},
		Response: "For relaxation and better sleep, our indica-dominant cuttings are a great fit. " +
			"Northern Lights and Granddaddy Purple are customer favourites: compact plants, " +
			"short flowering times and a calming finish.",
	},
	{
		Name:     "sativa",
		Keywords: []string{"sativa", "energy", "energetic", "uplifting"},
		Response: "Looking for something uplifting? Our sativa-dominant seedlings such as Sour Diesel " +
			"and Jack Herer grow tall and reward patience with bright, energetic effects.",
	},
	{
		Name:     "hybrid",
		Keywords: []string{"hybrid", "balanced", "balance"},
		Response: "Hybrids give you the best of both worlds. Blue Dream and Girl Scout Cookies are " +
			"balanced, forgiving growers that suit most setups.",
	},
	{
		Name:     "beginner",
		Keywords: []string{"beginner", "new", "first time", "easy"},
		Response: "Welcome! If you're new to growing, start with an autoflowering or a resilient hybrid " +
			"cutting. They tolerate small mistakes and finish quickly. Ask us about our starter bundles.",
	},
	{
		Name:     "growing",
		Keywords: []string{"growing", "grow", "tips", "care", "water"},
		Response: "A few quick tips: keep cuttings in high humidity for the first week, avoid overwatering " +
			"(let the top inch of soil dry out), and give seedlings 18 hours of light per day during veg.",
	},
	{
		Name:     "price",
		Keywords: []string{"price", "cost", "how much", "cheap"},
		Response: "Cuttings start at $15 and seedlings at $10. Bundles of five or more get 10% off. " +
			"Check each product page for current pricing.",
	},
	{
		Name:     "delivery",
		Keywords: []string{"delivery", "deliver", "pickup", "pick up", "shipping"},
		Response: "We offer local delivery within 25 miles and free in-store pickup. " +
			"Orders placed before 2pm are usually ready the same day.",
	},
}

const fallbackResponse = "Thanks for reaching out! I can help with strain recommendations, growing tips, " +
	"pricing, and delivery or pickup. What would you like to know?"

type KeywordResponder struct {
	rules []Rule
}

// NewKeywordResponder uses DefaultRules when rules is empty.
func NewKeywordResponder(rules []Rule) *KeywordResponder {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &KeywordResponder{rules: rules}
}

// Match returns the first matching rule name and its response.
func (k *KeywordResponder) Match(text string) (string, string) {
	lower := strings.ToLower(text)
	for _, r := range k.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(lower, kw) {
				return r.Name, r.Response
			}
		}
	}
	return FallbackRule, fallbackResponse
}

func (k *KeywordResponder) Respond(text string) string {
	_, resp := k.Match(text)
	return resp
}
