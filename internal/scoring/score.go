// Package scoring computes the keyword relevance of a product to a query.
package scoring

import (
	"math"
	"strings"

	"github.com/kalambet/skinshop/internal/catalog"
)

// Field weights.
const (
	TagWeight         = 3.0
	CategoryWeight    = 2.0
	DescriptionWeight = 1.5
	IngredientWeight  = 1.0
	SkinTypeBonus     = 1.0
	ConcernBonus      = 0.8
	MarginFactor      = 0.01
	MarginCap         = 0.5
)

var skinTypeTags = map[catalog.SkinType][]string{
	catalog.SkinDry:       {"hydrating", "moisturizing", "nourishing"},
	catalog.SkinOily:      {"oil-free", "lightweight", "mattifying"},
	catalog.SkinSensitive: {"gentle", "fragrance-free", "hypoallergenic"},
}

var concernTags = map[catalog.Concern][]string{
	catalog.ConcernAcne:      {"acne", "blemish", "salicylic"},
	catalog.ConcernAntiAging: {"anti-aging", "retinol", "peptide"},
	catalog.ConcernDarkSpots: {"brightening", "vitamin c", "niacinamide"},
	catalog.ConcernHydration: {"hydrating", "hyaluronic", "moisturizing"},
}

// Breakdown lists the contribution of each signal to a product's score.
type Breakdown struct {
	Tags        float64 `json:"tags"`
	Category    float64 `json:"category"`
	Description float64 `json:"description"`
	Ingredients float64 `json:"ingredients"`
	SkinType    float64 `json:"skin_type"`
	Concerns    float64 `json:"concerns"`
	Margin      float64 `json:"margin"`
}

// Total is the sum of all contributions.
func (b Breakdown) Total() float64 {
	return b.Tags + b.Category + b.Description + b.Ingredients + b.SkinType + b.Concerns + b.Margin
}

// Score returns the relevance of p to query under prefs. It is pure and
// never negative.
func Score(p catalog.Product, query string, prefs catalog.Preferences) float64 {
	return Explain(p, query, prefs).Total()
}

// Explain computes the per-signal Breakdown behind Score.
func Explain(p catalog.Product, query string, prefs catalog.Preferences) Breakdown {
	var b Breakdown
	words := tokens(query)

	for _, tag := range strings.Split(strings.ToLower(p.Tags), "|") {
		if containsAny(tag, words) {
			b.Tags += TagWeight
		}
	}
	if containsAny(strings.ToLower(p.Category), words) {
		b.Category = CategoryWeight
	}
	if containsAny(strings.ToLower(p.Description), words) {
		b.Description = DescriptionWeight
	}
	if containsAny(strings.ToLower(p.Ingredients), words) {
		b.Ingredients = IngredientWeight
	}

	tags := strings.ToLower(p.Tags)
	if containsAny(tags, skinTypeTags[prefs.SkinType]) {
		b.SkinType = SkinTypeBonus
	}
	for _, c := range prefs.Concerns {
		if containsAny(tags, concernTags[c]) {
			b.Concerns += ConcernBonus
		}
	}

	if p.Margin != nil && !math.IsNaN(*p.Margin) && !math.IsInf(*p.Margin, 0) {
		b.Margin = math.Max(0, math.Min(*p.Margin*MarginFactor, MarginCap))
	}
	return b
}

// tokens returns the distinct lower-case whitespace-delimited words of q.
func tokens(q string) []string {
	fields := strings.Fields(strings.ToLower(q))
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// containsAny reports whether s contains any of subs as a substring.
func containsAny(s string, subs []string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
