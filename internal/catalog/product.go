package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Product is a single catalog entry. Products are immutable once loaded.
type Product struct {
	ID          string   `json:"product_id" yaml:"product_id" validate:"required"`
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	Description string   `json:"description" yaml:"description"`
	Ingredients string   `json:"top_ingredients" yaml:"top_ingredients"`
	Tags        string   `json:"tags" yaml:"tags"`
	Price       *float64 `json:"price (USD)" yaml:"price (USD)"`
	Margin      *float64 `json:"margin (%)" yaml:"margin (%)"`
}

// TagList splits the pipe-delimited tag field into trimmed, non-empty tags.
func (p Product) TagList() []string {
	return splitList(p.Tags, "|")
}

// IngredientList splits the ingredient field on semicolons, pipes and commas.
func (p Product) IngredientList() []string {
	return SplitIngredients(p.Ingredients)
}

// SplitIngredients splits an ingredient list on ';', '|' or ','.
func SplitIngredients(s string) []string {
	return splitList(s, ";|,")
}

func splitList(s, seps string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Source provides the current product list.
type Source interface {
	Products(ctx context.Context) ([]Product, error)
}

// SkinType is the user's self-reported skin type. The zero value means unknown.
type SkinType string

const (
	SkinDry         SkinType = "dry"
	SkinOily        SkinType = "oily"
	SkinCombination SkinType = "combination"
	SkinSensitive   SkinType = "sensitive"
)

// ParseSkinType maps s onto the fixed vocabulary. Unrecognized values yield "".
func ParseSkinType(s string) SkinType {
	switch t := SkinType(strings.ToLower(strings.TrimSpace(s))); t {
	case SkinDry, SkinOily, SkinCombination, SkinSensitive:
		return t
	}
	return ""
}

// Concern is a skin concern tag.
type Concern string

const (
	ConcernAcne      Concern = "acne"
	ConcernAntiAging Concern = "anti-aging"
	ConcernDarkSpots Concern = "dark_spots"
	ConcernHydration Concern = "hydration"
)

// ParseConcern maps s onto the fixed vocabulary. Unrecognized values yield "".
func ParseConcern(s string) Concern {
	switch c := Concern(strings.ToLower(strings.TrimSpace(s))); c {
	case ConcernAcne, ConcernAntiAging, ConcernDarkSpots, ConcernHydration:
		return c
	}
	return ""
}

// Preferences is the session-scoped set of facts inferred about the user.
type Preferences struct {
	SkinType SkinType  `json:"skin_type,omitempty"`
	Concerns []Concern `json:"concerns,omitempty"`
}

// IsZero reports whether nothing is known about the user yet.
func (p Preferences) IsZero() bool {
	return p.SkinType == "" && len(p.Concerns) == 0
}

// HasConcern reports whether c is already in the concern set.
func (p Preferences) HasConcern(c Concern) bool {
	for _, have := range p.Concerns {
		if have == c {
			return true
		}
	}
	return false
}

// WithConcerns returns a copy of p whose concern set is the union of the
// existing concerns and cs. Unknown or duplicate concerns are dropped.
func (p Preferences) WithConcerns(cs ...Concern) Preferences {
	out := p.Clone()
	for _, c := range cs {
		if ParseConcern(string(c)) == "" || out.HasConcern(c) {
			continue
		}
		out.Concerns = append(out.Concerns, c)
	}
	return out
}

// Clone returns a deep copy of p.
func (p Preferences) Clone() Preferences {
	cp := p
	if p.Concerns != nil {
		cp.Concerns = make([]Concern, len(p.Concerns))
		copy(cp.Concerns, p.Concerns)
	}
	return cp
}

// Summary renders the preferences for prompt injection, e.g.
// "Skin type: dry | Concerns: acne, hydration". Empty when nothing is known.
func (p Preferences) Summary() string {
	var parts []string
	if p.SkinType != "" {
		parts = append(parts, fmt.Sprintf("Skin type: %s", p.SkinType))
	}
	if len(p.Concerns) > 0 {
		names := make([]string, len(p.Concerns))
		for i, c := range p.Concerns {
			names[i] = string(c)
		}
		parts = append(parts, fmt.Sprintf("Concerns: %s", strings.Join(names, ", ")))
	}
	return strings.Join(parts, " | ")
}
