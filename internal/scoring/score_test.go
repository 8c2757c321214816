package scoring

import (
	"math"
	"testing"

	"github.com/kalambet/skinshop/internal/catalog"
)

func ptr(f float64) *float64 { return &f }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

var hydraCream = catalog.Product{
	ID:          "P001",
	Name:        "Hydra Cream",
	Category:    "Moisturizer",
	Description: "Rich cream for dry skin",
	Ingredients: "Hyaluronic Acid; Ceramides",
	Tags:        "hydrating|moisturizing",
	Margin:      ptr(40),
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		query string
		prefs catalog.Preferences
		want  float64
	}{
		{"tag and description", "hydrating cream", catalog.Preferences{}, 3 + 1.5 + 0.4},
		{"dry skin bonus", "hydrating cream", catalog.Preferences{SkinType: catalog.SkinDry}, 3 + 1.5 + 1 + 0.4},
		{"concern bonus", "hydrating cream", catalog.Preferences{Concerns: []catalog.Concern{catalog.ConcernHydration, catalog.ConcernAcne}}, 3 + 1.5 + 0.8 + 0.4},
		{"combination has no bonus", "hydrating cream", catalog.Preferences{SkinType: catalog.SkinCombination}, 3 + 1.5 + 0.4},
		{"every field", "moisturiz", catalog.Preferences{}, 3 + 2 + 0.4},
		{"ingredients", "ceramides", catalog.Preferences{}, 1 + 0.4},
		{"no match", "sunscreen", catalog.Preferences{}, 0.4},
		{"empty query", "", catalog.Preferences{}, 0.4},
		{"duplicate words count once", "hydrating hydrating", catalog.Preferences{}, 3 + 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(hydraCream, tt.query, tt.prefs); !approx(got, tt.want) {
				t.Errorf("Score(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestScore_MultipleTagsEachCount(t *testing.T) {
	p := catalog.Product{Tags: "acne|acne-safe|oil-free"}
	if got := Score(p, "acne", catalog.Preferences{}); !approx(got, 6) {
		t.Errorf("Score = %v, want 6", got)
	}
}

func TestScore_Margin(t *testing.T) {
	tests := []struct {
		name   string
		margin *float64
		want   float64
	}{
		{"nil", nil, 0},
		{"capped", ptr(80), 0.5},
		{"small", ptr(12), 0.12},
		{"nan", ptr(math.NaN()), 0},
		{"inf", ptr(math.Inf(1)), 0},
		{"negative", ptr(-30), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := catalog.Product{Margin: tt.margin}
			if got := Score(p, "", catalog.Preferences{}); !approx(got, tt.want) {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore_AddingMatchingTagRaisesScore(t *testing.T) {
	queries := []string{"hydrating", "gentle cleanser", "retinol serum", "spf"}
	prefs := catalog.Preferences{SkinType: catalog.SkinSensitive, Concerns: []catalog.Concern{catalog.ConcernAntiAging}}
	for _, q := range queries {
		base := hydraCream
		more := hydraCream
		more.Tags += "|" + q
		before, after := Score(base, q, prefs), Score(more, q, prefs)
		if after-before < TagWeight-1e-9 {
			t.Errorf("query %q: score went %v -> %v, want an increase of at least %v", q, before, after, TagWeight)
		}
	}
}

func TestExplain(t *testing.T) {
	b := Explain(hydraCream, "hydrating cream", catalog.Preferences{SkinType: catalog.SkinDry})
	want := Breakdown{Tags: 3, Description: 1.5, SkinType: 1, Margin: 0.4}
	if !approx(b.Tags, want.Tags) || b.Category != 0 || !approx(b.Description, want.Description) ||
		b.Ingredients != 0 || !approx(b.SkinType, want.SkinType) || b.Concerns != 0 || !approx(b.Margin, want.Margin) {
		t.Errorf("Explain() = %+v, want %+v", b, want)
	}
	if !approx(b.Total(), 5.9) {
		t.Errorf("Total() = %v, want 5.9", b.Total())
	}
}
