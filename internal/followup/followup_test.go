package followup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/skinshop/internal/catalog"
	"github.com/kalambet/skinshop/internal/model"
)

type mockGenerator struct {
	response string
	err      error
	prompt   string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func caller(g model.Generator) *model.Caller {
	return model.NewCaller(g, model.WithBackoff(time.Millisecond))
}

func TestFollowUp_ModelQuotesStripped(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{`"Morning or evening routine?"`, "Morning or evening routine?"},
		{"'Rich or light texture?'", "Rich or light texture?"},
		{"“Do you wear makeup daily?”", "Do you wear makeup daily?"},
		{"  Any fragrance sensitivity?  ", "Any fragrance sensitivity?"},
		{`"Unbalanced?`, `"Unbalanced?`},
	}
	for _, tt := range tests {
		g := NewGenerator(caller(&mockGenerator{response: tt.reply}))
		if got := g.FollowUp(context.Background(), "recommend a serum", nil, catalog.Preferences{}, ""); got != tt.want {
			t.Errorf("FollowUp(reply %q) = %q, want %q", tt.reply, got, tt.want)
		}
	}
}

func TestFollowUp_ModelFailureIsGeneric(t *testing.T) {
	for _, gen := range []*mockGenerator{{err: errors.New("timeout")}, {response: ""}, {response: `""`}} {
		g := NewGenerator(caller(gen))
		got := g.FollowUp(context.Background(), "recommend a serum", nil, catalog.Preferences{SkinType: catalog.SkinDry}, "")
		if got != Generic {
			t.Errorf("FollowUp() = %q, want %q", got, Generic)
		}
	}
}

func TestFollowUp_NoModelUsesRules(t *testing.T) {
	got := NewGenerator(nil).FollowUp(context.Background(), "I need a moisturizer", nil, catalog.Preferences{SkinType: catalog.SkinDry}, "")
	if want := "Are you looking for hydrating serums or rich moisturizers for your dry skin?"; got != want {
		t.Errorf("FollowUp() = %q, want %q", got, want)
	}
}

func TestFollowUp_PromptLimitsContext(t *testing.T) {
	gen := &mockGenerator{response: "ok?"}
	prefs := catalog.Preferences{SkinType: catalog.SkinOily}
	NewGenerator(caller(gen)).FollowUp(context.Background(), "serum", []string{"doc A", "doc B", "doc C"}, prefs, "User asked: hi")

	for _, want := range []string{"doc A", "doc B", "Skin type: oily", "User asked: hi", "15 words"} {
		if !strings.Contains(gen.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(gen.prompt, "doc C") {
		t.Error("prompt should include at most two context docs")
	}
}

func TestFallback(t *testing.T) {
	tests := []struct {
		query string
		skin  catalog.SkinType
		want  string
	}{
		{"anything", catalog.SkinDry, "Are you looking for hydrating serums or rich moisturizers for your dry skin?"},
		{"anything", catalog.SkinOily, "Would you prefer lightweight, oil-free formulas for your oily skin?"},
		{"anything", catalog.SkinCombination, "Do you want products that balance your oily T-zone and drier cheeks?"},
		{"serum for acne", catalog.SkinSensitive, "Are you looking for fragrance-free, gentle formulations?"},
		{"Best Serums", "", "What specific skin concerns are you targeting with serums - hydration, brightening, or anti-aging?"},
		{"body lotion", "", "What's your skin type? (dry, oily, combination, or sensitive)"},
		{"pimple patches", "", "How would you describe your acne - occasional breakouts or persistent issues?"},
		{"wrinkle care", "", "What's your primary aging concern - fine lines, firmness, or dark spots?"},
		{"something nice", "", "What's your main skin concern right now?"},
	}
	for _, tt := range tests {
		if got := Fallback(tt.query, catalog.Preferences{SkinType: tt.skin}); got != tt.want {
			t.Errorf("Fallback(%q, %q) = %q, want %q", tt.query, tt.skin, got, tt.want)
		}
	}
}
