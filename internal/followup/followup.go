// Package followup suggests one clarifying question after a recommendation.
package followup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/skinshop/internal/catalog"
	"github.com/kalambet/skinshop/internal/model"
)

// Generic is returned when the model is configured but its call fails.
const Generic = "What specific skin concerns are you targeting?"

const maxContextDocs = 2

var skinQuestions = map[catalog.SkinType]string{
	catalog.SkinDry:         "Are you looking for hydrating serums or rich moisturizers for your dry skin?",
	catalog.SkinOily:        "Would you prefer lightweight, oil-free formulas for your oily skin?",
	catalog.SkinCombination: "Do you want products that balance your oily T-zone and drier cheeks?",
	catalog.SkinSensitive:   "Are you looking for fragrance-free, gentle formulations?",
}

var keywordQuestions = []struct {
	keywords []string
	question string
}{
	{[]string{"serum", "serums"}, "What specific skin concerns are you targeting with serums - hydration, brightening, or anti-aging?"},
	{[]string{"moisturizer", "cream", "lotion"}, "What's your skin type? (dry, oily, combination, or sensitive)"},
	{[]string{"acne", "pimple", "breakout"}, "How would you describe your acne - occasional breakouts or persistent issues?"},
	{[]string{"anti-aging", "wrinkle", "fine line"}, "What's your primary aging concern - fine lines, firmness, or dark spots?"},
}

const defaultQuestion = "What's your main skin concern right now?"

// Generator produces follow-up questions.
type Generator struct {
	caller *model.Caller
}

// NewGenerator creates a Generator. caller may be nil.
func NewGenerator(caller *model.Caller) *Generator {
	return &Generator{caller: caller}
}

// FollowUp returns one question. Without a configured model the rule-based
// Fallback answers; a failed model call yields Generic.
func (g *Generator) FollowUp(ctx context.Context, query string, docs []string, prefs catalog.Preferences, summary string) string {
	res := g.caller.Call(ctx, BuildPrompt(query, docs, prefs, summary))
	switch res.Outcome {
	case model.OK:
		if q := stripQuotes(res.Text); q != "" {
			return q
		}
		slog.Warn("follow-up model returned only quotes")
		return Generic
	case model.Unavailable:
		return Fallback(query, prefs)
	default:
		slog.Warn("follow-up fallback", "outcome", res.Outcome, "error", res.Err)
		return Generic
	}
}

// Fallback picks a fixed question from the known skin type, then from query
// keywords.
func Fallback(query string, prefs catalog.Preferences) string {
	if q, ok := skinQuestions[prefs.SkinType]; ok {
		return q
	}
	lower := strings.ToLower(query)
	for _, kq := range keywordQuestions {
		for _, kw := range kq.keywords {
			if strings.Contains(lower, kw) {
				return kq.question
			}
		}
	}
	return defaultQuestion
}

// BuildPrompt renders the follow-up prompt with at most two context docs.
func BuildPrompt(query string, docs []string, prefs catalog.Preferences, summary string) string {
	var sb strings.Builder
	sb.WriteString("Write ONE short follow-up question that helps narrow down the shopper's skincare needs.\n")
	fmt.Fprintf(&sb, "\nQuery: %q", query)
	if s := prefs.Summary(); s != "" {
		fmt.Fprintf(&sb, "\nAlready known (do not ask again): %s", s)
	}
	if len(docs) > maxContextDocs {
		docs = docs[:maxContextDocs]
	}
	if len(docs) > 0 {
		sb.WriteString("\nContext:")
		for _, d := range docs {
			fmt.Fprintf(&sb, "\n- %s", d)
		}
	}
	if summary != "" {
		fmt.Fprintf(&sb, "\nPrevious conversation: %s", summary)
	}
	sb.WriteString("\n\nRules:\n- Under 15 words.\n- Ask about concerns, routine or texture preferences, not budget or brands.\n- Reply with the question only.\n\nQuestion:")
	return sb.String()
}

var quotePairs = [][2]string{{`"`, `"`}, {`'`, `'`}, {"“", "”"}, {"‘", "’"}}

// stripQuotes trims s and removes one enclosing pair of quotes.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range quotePairs {
		if len(s) >= len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return strings.TrimSpace(s[len(p[0]) : len(s)-len(p[1])])
		}
	}
	return s
}
