package intent

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/kalambet/skinshop/internal/model"
)

// Label is the coarse purpose of a query.
type Label string

const (
	Question       Label = "QUESTION"
	Recommendation Label = "RECOMMENDATION"
)

// Recommendation keywords are checked before question keywords.
var recommendationKeywords = []string{
	"recommend", "suggest", "need something", "looking for", "find me",
	"i have", "my skin is", "for my", "help with my", "best for",
	"products for", "what should i use", "routine for",
}

var questionKeywords = []string{
	"what is", "what are", "how does", "how is", "why does", "why is",
	"tell me about", "explain", "define", "difference between",
	"can you explain", "help me understand", "is it true that",
	"good for", "suitable for", "safe for", "will this", "does this",
}

// Decision records how a label was reached.
type Decision struct {
	Label     Label
	UsedModel bool
	Outcome   model.Outcome
}

// Classifier labels queries, asking the model first and falling back to
// keyword rules. It never fails.
type Classifier struct {
	caller *model.Caller
}

// NewClassifier creates a Classifier. caller may be nil or have no
// generator, in which case only the keyword rules run.
func NewClassifier(caller *model.Caller) *Classifier {
	return &Classifier{caller: caller}
}

// Classify returns the label for query.
func (c *Classifier) Classify(ctx context.Context, query string) Label {
	return c.Decide(ctx, query).Label
}

// Decide is Classify with provenance.
func (c *Classifier) Decide(ctx context.Context, query string) Decision {
	res := c.caller.Call(ctx, BuildPrompt(query))
	if res.OK() {
		if label, ok := ParseLabel(res.Text); ok {
			slog.Debug("intent from model", "label", label)
			return Decision{Label: label, UsedModel: true, Outcome: model.OK}
		}
		res = res.Malform("unrecognized intent label")
	}

	switch res.Outcome {
	case model.Unavailable:
		slog.Debug("intent model unavailable, using keywords")
	default:
		slog.Warn("intent model fallback", "outcome", res.Outcome, "error", res.Err, "raw", res.Text)
	}
	return Decision{Label: ClassifyKeywords(query), Outcome: res.Outcome}
}

// ParseLabel normalizes raw model output and accepts only the two labels.
func ParseLabel(raw string) (Label, bool) {
	s := strings.TrimFunc(strings.TrimSpace(raw), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	switch l := Label(strings.ToUpper(s)); l {
	case Question, Recommendation:
		return l, true
	}
	return "", false
}

// ClassifyKeywords labels query with the keyword rules alone.
func ClassifyKeywords(query string) Label {
	q := strings.ToLower(query)
	for _, kw := range recommendationKeywords {
		if strings.Contains(q, kw) {
			slog.Debug("intent keyword match", "label", Recommendation, "keyword", kw)
			return Recommendation
		}
	}
	for _, kw := range questionKeywords {
		if strings.Contains(q, kw) {
			slog.Debug("intent keyword match", "label", Question, "keyword", kw)
			return Question
		}
	}
	if strings.Contains(q, "?") {
		slog.Debug("intent from question mark", "label", Question)
		return Question
	}
	slog.Debug("intent default", "label", Recommendation)
	return Recommendation
}
