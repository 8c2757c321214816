// Package ranking orders catalog products for a query, asking the model first
// and falling back to keyword scoring.
package ranking

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/kalambet/skinshop/internal/catalog"
	"github.com/kalambet/skinshop/internal/model"
	"github.com/kalambet/skinshop/internal/scoring"
)

// MaxResults is the most products Rank returns.
const MaxResults = 5

// Source records which path produced a ranking.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Result is a ranked product.
type Result struct {
	Product catalog.Product `json:"product"`
	Score   float64         `json:"score"`
	Source  Source          `json:"source"`
}

// Products extracts the products from results, keeping order.
func Products(results []Result) []catalog.Product {
	out := make([]catalog.Product, len(results))
	for i, r := range results {
		out[i] = r.Product
	}
	return out
}

// Ranker orders products for a query.
type Ranker struct {
	caller *model.Caller
}

// NewRanker creates a Ranker. With a nil caller every ranking uses Fallback.
func NewRanker(caller *model.Caller) *Ranker {
	return &Ranker{caller: caller}
}

// Rank returns at most MaxResults products, each one drawn from products.
// A model ranking is used only when it names at least MaxResults known ids;
// otherwise the whole ranking comes from Fallback.
func (r *Ranker) Rank(ctx context.Context, products []catalog.Product, query string, docs []string, prefs catalog.Preferences) []Result {
	if len(products) == 0 {
		return nil
	}

	res := r.caller.Call(ctx, BuildPrompt(query, products, docs, prefs))
	if res.OK() {
		byID := make(map[string]catalog.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		ids := ParseIDs(res.Text, byID)
		if len(ids) >= MaxResults {
			out := make([]Result, 0, MaxResults)
			for _, id := range ids[:MaxResults] {
				p := byID[id]
				out = append(out, Result{Product: p, Score: scoring.Score(p, query, prefs), Source: SourceModel})
			}
			return out
		}
		res = res.Malform("model ranking named too few known products")
		slog.Warn("ranking fallback", "matched", len(ids), "want", MaxResults)
	} else if res.Outcome != model.Unavailable {
		slog.Warn("ranking fallback", "outcome", res.Outcome, "error", res.Err)
	}

	out := Fallback(products, query, prefs)
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out
}

// Fallback ranks by keyword score, highest first, ties in catalog order.
// When nothing scores above zero the first MaxResults catalog entries are
// returned unfiltered; otherwise every positively scored product is returned.
func Fallback(products []catalog.Product, query string, prefs catalog.Preferences) []Result {
	scored := make([]Result, len(products))
	positive := 0
	for i, p := range products {
		s := scoring.Score(p, query, prefs)
		if s > 0 {
			positive++
		}
		scored[i] = Result{Product: p, Score: s, Source: SourceFallback}
	}

	if positive == 0 {
		n := min(len(scored), MaxResults)
		slog.Debug("all products scored zero, using catalog order", "returned", n)
		return scored[:n]
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	out := scored[:positive]
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		for _, r := range out[:min(len(out), MaxResults)] {
			slog.Debug("fallback score", "product", r.Product.ID, "score", r.Score,
				"breakdown", scoring.Explain(r.Product, query, prefs))
		}
	}
	return out
}

// ParseIDs extracts product ids from a model reply in the order given.
// Commas count as whitespace; list markers, quotes and code fences are
// ignored; unknown ids are dropped and repeats kept once.
func ParseIDs(text string, known map[string]catalog.Product) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		for _, tok := range strings.Fields(strings.ReplaceAll(line, ",", " ")) {
			id := cleanToken(tok)
			if id == "" || seen[id] {
				continue
			}
			if _, ok := known[id]; !ok {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// cleanToken drops ordinal markers such as "1." or "2)" and trims quotes,
// bullets and punctuation from the ends of tok.
func cleanToken(tok string) string {
	if n := len(tok); n >= 2 && (tok[n-1] == '.' || tok[n-1] == ')') && isDigits(tok[:n-1]) {
		return ""
	}
	return strings.TrimFunc(tok, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
