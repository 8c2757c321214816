// Package answer writes the informational reply shown above the product list.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/skinshop/internal/catalog"
	"github.com/kalambet/skinshop/internal/model"
)

const closing = " Check out the recommendations below!"

// Generator produces answers, asking the model first and assembling a
// template answer from the context when the model cannot help.
type Generator struct {
	caller *model.Caller
}

// NewGenerator creates a Generator. caller may be nil.
func NewGenerator(caller *model.Caller) *Generator {
	return &Generator{caller: caller}
}

// NoContext is the reply used when retrieval found nothing.
func NoContext(query string) string {
	return fmt.Sprintf("I couldn't find specific information related to \"%s\" in my knowledge base.", query)
}

// Answer replies to query from docs. The model is never called when docs is
// empty.
func (g *Generator) Answer(ctx context.Context, query string, docs []string, summary string, prefs catalog.Preferences) string {
	if len(docs) == 0 {
		return NoContext(query)
	}

	res := g.caller.Call(ctx, BuildPrompt(query, docs, summary, prefs))
	if res.OK() {
		return res.Text
	}
	if res.Outcome != model.Unavailable {
		slog.Warn("answer fallback", "outcome", res.Outcome, "error", res.Err)
	}
	return Fallback(query, docs, prefs)
}

// Fallback assembles an answer from the Category: and Ingredients: lines
// found in docs.
func Fallback(query string, docs []string, prefs catalog.Preferences) string {
	if len(docs) == 0 {
		return NoContext(query)
	}
	facts := extractFacts(docs)
	q := strings.ToLower(query)

	var parts []string
	if prefs.SkinType != "" {
		parts = append(parts, fmt.Sprintf("For your %s skin", prefs.SkinType))
	}
	parts = append(parts, headline(q, prefs.SkinType))

	if len(facts.ingredients) > 0 {
		top := facts.ingredients[:min(3, len(facts.ingredients))]
		parts = append(parts, fmt.Sprintf("These products feature ingredients like %s.", strings.Join(top, ", ")))
	}
	if len(facts.categories) == 1 {
		parts = append(parts, fmt.Sprintf("All products are from the %s category.", facts.categories[0]))
	}
	return strings.Join(parts, " ") + closing
}

func headline(q string, skin catalog.SkinType) string {
	switch {
	case containsAny(q, "moisturizer", "cream", "hydrat"):
		switch {
		case strings.Contains(q, "dry") || skin == catalog.SkinDry:
			return "I found some excellent hydrating options that should help with dryness."
		case strings.Contains(q, "oily") || skin == catalog.SkinOily:
			return "I found lightweight, oil-free moisturizers that won't clog pores."
		}
		return "I found some great moisturizing products that should help."
	case containsAny(q, "serum", "treatment"):
		return "I found some targeted serums that could address your skincare concerns."
	case containsAny(q, "spf", "sunscreen", "sun protection"):
		return "I found some excellent sun protection products to keep your skin safe."
	case containsAny(q, "acne", "breakout", "blemish"):
		return "I found some products designed to help with acne and blemish control."
	case containsAny(q, "sensitive", "gentle"):
		return "I found some gentle, sensitive skin-friendly options."
	}
	return "Based on your query, I found some relevant products that might interest you."
}

type facts struct {
	categories  []string
	ingredients []string
}

// extractFacts collects distinct values in the order they first appear.
func extractFacts(docs []string) facts {
	var f facts
	seen := map[string]bool{}
	add := func(dst *[]string, kind, v string) {
		v = strings.TrimSpace(v)
		if v == "" || seen[kind+v] {
			return
		}
		seen[kind+v] = true
		*dst = append(*dst, v)
	}

	for _, doc := range docs {
		for _, line := range strings.Split(doc, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "Category:"):
				add(&f.categories, "c", strings.TrimPrefix(line, "Category:"))
			case strings.HasPrefix(line, "Ingredients:"):
				for _, ing := range catalog.SplitIngredients(strings.TrimPrefix(line, "Ingredients:")) {
					add(&f.ingredients, "i", ing)
				}
			}
		}
	}
	return f
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
