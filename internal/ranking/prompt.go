package ranking

import (
	"fmt"
	"strings"

	"github.com/kalambet/skinshop/internal/catalog"
)

// BuildPrompt renders the ranking request: the query, known preferences,
// retrieved documents and the candidate list.
func BuildPrompt(query string, products []catalog.Product, docs []string, prefs catalog.Preferences) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %q\n", query)
	if s := prefs.Summary(); s != "" {
		fmt.Fprintf(&sb, "User preferences: %s\n", s)
	}

	sb.WriteString("\nContext:\n")
	for _, d := range docs {
		fmt.Fprintf(&sb, "<doc>%s</doc>\n", d)
	}

	fmt.Fprintf(&sb, "\nRank the products below by relevance to the query. Consider tag matches, category, "+
		"description and ingredient matches, and the user preferences.\n"+
		"Return only the product_id of the top %d products, one per line, most relevant first.\n\nProducts:\n", MaxResults)
	for _, p := range products {
		fmt.Fprintf(&sb, "- %s | %s | %s | %s\n", p.ID, p.Name, p.Category, p.Tags)
	}
	return sb.String()
}
