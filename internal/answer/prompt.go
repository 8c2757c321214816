package answer

import (
	"fmt"
	"strings"

	"github.com/kalambet/skinshop/internal/catalog"
)

const answerInstruction = `You are a skincare expert and personal shopper. Answer the query using the context below.

Guidelines:
- Use a friendly, conversational tone.
- Refer back to the earlier conversation when it matters.
- Tailor advice to the user's known skin type and concerns.
- Mention products and ingredients from the sources by name.
- Keep it to two or three sentences.
- If the context does not cover the question, say so.`

// BuildPrompt renders the answer prompt. Context snippets are labelled
// "Source N:" starting at 1.
func BuildPrompt(query string, docs []string, summary string, prefs catalog.Preferences) string {
	var sb strings.Builder
	sb.WriteString(answerInstruction)
	fmt.Fprintf(&sb, "\n\nQuery: %q", query)
	if s := prefs.Summary(); s != "" {
		fmt.Fprintf(&sb, "\nUser profile: %s", s)
	}
	if summary != "" {
		fmt.Fprintf(&sb, "\nConversation so far: %s", summary)
	}
	sb.WriteString("\n\nContext:")
	for i, d := range docs {
		fmt.Fprintf(&sb, "\nSource %d: %s", i+1, d)
	}
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}
