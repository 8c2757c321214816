package intent

import (
	"fmt"
	"strings"
)

const classifyInstruction = `You are classifying shopping queries for a skincare store.

Answer with exactly one word:
- QUESTION if the user wants information (what an ingredient does, how a product works, whether something is safe).
- RECOMMENDATION if the user wants product suggestions for their skin or a concern.

Do not add punctuation or explanation.`

// BuildPrompt renders the classification prompt for query.
func BuildPrompt(query string) string {
	var sb strings.Builder
	sb.WriteString(classifyInstruction)
	fmt.Fprintf(&sb, "\n\nQuery: %s\nLabel:", strings.TrimSpace(query))
	return sb.String()
}
