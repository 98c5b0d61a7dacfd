package answer

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/lorekeeper/internal/domain/passage"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/hit"
)

const passageSeparator = "\n\n---\n\n"

// FormatContext renders hits as the context block of the prompt.
// Monster and category passages already carry their own header.
func FormatContext(hits []hit.Hit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, formatPassage(h))
	}
	return strings.Join(parts, passageSeparator)
}

func formatPassage(h hit.Hit) string {
	md := h.Metadata()
	name := md.Name()
	if name == "" {
		name = "Unknown"
	}
	kind := md.Type()
	if kind == "" {
		kind = "text"
	}

	switch {
	case kind == "monster" || kind == "category":
		return h.Text()
	case kind == "spell":
		return fmt.Sprintf("## %s\n%s\n\n%s", name, md.String(passage.KeySpellSchool), h.Text())
	case kind == "monster_entry" || strings.HasPrefix(kind, "table"):
		return fmt.Sprintf("## %s\n\n%s", name, h.Text())
	default:
		return fmt.Sprintf("### %s\n\n%s", name, h.Text())
	}
}

// UserPrompt combines the formatted context with the question.
func UserPrompt(question, context string) string {
	return fmt.Sprintf("Context from the rulebooks:\n\n%s\n\n---\nQuestion: %s\n\nAnswer based on the context above:",
		context, question)
}
