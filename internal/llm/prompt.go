package llm

import (
	"fmt"
	"strings"
)

const AnswerPrompt = `Here is the raw content from a document. Please answer the following question based ONLY on this content. If the content does not contain the answer, say so briefly instead of guessing.`

// BuildChunkPrompt creates the full prompt for answering a question about one
// chunk, including document title and section breadcrumb context.
func BuildChunkPrompt(docTitle string, breadcrumb []string, chunkText, question string) string {
	var sb strings.Builder
	sb.WriteString(AnswerPrompt)
	sb.WriteString("\n\n---\n")
	if docTitle != "" {
		sb.WriteString(fmt.Sprintf("Document: %q\n", docTitle))
	}
	if len(breadcrumb) > 0 {
		sb.WriteString("Section: ")
		sb.WriteString(strings.Join(breadcrumb, " > "))
		sb.WriteString("\n")
	}
	sb.WriteString("---\n")
	sb.WriteString(chunkText)
	sb.WriteString("\n---\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}
