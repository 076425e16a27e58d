// Package report writes the side-by-side comparison of answers from the raw
// PDF text and from the converted Markdown.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docqa/internal/qa"
	"github.com/dgallion1/docqa/internal/tokens"
)

const FileName = "report.md"

// Comparison is everything that goes into one report.
type Comparison struct {
	Question    string
	Model       string
	PDFSource   string
	MDSource    string
	PDFAnswer   *qa.AggregateAnswer
	MDAnswer    *qa.AggregateAnswer
	Tokens      *tokens.Comparison // Optional.
	GeneratedAt time.Time
}

// Render formats c as Markdown.
func Render(c Comparison) string {
	var sb strings.Builder
	sb.WriteString("# Document QA comparison\n\n")
	fmt.Fprintf(&sb, "- **Question:** %s\n", c.Question)
	if c.Model != "" {
		fmt.Fprintf(&sb, "- **Model:** %s\n", c.Model)
	}
	if !c.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Generated:** %s\n", c.GeneratedAt.UTC().Format(time.RFC3339))
	}

	writeAnswer(&sb, "Answer from PDF text", c.PDFSource, c.PDFAnswer)
	writeAnswer(&sb, "Answer from Markdown", c.MDSource, c.MDAnswer)

	if c.Tokens != nil {
		t := c.Tokens
		sb.WriteString("\n## Token usage\n\n")
		sb.WriteString("| Source | Tokens |\n|---|---|\n")
		fmt.Fprintf(&sb, "| Raw PDF | %d (%s) |\n", t.RawTokens, tokens.FormatNumber(t.RawTokens))
		fmt.Fprintf(&sb, "| Markdown | %d (%s) |\n", t.MarkdownTokens, tokens.FormatNumber(t.MarkdownTokens))
		if !t.Exact {
			sb.WriteString("\nCounts are estimated.\n")
		}
		fmt.Fprintf(&sb, "\n### PDF excerpt\n\n```\n%s\n```\n", t.RawExcerpt)
		fmt.Fprintf(&sb, "\n### Markdown excerpt\n\n```\n%s\n```\n", t.MarkdownExcerpt)
	}
	return sb.String()
}

func writeAnswer(sb *strings.Builder, heading, source string, a *qa.AggregateAnswer) {
	fmt.Fprintf(sb, "\n## %s\n\n", heading)
	if source != "" {
		fmt.Fprintf(sb, "_Source: %s_\n\n", source)
	}
	switch {
	case a == nil:
		sb.WriteString("Not run.\n")
	case a.Empty():
		sb.WriteString("The document had no text.\n")
	default:
		sb.WriteString(a.String())
		sb.WriteString("\n")
	}
}

// Write renders c into dir/report.md, creating dir if needed, and returns
// the file path.
func Write(dir string, c Comparison) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(Render(c)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
