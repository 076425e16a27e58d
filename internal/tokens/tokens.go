// Package tokens compares how many model tokens a raw PDF and its Markdown
// conversion cost.
package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding is the tokenizer used by the gpt-3.5/gpt-4 family.
const Encoding = "cl100k_base"

// Counter counts tokens with tiktoken, falling back to EstimateTokens when the
// encoding cannot be loaded (tiktoken fetches its ranks on first use).
type Counter struct {
	once    sync.Once
	enc     *tiktoken.Tiktoken
	loadErr error
}

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) load() {
	c.once.Do(func() {
		c.enc, c.loadErr = tiktoken.GetEncoding(Encoding)
	})
}

// Exact reports whether counts come from the real tokenizer.
func (c *Counter) Exact() bool {
	c.load()
	return c.loadErr == nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.load()
	if c.loadErr != nil {
		return EstimateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// EstimateTokens gives a rough token count of ~1.33 tokens per word.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// FormatNumber renders n as 1.2K, 3.4M or 5.6B.
func FormatNumber(n int) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprint(n)
	}
}

const (
	ExcerptStart  = 5000
	ExcerptLength = 300
)

// Comparison holds token counts for the raw and converted forms of a document.
type Comparison struct {
	RawTokens       int    `json:"raw_tokens"`
	MarkdownTokens  int    `json:"markdown_tokens"`
	RawExcerpt      string `json:"raw_excerpt"`
	MarkdownExcerpt string `json:"markdown_excerpt"`
	Exact           bool   `json:"exact"`
}

// Saved returns how many tokens the Markdown form saves (negative if it costs more).
func (c Comparison) Saved() int {
	return c.RawTokens - c.MarkdownTokens
}

// Compare counts tokens in the raw PDF bytes and in the Markdown text. The raw
// bytes are read as UTF-8 with invalid sequences dropped, the way a model sees
// a PDF that was pasted in without extraction.
func (c *Counter) Compare(rawPDF []byte, markdown string) Comparison {
	raw := strings.ToValidUTF8(string(rawPDF), "")
	return Comparison{
		RawTokens:       c.Count(raw),
		MarkdownTokens:  c.Count(markdown),
		RawExcerpt:      Excerpt(raw, ExcerptStart, ExcerptLength, "PDF"),
		MarkdownExcerpt: Excerpt(markdown, ExcerptStart, ExcerptLength, "Markdown"),
		Exact:           c.Exact(),
	}
}

// Excerpt returns length characters of text starting at start, or a marker
// naming label when text is too short.
func Excerpt(text string, start, length int, label string) string {
	runes := []rune(text)
	if len(runes) <= start {
		return fmt.Sprintf("[%s too short: only %d chars]", label, len(runes))
	}
	end := min(start+length, len(runes))
	return string(runes[start:end])
}

// String formats the comparison the way the CLI prints it.
func (c Comparison) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Token count before parsing: %d (%s)\n", c.RawTokens, FormatNumber(c.RawTokens))
	fmt.Fprintf(&sb, "Token count after PDF parsing: %d (%s)\n", c.MarkdownTokens, FormatNumber(c.MarkdownTokens))
	if !c.Exact {
		sb.WriteString("(estimated: tokenizer unavailable)\n")
	}
	fmt.Fprintf(&sb, "\nPDF content: '%s'\n", c.RawExcerpt)
	fmt.Fprintf(&sb, "\nMarkdown content: '%s'\n", c.MarkdownExcerpt)
	return sb.String()
}
