package document

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownLoader reads a converted Markdown file verbatim and indexes its
// headings with goldmark. The text handed to the model is left untouched.
type MarkdownLoader struct{}

func (l *MarkdownLoader) Load(r io.Reader, name string) (*Document, error) {
	content, err := readText(r)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Title:  titleFromName(name),
		Format: FormatMarkdown,
		Text:   content,
	}
	doc.Sections = markdownOutline([]byte(content))

	// Prefer the first h1 as the title.
	for _, s := range doc.Sections {
		if s.Level == 1 {
			doc.Title = s.Title
			break
		}
	}
	return doc, nil
}

// markdownOutline returns one section per heading, offset at the start of the
// heading's line.
func markdownOutline(src []byte) []Section {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	var sections []Section
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		title := strings.TrimSpace(string(h.Text(src)))
		if title == "" {
			continue
		}
		start := h.Lines().At(0).Start
		lineStart := bytes.LastIndexByte(src[:start], '\n') + 1
		sections = append(sections, Section{
			Title:  title,
			Level:  h.Level,
			Offset: utf8.RuneCount(src[:lineStart]),
		})
	}
	return sections
}
