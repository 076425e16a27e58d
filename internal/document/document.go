// Package document loads source files into plain text for question answering.
//
// Every loader produces the same shape: a Document holding the full text and
// an optional list of sections (headings or pages) keyed by character offset.
// Loaders differ only in how faithfully they recover that text: raw PDF
// extraction loses tables and multi-column layout, while a Markdown file
// converted upstream is read verbatim.
package document

import (
	"fmt"
	"unicode/utf8"
)

// Format names the kind of source a Document came from.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
	FormatODT      Format = "odt"
	FormatRTF      Format = "rtf"
)

// Document is the full text of one source. It is not modified after loading.
type Document struct {
	Title    string
	Source   string
	Format   Format
	Text     string
	Sections []Section // Ordered by Offset.
}

// Section marks where a heading or page begins in Text.
type Section struct {
	Title  string
	Level  int // 1 for top-level headings and pages.
	Offset int // Character offset into Text.
}

// Len returns the document length in characters.
func (d *Document) Len() int {
	return utf8.RuneCountInString(d.Text)
}

// SectionAt returns the heading breadcrumb in effect at offset,
// e.g. ["Results", "Revenue"].
func (d *Document) SectionAt(offset int) []string {
	var stack []Section
	for _, s := range d.Sections {
		if s.Offset > offset {
			break
		}
		for len(stack) > 0 && stack[len(stack)-1].Level >= s.Level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, s)
	}
	if len(stack) == 0 {
		return nil
	}
	out := make([]string, len(stack))
	for i, s := range stack {
		out[i] = s.Title
	}
	return out
}

// LoadError reports a document that could not be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
