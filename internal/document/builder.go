package document

import (
	"strings"
	"unicode/utf8"
)

// textBuilder accumulates block text and records section offsets as it goes.
type textBuilder struct {
	sb       strings.Builder
	runes    int
	sections []Section
}

// heading starts a new section and writes its title as its own block.
func (b *textBuilder) heading(level int, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	b.separate()
	b.sections = append(b.sections, Section{Title: title, Level: level, Offset: b.runes})
	b.write(title)
}

// block appends a paragraph, separated from the previous one by a blank line.
func (b *textBuilder) block(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.separate()
	b.write(text)
}

func (b *textBuilder) separate() {
	if b.sb.Len() > 0 {
		b.write("\n\n")
	}
}

func (b *textBuilder) write(s string) {
	b.sb.WriteString(s)
	b.runes += utf8.RuneCountInString(s)
}

func (b *textBuilder) document(title string, format Format) *Document {
	return &Document{
		Title:    title,
		Format:   format,
		Text:     b.sb.String(),
		Sections: b.sections,
	}
}
