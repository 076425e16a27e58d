package document

import "io"

// TextLoader reads plain text files verbatim.
type TextLoader struct{}

func (l *TextLoader) Load(r io.Reader, name string) (*Document, error) {
	content, err := readText(r)
	if err != nil {
		return nil, err
	}
	return &Document{
		Title:  titleFromName(name),
		Format: FormatText,
		Text:   content,
	}, nil
}
