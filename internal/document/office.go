package document

import (
	"fmt"
	"io"
	"os"

	"github.com/lu4p/cat"
)

// OfficeLoader extracts text from .odt and .rtf files with lu4p/cat.
type OfficeLoader struct {
	Ext string // ".odt" or ".rtf"; cat picks its reader by extension.
}

func (l *OfficeLoader) Load(r io.Reader, name string) (*Document, error) {
	tmp, err := os.CreateTemp("", "docqa-office-*"+l.Ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := cat.File(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("extract %s text: %w", l.Ext, err)
	}

	format := FormatODT
	if l.Ext == ".rtf" {
		format = FormatRTF
	}
	return &Document{
		Title:  titleFromName(name),
		Format: format,
		Text:   text,
	}, nil
}
