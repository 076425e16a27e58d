package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Loader converts raw document bytes into a Document.
type Loader interface {
	Load(r io.Reader, name string) (*Document, error)
}

// Options tune loaders that have choices to make.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions that can be loaded.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".odt":      true,
	".rtf":      true,
}

// ForFile returns the appropriate loader for a filename.
func ForFile(filename string, opts Options) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextLoader{}, nil
	case ".md", ".markdown":
		return &MarkdownLoader{}, nil
	case ".html", ".htm":
		return &HTMLLoader{}, nil
	case ".pdf":
		return &PDFLoader{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXLoader{}, nil
	case ".odt", ".rtf":
		return &OfficeLoader{Ext: ext}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// LoadFile reads and converts the file at path. Every failure is a *LoadError.
func LoadFile(path string, opts Options) (*Document, error) {
	l, err := ForFile(path, opts)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	doc, err := l.Load(f, filepath.Base(path))
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	doc.Source = path
	return doc, nil
}

// LoadBytes converts an in-memory upload named name. Every failure is a *LoadError.
func LoadBytes(data []byte, name string, opts Options) (*Document, error) {
	l, err := ForFile(name, opts)
	if err != nil {
		return nil, &LoadError{Path: name, Err: err}
	}
	doc, err := l.Load(bytes.NewReader(data), name)
	if err != nil {
		return nil, &LoadError{Path: name, Err: err}
	}
	doc.Source = name
	return doc, nil
}

// titleFromName strips the directory and extension from a filename.
func titleFromName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
