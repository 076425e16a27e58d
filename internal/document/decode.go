package document

import (
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// readText reads r fully as UTF-8, falling back to Latin-1 when the bytes are
// not valid UTF-8.
func readText(r io.Reader) (string, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if utf8.Valid(src) {
		return string(src), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(src)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(out), nil
}
