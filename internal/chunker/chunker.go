package chunker

import (
	"fmt"
	"iter"
)

// Config controls chunking behavior. Sizes are in characters (code points).
type Config struct {
	MaxSize        int      // Maximum chunk length.
	Overlap        int      // Characters shared with the preceding chunk.
	BoundarySearch int      // Characters before MaxSize searched for a separator. 0 disables.
	Separators     []string // Preferred cut points, best first. Nil uses DefaultSeparators.
}

// DefaultSeparators are tried in order when looking for a natural break.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " "}

// DefaultConfig returns the defaults the comparison notebook was tuned with.
func DefaultConfig() Config {
	return Config{
		MaxSize:        15000,
		Overlap:        500,
		BoundarySearch: 1500,
	}
}

// ConfigError reports an unusable chunking configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid chunking config: %s %s", e.Field, e.Reason)
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	if c.MaxSize <= 0 {
		return &ConfigError{Field: "max size", Reason: fmt.Sprintf("must be positive, got %d", c.MaxSize)}
	}
	if c.Overlap < 0 {
		return &ConfigError{Field: "overlap", Reason: fmt.Sprintf("must not be negative, got %d", c.Overlap)}
	}
	if c.Overlap >= c.MaxSize {
		return &ConfigError{Field: "overlap", Reason: fmt.Sprintf("%d must be less than max size %d", c.Overlap, c.MaxSize)}
	}
	if c.BoundarySearch < 0 {
		return &ConfigError{Field: "boundary search", Reason: fmt.Sprintf("must not be negative, got %d", c.BoundarySearch)}
	}
	return nil
}

// Chunk is a contiguous span of a document. Start and End are character offsets.
type Chunk struct {
	Index   int
	Start   int
	End     int
	Overlap int // Leading characters shared with the previous chunk.
	Text    string
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Split validates cfg and returns a lazy sequence of chunks over text.
// The sequence can be ranged over any number of times.
func Split(text string, cfg Config) (iter.Seq[Chunk], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Separators == nil {
		cfg.Separators = DefaultSeparators
	}
	return func(yield func(Chunk) bool) {
		runes := []rune(text)
		n := len(runes)
		start, overlap, index := 0, 0, 0

		for start < n {
			end := min(start+cfg.MaxSize, n)
			if end < n {
				end = cutPoint(runes, start, end, cfg)
			}
			if !yield(Chunk{
				Index:   index,
				Start:   start,
				End:     end,
				Overlap: overlap,
				Text:    string(runes[start:end]),
			}) {
				return
			}
			if end == n {
				return
			}
			start = end - cfg.Overlap
			overlap = cfg.Overlap
			index++
		}
	}, nil
}

// Count returns how many chunks Split would produce.
func Count(text string, cfg Config) (int, error) {
	seq, err := Split(text, cfg)
	if err != nil {
		return 0, err
	}
	n := 0
	for range seq {
		n++
	}
	return n, nil
}

// cutPoint moves a hard cut at end back to just after the best separator in the
// search window. The result always stays above start+Overlap so the next chunk
// begins after this one.
func cutPoint(runes []rune, start, end int, cfg Config) int {
	if cfg.BoundarySearch == 0 {
		return end
	}
	lo := max(end-cfg.BoundarySearch, start+cfg.Overlap+1)
	if lo >= end {
		return end
	}

	for _, sep := range cfg.Separators {
		s := []rune(sep)
		if len(s) == 0 {
			continue
		}
		// Scan right to left for the separator ending closest to the limit.
		for p := end; p >= lo; p-- {
			if p-len(s) < start {
				break
			}
			if matchAt(runes, p-len(s), s) {
				return p
			}
		}
	}
	return end
}

func matchAt(runes []rune, at int, sep []rune) bool {
	for i, r := range sep {
		if runes[at+i] != r {
			return false
		}
	}
	return true
}
