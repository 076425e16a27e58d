package qa

import (
	"fmt"
	"strings"
	"time"
)

// ChunkQueryError records why one chunk could not be answered.
type ChunkQueryError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
	Cause  error  `json:"-"`
}

func (e *ChunkQueryError) Error() string {
	return fmt.Sprintf("chunk %d failed: %s", e.Index+1, e.Reason)
}

func (e *ChunkQueryError) Unwrap() error {
	return e.Cause
}

// ChunkAnswer is the outcome of one chunk query. Exactly one of Text and
// Err is set.
type ChunkAnswer struct {
	Index    int              `json:"index"`
	Start    int              `json:"start"`
	End      int              `json:"end"`
	Text     string           `json:"text,omitempty"`
	Err      *ChunkQueryError `json:"error,omitempty"`
	Attempts int              `json:"attempts"`
	Duration time.Duration    `json:"duration_ns"`
}

func (a ChunkAnswer) OK() bool {
	return a.Err == nil
}

// AggregateAnswer holds the successful answers and the failures of one
// question over one document, each in chunk order.
type AggregateAnswer struct {
	Question    string             `json:"question"`
	Model       string             `json:"model,omitempty"`
	Source      string             `json:"source,omitempty"`
	TotalChunks int                `json:"total_chunks"`
	Answers     []ChunkAnswer      `json:"answers"`
	Failures    []*ChunkQueryError `json:"failures"`
}

// Empty reports whether the document produced no chunks at all.
func (a *AggregateAnswer) Empty() bool {
	return a.TotalChunks == 0
}

// Complete reports whether every chunk was answered.
func (a *AggregateAnswer) Complete() bool {
	return len(a.Failures) == 0
}

// Partial reports whether some, but not all, chunks were answered.
func (a *AggregateAnswer) Partial() bool {
	return len(a.Answers) > 0 && len(a.Failures) > 0
}

// Failed reports whether chunks existed and none was answered.
func (a *AggregateAnswer) Failed() bool {
	return len(a.Answers) == 0 && len(a.Failures) > 0
}

// Text joins the successful answers, each prefixed with its 1-based chunk
// number, separated by blank lines.
func (a *AggregateAnswer) Text() string {
	parts := make([]string, 0, len(a.Answers))
	for _, ans := range a.Answers {
		parts = append(parts, fmt.Sprintf("Chunk %d: %s", ans.Index+1, ans.Text))
	}
	return strings.Join(parts, "\n\n")
}

// String renders Text followed by one "chunk N failed" line per failure.
func (a *AggregateAnswer) String() string {
	text := a.Text()
	if len(a.Failures) == 0 {
		return text
	}
	lines := make([]string, 0, len(a.Failures))
	for _, f := range a.Failures {
		lines = append(lines, f.Error())
	}
	failures := strings.Join(lines, "\n")
	if text == "" {
		return failures
	}
	return text + "\n\n" + failures
}
