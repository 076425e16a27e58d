package qa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/docqa/internal/chunker"
	"github.com/dgallion1/docqa/internal/document"
	"github.com/dgallion1/docqa/internal/llm"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeAnswerer answers with the first word of the chunk text and fails
// for chunk texts listed in failOn.
type fakeAnswerer struct {
	mu     sync.Mutex
	calls  []llm.Request
	failOn map[string]error
	delay  func(req llm.Request) time.Duration
	panics bool
}

func (f *fakeAnswerer) Ask(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.panics {
		panic("provider exploded")
	}
	if f.delay != nil {
		time.Sleep(f.delay(req))
	}
	for marker, err := range f.failOn {
		if strings.Contains(req.Text, marker) {
			return "", err
		}
	}
	return "answer from " + strings.Fields(req.Text)[0], nil
}

func (f *fakeAnswerer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fiveChunkDoc has five 10-character paragraphs that split into exactly
// one chunk each with MaxSize=10 and no overlap.
func fiveChunkDoc() *document.Document {
	return &document.Document{
		Title:  "Five",
		Source: "five.txt",
		Text:   "part0 xxxxpart1 xxxxpart2 xxxxpart3 xxxxpart4 xxxx",
	}
}

func fiveChunkOptions() Options {
	opts := DefaultOptions()
	opts.Chunking = chunker.Config{MaxSize: 10, Overlap: 0, BoundarySearch: 0}
	return opts
}

func TestAnswer_AllChunksSucceedInOrder(t *testing.T) {
	fa := &fakeAnswerer{}
	e := NewEngine(fa, fiveChunkOptions(), testLog)

	agg, err := e.Answer(context.Background(), fiveChunkDoc(), "What?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agg.TotalChunks != 5 || len(agg.Answers) != 5 || len(agg.Failures) != 0 {
		t.Fatalf("expected 5 answers and no failures, got %d/%d", len(agg.Answers), len(agg.Failures))
	}
	for i, a := range agg.Answers {
		if a.Index != i {
			t.Errorf("answer %d has index %d", i, a.Index)
		}
		if want := fmt.Sprintf("answer from part%d", i); a.Text != want {
			t.Errorf("answer %d: expected %q, got %q", i, want, a.Text)
		}
	}
	if !agg.Complete() || agg.Partial() || agg.Empty() {
		t.Errorf("expected complete aggregate")
	}
	if !strings.HasPrefix(agg.Text(), "Chunk 1: answer from part0\n\nChunk 2: answer from part1") {
		t.Errorf("unexpected text %q", agg.Text())
	}
}

func TestAnswer_OneChunkFails(t *testing.T) {
	fa := &fakeAnswerer{failOn: map[string]error{
		"part2": &llm.ServiceError{Provider: "openai", Kind: llm.KindRateLimit, StatusCode: 429, Message: "slow down"},
	}}
	e := NewEngine(fa, fiveChunkOptions(), testLog)

	agg, err := e.Answer(context.Background(), fiveChunkDoc(), "What?")
	if err != nil {
		t.Fatalf("expected chunk failure to be contained, got %v", err)
	}
	if len(agg.Answers) != 4 || len(agg.Failures) != 1 {
		t.Fatalf("expected 4 answers and 1 failure, got %d/%d", len(agg.Answers), len(agg.Failures))
	}

	var got []int
	for _, a := range agg.Answers {
		got = append(got, a.Index)
	}
	if fmt.Sprint(got) != "[0 1 3 4]" {
		t.Errorf("expected indices [0 1 3 4], got %v", got)
	}

	f := agg.Failures[0]
	if f.Index != 2 {
		t.Errorf("expected failure at index 2, got %d", f.Index)
	}
	var svcErr *llm.ServiceError
	if !errors.As(f, &svcErr) || svcErr.StatusCode != 429 {
		t.Errorf("expected wrapped ServiceError, got %v", f.Cause)
	}
	if !agg.Partial() || agg.Complete() {
		t.Error("expected partial aggregate")
	}
	if !strings.HasSuffix(agg.String(), "\n\nchunk 3 failed: "+f.Reason) {
		t.Errorf("expected trailing failure line, got %q", agg.String())
	}
	if strings.Contains(agg.Text(), "part2") {
		t.Error("failed chunk must not appear in the answer text")
	}
}

func TestAnswer_OverlapEqualToMaxSizeMakesNoCalls(t *testing.T) {
	fa := &fakeAnswerer{}
	opts := DefaultOptions()
	opts.Chunking = chunker.Config{MaxSize: 500, Overlap: 500}
	e := NewEngine(fa, opts, testLog)

	_, err := e.Answer(context.Background(), &document.Document{Text: strings.Repeat("a", 2000)}, "What?")
	var cfgErr *chunker.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *chunker.ConfigError, got %T (%v)", err, err)
	}
	if fa.callCount() != 0 {
		t.Errorf("expected no chunk queries, got %d", fa.callCount())
	}
}

func TestAnswer_EmptyDocument(t *testing.T) {
	fa := &fakeAnswerer{}
	e := NewEngine(fa, DefaultOptions(), testLog)

	agg, err := e.Answer(context.Background(), &document.Document{}, "What?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !agg.Empty() || len(agg.Answers) != 0 || len(agg.Failures) != 0 {
		t.Errorf("expected empty aggregate, got %+v", agg)
	}
	if agg.String() != "" {
		t.Errorf("expected empty rendering, got %q", agg.String())
	}
	if fa.callCount() != 0 {
		t.Errorf("expected no calls, got %d", fa.callCount())
	}
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	e := NewEngine(&fakeAnswerer{}, DefaultOptions(), testLog)
	if _, err := e.Answer(context.Background(), fiveChunkDoc(), "  \n"); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
}

func TestAnswer_NilDocument(t *testing.T) {
	fa := &fakeAnswerer{}
	e := NewEngine(fa, DefaultOptions(), testLog)
	if _, err := e.Answer(context.Background(), nil, "What was revenue?"); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
	if fa.callCount() != 0 {
		t.Errorf("expected no model calls, got %d", fa.callCount())
	}
}

func TestAnswer_SingleChunkDocument(t *testing.T) {
	fa := &fakeAnswerer{}
	e := NewEngine(fa, DefaultOptions(), testLog)

	doc := &document.Document{Title: "Short", Text: "Revenue was five million dollars."}
	agg, err := e.Answer(context.Background(), doc, "What was revenue?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fa.callCount() != 1 {
		t.Fatalf("expected one call, got %d", fa.callCount())
	}
	req := fa.calls[0]
	if req.Text != doc.Text || req.Question != "What was revenue?" || req.Title != "Short" {
		t.Errorf("unexpected request %+v", req)
	}
	if req.Temperature != 0.5 || req.MaxTokens != 512 {
		t.Errorf("expected default temperature and max tokens, got %v/%d", req.Temperature, req.MaxTokens)
	}
	if agg.String() != "Chunk 1: answer from Revenue" {
		t.Errorf("unexpected rendering %q", agg.String())
	}
}

func TestAnswer_PassesSectionBreadcrumb(t *testing.T) {
	fa := &fakeAnswerer{}
	opts := fiveChunkOptions()
	e := NewEngine(fa, opts, testLog)

	doc := fiveChunkDoc()
	doc.Sections = []document.Section{
		{Title: "Intro", Level: 1, Offset: 0},
		{Title: "Later", Level: 1, Offset: 30},
	}
	if _, err := e.Answer(context.Background(), doc, "What?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, req := range fa.calls {
		want := "Intro"
		if strings.HasPrefix(req.Text, "part3") || strings.HasPrefix(req.Text, "part4") {
			want = "Later"
		}
		if len(req.Section) != 1 || req.Section[0] != want {
			t.Errorf("chunk %q: expected section %s, got %v", req.Text, want, req.Section)
		}
	}
}

func TestAnswer_ConcurrentPreservesOrder(t *testing.T) {
	fa := &fakeAnswerer{
		// Earlier chunks take longer so they finish last.
		delay: func(req llm.Request) time.Duration {
			n := int(req.Text[4] - '0')
			return time.Duration(5-n) * 5 * time.Millisecond
		},
		failOn: map[string]error{"part1": errors.New("boom")},
	}
	opts := fiveChunkOptions()
	opts.MaxConcurrency = 5

	var seen atomic.Int32
	opts.OnChunk = func(ChunkAnswer) { seen.Add(1) }
	e := NewEngine(fa, opts, testLog)

	agg, err := e.Answer(context.Background(), fiveChunkDoc(), "What?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.Load() != 5 {
		t.Errorf("expected OnChunk 5 times, got %d", seen.Load())
	}
	var got []int
	for _, a := range agg.Answers {
		got = append(got, a.Index)
	}
	if fmt.Sprint(got) != "[0 2 3 4]" {
		t.Errorf("expected answers in chunk order, got %v", got)
	}
	if len(agg.Failures) != 1 || agg.Failures[0].Index != 1 {
		t.Errorf("expected failure at index 1, got %+v", agg.Failures)
	}
}

func TestAnswer_CancelledContextRecordsRemainingChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fa := &fakeAnswerer{}
	opts := fiveChunkOptions()
	opts.OnChunk = func(a ChunkAnswer) {
		if a.Index == 1 {
			cancel()
		}
	}
	e := NewEngine(fa, opts, testLog)

	agg, err := e.Answer(ctx, fiveChunkDoc(), "What?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(agg.Answers) != 2 || len(agg.Failures) != 3 {
		t.Fatalf("expected 2 answers and 3 failures, got %d/%d", len(agg.Answers), len(agg.Failures))
	}
	for _, f := range agg.Failures {
		if !errors.Is(f, context.Canceled) {
			t.Errorf("expected context.Canceled for chunk %d, got %v", f.Index, f.Cause)
		}
	}
	if fa.callCount() != 2 {
		t.Errorf("expected no calls after cancellation, got %d", fa.callCount())
	}
}

func TestAnswerChunk_RecoversPanic(t *testing.T) {
	e := NewEngine(&fakeAnswerer{panics: true}, DefaultOptions(), testLog)

	ans := e.AnswerChunk(context.Background(), chunker.Chunk{Index: 3, Text: "x"}, "q")
	if ans.OK() {
		t.Fatal("expected failure")
	}
	if ans.Err.Index != 3 || !strings.Contains(ans.Err.Reason, "provider exploded") {
		t.Errorf("unexpected error %+v", ans.Err)
	}
}

// flakyAnswerer fails with err for the first n calls.
type flakyAnswerer struct {
	n     int
	err   error
	calls int
}

func (f *flakyAnswerer) Ask(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	if f.calls <= f.n {
		return "", f.err
	}
	return "ok", nil
}

func TestAnswerChunk_Retry(t *testing.T) {
	retryable := &llm.ServiceError{Provider: "openai", Kind: llm.KindUnavailable, StatusCode: 503}
	fatal := &llm.ServiceError{Provider: "openai", Kind: llm.KindAuth, StatusCode: 401}

	tests := []struct {
		name         string
		failures     int
		err          error
		maxAttempts  int
		wantOK       bool
		wantAttempts int
	}{
		{"no retry by default", 1, retryable, 1, false, 1},
		{"retry succeeds", 2, retryable, 3, true, 3},
		{"retries exhausted", 5, retryable, 3, false, 3},
		{"auth not retried", 1, fatal, 3, false, 1},
		{"plain error not retried", 1, errors.New("boom"), 3, false, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fa := &flakyAnswerer{n: tc.failures, err: tc.err}
			opts := DefaultOptions()
			opts.MaxAttempts = tc.maxAttempts
			e := NewEngine(fa, opts, testLog)
			e.backoff = func(int) time.Duration { return time.Millisecond }

			ans := e.AnswerChunk(context.Background(), chunker.Chunk{Text: "x"}, "q")
			if ans.OK() != tc.wantOK {
				t.Fatalf("expected ok=%v, got err %v", tc.wantOK, ans.Err)
			}
			if ans.Attempts != tc.wantAttempts || fa.calls != tc.wantAttempts {
				t.Errorf("expected %d attempts, got %d (calls %d)", tc.wantAttempts, ans.Attempts, fa.calls)
			}
		})
	}
}

func TestAnswerChunk_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fa := &flakyAnswerer{n: 5, err: &llm.ServiceError{Kind: llm.KindRateLimit}}
	opts := DefaultOptions()
	opts.MaxAttempts = 3
	e := NewEngine(fa, opts, testLog)
	e.backoff = func(int) time.Duration {
		cancel()
		return time.Hour
	}

	ans := e.AnswerChunk(ctx, chunker.Chunk{Text: "x"}, "q")
	if ans.OK() || !errors.Is(ans.Err, context.Canceled) {
		t.Fatalf("expected cancellation, got %+v", ans.Err)
	}
	if fa.calls != 1 {
		t.Errorf("expected 1 call, got %d", fa.calls)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := Backoff(attempt)
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: %v outside [%v, %v)", attempt, d, base, base+base/2)
		}
	}
	if d := Backoff(20); d < 30*time.Second || d >= 45*time.Second {
		t.Errorf("expected capped backoff, got %v", d)
	}
}
