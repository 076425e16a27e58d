// Package qa answers a question about a document that is too large for one
// model call. The document is split into overlapping chunks, each chunk is
// asked the question on its own, and the answers are combined in chunk order.
package qa

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docqa/internal/chunker"
	"github.com/dgallion1/docqa/internal/document"
	"github.com/dgallion1/docqa/internal/llm"
	"github.com/dgallion1/docqa/internal/metrics"
)

var (
	// ErrEmptyQuestion is returned by Answer when the question is blank.
	ErrEmptyQuestion = errors.New("question is empty")
	ErrNoDocument    = errors.New("no document")
)

// Options controls how a document is split and queried.
type Options struct {
	Chunking    chunker.Config
	Model       string // Passed through to the provider; empty uses its default.
	Temperature float64
	MaxTokens   int

	// MaxConcurrency bounds parallel chunk queries. Values below 2 query
	// chunks one at a time, in order.
	MaxConcurrency int
	// MaxAttempts bounds calls per chunk. Only retryable provider errors
	// are retried.
	MaxAttempts int

	// OnChunk, if set, is called once per chunk after it is answered or
	// has failed. Calls are serialised.
	OnChunk func(ChunkAnswer)
}

func DefaultOptions() Options {
	return Options{
		Chunking:       chunker.DefaultConfig(),
		Temperature:    0.5,
		MaxTokens:      512,
		MaxConcurrency: 1,
		MaxAttempts:    1,
	}
}

// Engine runs chunked question answering against one Answerer.
type Engine struct {
	answerer llm.Answerer
	opts     Options
	log      *slog.Logger
	backoff  func(attempt int) time.Duration
}

func NewEngine(answerer llm.Answerer, opts Options, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		answerer: answerer,
		opts:     opts,
		log:      log,
		backoff:  Backoff,
	}
}

// Options returns the engine's options.
func (e *Engine) Options() Options {
	return e.opts
}

// WithOptions returns a copy of the engine that uses opts.
func (e *Engine) WithOptions(opts Options) *Engine {
	cp := *e
	cp.opts = opts
	return &cp
}

// Split returns the chunks Answer would query for text.
func (e *Engine) Split(text string) (iter.Seq[chunker.Chunk], error) {
	return chunker.Split(text, e.opts.Chunking)
}

// AnswerChunk asks the question about a single chunk. It never returns an
// error: any failure, including a panic in the provider, becomes the
// answer's Err.
func (e *Engine) AnswerChunk(ctx context.Context, c chunker.Chunk, question string) ChunkAnswer {
	return e.answerChunk(ctx, nil, c, question)
}

// Answer splits doc and asks the question of every chunk. Chunk failures
// are reported in the result; only invalid input returns an error. If ctx
// is cancelled, chunks not yet answered are recorded as failures.
func (e *Engine) Answer(ctx context.Context, doc *document.Document, question string) (*AggregateAnswer, error) {
	if err := e.opts.Chunking.Validate(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNoDocument
	}
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	chunks, err := e.Split(doc.Text)
	if err != nil {
		return nil, err
	}

	log := e.log.With("source", doc.Source, "format", doc.Format)
	start := time.Now()

	results := e.run(ctx, doc, chunks, question)

	agg := &AggregateAnswer{
		Question:    question,
		Model:       e.opts.Model,
		Source:      doc.Source,
		TotalChunks: len(results),
	}
	for _, r := range results {
		if r.OK() {
			agg.Answers = append(agg.Answers, r)
		} else {
			agg.Failures = append(agg.Failures, r.Err)
		}
	}

	status := "completed"
	switch {
	case agg.Failed():
		status = "failed"
	case agg.Partial():
		status = "partial"
	}
	metrics.CaptureAnswer(status, time.Since(start))
	log.Info("answered document",
		"chunks", agg.TotalChunks,
		"failed", len(agg.Failures),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return agg, nil
}

// run queries every chunk and returns the answers sorted by chunk index.
func (e *Engine) run(ctx context.Context, doc *document.Document, chunks iter.Seq[chunker.Chunk], question string) []ChunkAnswer {
	var (
		mu      sync.Mutex
		results []ChunkAnswer
	)
	record := func(a ChunkAnswer) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, a)
		if e.opts.OnChunk != nil {
			e.opts.OnChunk(a)
		}
	}

	if e.opts.MaxConcurrency < 2 {
		for c := range chunks {
			record(e.answerChunk(ctx, doc, c, question))
		}
		return results
	}

	sem := make(chan struct{}, e.opts.MaxConcurrency)
	var wg sync.WaitGroup
	for c := range chunks {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			record(e.cancelled(ctx, c))
			continue
		}
		wg.Add(1)
		go func(c chunker.Chunk) {
			defer wg.Done()
			defer func() { <-sem }()
			record(e.answerChunk(ctx, doc, c, question))
		}(c)
	}
	wg.Wait()

	slices.SortFunc(results, func(a, b ChunkAnswer) int { return a.Index - b.Index })
	return results
}

func (e *Engine) answerChunk(ctx context.Context, doc *document.Document, c chunker.Chunk, question string) ChunkAnswer {
	if ctx.Err() != nil {
		return e.cancelled(ctx, c)
	}

	req := llm.Request{
		Text:        c.Text,
		Question:    question,
		Model:       e.opts.Model,
		Temperature: e.opts.Temperature,
		MaxTokens:   e.opts.MaxTokens,
	}
	if doc != nil {
		req.Title = doc.Title
		req.Section = doc.SectionAt(c.Start + c.Overlap)
	}

	ans := ChunkAnswer{Index: c.Index, Start: c.Start, End: c.End}
	start := time.Now()
	maxAttempts := max(e.opts.MaxAttempts, 1)

	var (
		text    string
		lastErr error
	)
	for attempt := range maxAttempts {
		ans.Attempts = attempt + 1
		text, lastErr = e.ask(ctx, req)
		if lastErr == nil || attempt == maxAttempts-1 || !llm.IsRetryable(lastErr) {
			break
		}
		metrics.ChunkRetried()
		e.log.Warn("retryable chunk error", "chunk", c.Index, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(e.backoff(attempt)):
		case <-ctx.Done():
			lastErr = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}
	ans.Duration = time.Since(start)

	if lastErr != nil {
		metrics.ChunkFailed()
		e.log.Warn("chunk query failed", "chunk", c.Index, "attempts", ans.Attempts, "error", lastErr)
		ans.Err = &ChunkQueryError{Index: c.Index, Reason: lastErr.Error(), Cause: lastErr}
		return ans
	}

	metrics.ChunkSucceeded()
	e.log.Debug("chunk answered", "chunk", c.Index, "chars", c.Len(), "duration_ms", ans.Duration.Milliseconds())
	ans.Text = text
	return ans
}

// ask calls the provider, turning a panic into an error.
func (e *Engine) ask(ctx context.Context, req llm.Request) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model call panicked: %v", r)
		}
	}()
	return e.answerer.Ask(ctx, req)
}

func (e *Engine) cancelled(ctx context.Context, c chunker.Chunk) ChunkAnswer {
	err := context.Cause(ctx)
	metrics.ChunkFailed()
	return ChunkAnswer{
		Index: c.Index,
		Start: c.Start,
		End:   c.End,
		Err:   &ChunkQueryError{Index: c.Index, Reason: err.Error(), Cause: err},
	}
}
