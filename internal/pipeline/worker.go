package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docqa/internal/chunker"
	"github.com/dgallion1/docqa/internal/document"
	"github.com/dgallion1/docqa/internal/history"
	"github.com/dgallion1/docqa/internal/qa"
)

// Recorder appends finished runs to a log.
type Recorder interface {
	Record(ctx context.Context, r *history.Run) error
}

// Worker processes a single question job.
type Worker struct {
	engine     *qa.Engine
	loaderOpts document.Options
	history    Recorder
	log        *slog.Logger
}

func NewWorker(engine *qa.Engine, loaderOpts document.Options, hist Recorder, log *slog.Logger) *Worker {
	return &Worker{
		engine:     engine,
		loaderOpts: loaderOpts,
		history:    hist,
		log:        log,
	}
}

// Process loads the uploaded document and answers the job's question.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Load
	job.SetStatus(StatusLoading, "loading")
	doc, err := document.LoadBytes(job.FileData(), job.Filename, w.loaderOpts)
	job.releaseFile()
	if err != nil {
		log.Error("load failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "loading")
		return
	}

	// Phase 2: Answer
	opts := w.engine.Options()
	if job.ChunkSize > 0 {
		opts.Chunking.MaxSize = job.ChunkSize
		opts.Chunking.Overlap = job.ChunkOverlap
	}
	opts.OnChunk = job.ChunkDone

	total, err := chunker.Count(doc.Text, opts.Chunking)
	if err != nil {
		log.Error("invalid chunking", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "answering")
		return
	}
	job.SetTotalChunks(total)
	job.SetStatus(StatusAnswering, "answering")
	log.Info("answering", "chunks", total, "chars", doc.Len())

	agg, err := w.engine.WithOptions(opts).Answer(ctx, doc, job.Question)
	if err != nil {
		log.Error("answer failed", "error", err)
		job.AddError(fmt.Sprintf("answer: %s", err))
		job.SetStatus(StatusFailed, "answering")
		return
	}
	job.Finish(agg)
	log.Info("job finished", "status", job.Status(), "failed_chunks", len(agg.Failures))

	if w.history != nil {
		run := history.FromAnswer(agg, string(doc.Format), time.Now())
		if err := w.history.Record(ctx, &run); err != nil {
			log.Warn("history write failed", "error", err)
		}
	}
}
