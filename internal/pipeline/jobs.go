package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docqa/internal/qa"
)

// JobStatus represents the state of a question job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusLoading   JobStatus = "loading"
	StatusAnswering JobStatus = "answering"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// Done reports whether the job will not change again.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// Job tracks one question asked of one uploaded document.
type Job struct {
	mu    sync.Mutex
	pubMu sync.Mutex // Orders onChange calls the same as updates.

	ID       string
	Filename string
	Question string

	// A zero ChunkSize uses the engine's chunking; otherwise both
	// fields replace it.
	ChunkSize    int
	ChunkOverlap int

	status      JobStatus
	phase       string
	progress    Progress
	answer      *qa.AggregateAnswer
	contentHash string
	createdAt   time.Time
	updatedAt   time.Time

	fileData []byte
	onChange func(JobSnapshot)
}

// Progress tracks processing progress.
type Progress struct {
	TotalChunks     int      `json:"total_chunks"`
	ChunksProcessed int      `json:"chunks_processed"`
	ChunksFailed    int      `json:"chunks_failed"`
	Errors          []string `json:"errors"`
}

// NewJob creates a queued job for data.
func NewJob(filename, question string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Filename:    filename,
		Question:    question,
		status:      StatusQueued,
		phase:       "queued",
		contentHash: ContentHashHex(data),
		createdAt:   now,
		updatedAt:   now,
		fileData:    data,
	}
}

// update applies fn under the lock and publishes the new state.
func (j *Job) update(fn func()) {
	j.mu.Lock()
	fn()
	j.updatedAt = time.Now()
	notify := j.onChange
	snap := j.snapshotLocked()
	j.pubMu.Lock()
	j.mu.Unlock()

	defer j.pubMu.Unlock()
	if notify != nil {
		notify(snap)
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.update(func() {
		j.status = status
		j.phase = phase
	})
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.update(func() {
		j.progress.Errors = append(j.progress.Errors, err)
	})
}

// SetTotalChunks records total chunk count.
func (j *Job) SetTotalChunks(n int) {
	j.update(func() {
		j.progress.TotalChunks = n
	})
}

// ChunkDone records one answered or failed chunk.
func (j *Job) ChunkDone(a qa.ChunkAnswer) {
	j.update(func() {
		j.progress.ChunksProcessed++
		if !a.OK() {
			j.progress.ChunksFailed++
			j.progress.Errors = append(j.progress.Errors, a.Err.Error())
		}
	})
}

// Finish stores the aggregate answer and sets the final status.
func (j *Job) Finish(agg *qa.AggregateAnswer) {
	status := StatusCompleted
	switch {
	case agg.Failed():
		status = StatusFailed
	case agg.Partial():
		status = StatusPartial
	}
	j.update(func() {
		j.answer = agg
		j.status = status
		j.phase = "done"
		j.fileData = nil
	})
}

// Status returns the current status.
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// releaseFile drops the upload once it has been loaded.
func (j *Job) releaseFile() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

func (j *Job) setOnChange(fn func(JobSnapshot)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onChange = fn
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string              `json:"job_id"`
	Status      JobStatus           `json:"status"`
	Phase       string              `json:"phase"`
	Filename    string              `json:"filename"`
	Question    string              `json:"question"`
	ContentHash string              `json:"content_hash"`
	Progress    Progress            `json:"progress"`
	Answer      *qa.AggregateAnswer `json:"answer,omitempty"`
	AnswerText  string              `json:"answer_text,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *Job) snapshotLocked() JobSnapshot {
	errs := make([]string, len(j.progress.Errors))
	copy(errs, j.progress.Errors)

	snap := JobSnapshot{
		ID:          j.ID,
		Status:      j.status,
		Phase:       j.phase,
		Filename:    j.Filename,
		Question:    j.Question,
		ContentHash: j.contentHash,
		Progress: Progress{
			TotalChunks:     j.progress.TotalChunks,
			ChunksProcessed: j.progress.ChunksProcessed,
			ChunksFailed:    j.progress.ChunksFailed,
			Errors:          errs,
		},
		Answer:    j.answer,
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
	}
	if j.answer != nil {
		snap.AnswerText = j.answer.String()
	}
	return snap
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
