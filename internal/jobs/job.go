// Package jobs runs book indexing in the background and keeps a queryable
// record of each run.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/Yates-Labs/folio/internal/apperror"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrStoreFailed = errors.New("job store operation failed")
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// KindIndexBook is the only job kind: indexing one uploaded book.
const KindIndexBook = "index_book"

// Job is the record of one background run.
type Job struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	IndexName  string     `json:"index_name"`
	SourceFile string     `json:"source_file"`
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Documents  int        `json:"documents"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store persists job records. Implementations must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	Close() error
}

func notFound(id string) error {
	return apperror.Wrap(apperror.NotFound, ErrJobNotFound, "job "+id)
}
