// Package store keeps export job status records.
package store

import (
	"context"
	"time"
)

// Job states.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Status is the record of one export job.
type Status struct {
	Status    string     `json:"status"`
	Progress  int        `json:"progress"`
	Message   string     `json:"message"`
	Current   int        `json:"current"`
	Total     int        `json:"total"`
	SessionID string     `json:"session_id,omitempty"`
	FileName  string     `json:"file_name,omitempty"`
	ResultRef string     `json:"result_ref,omitempty"`
	ErrorKind string     `json:"error_kind,omitempty"`
	Position  *int       `json:"position,omitempty"` // 0-based page of a page failure
	Start     *time.Time `json:"start_time,omitempty"`
	End       *time.Time `json:"end_time,omitempty"`
}

// Finished reports whether the job reached a terminal state.
func (s Status) Finished() bool { return s.Status == StatusDone || s.Status == StatusFailed }

// StatusStore persists job status.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st Status) error
	Get(ctx context.Context, jobID string) (Status, bool, error)
	Close() error
}

// Percent converts done/total into a 0..100 progress value.
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	p := done * 100 / total
	if p > 100 {
		p = 100
	}
	return p
}
