package model

import (
	"fmt"
	"time"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Batch is the unit of work of one run.
type Batch struct {
	Articles []Article
	Prices   []PriceSnapshot
}

// StageError records a failed pipeline stage without aborting the run.
type StageError struct {
	Stage string
	Err   error
}

func (e StageError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Stage, e.Err)
}

func (e StageError) Unwrap() error { return e.Err }

// RunState is passed through the pipeline stages of one run.
type RunState struct {
	RunID           string
	Tickers         []string
	TimeWindowHours int
	Articles        []Article
	Prices          []PriceSnapshot
	Ranked          []Article
	Notes           []string
	Errors          []StageError
	Artifacts       []string
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Notef appends a progress note.
func (s *RunState) Notef(format string, args ...any) {
	s.Notes = append(s.Notes, fmt.Sprintf(format, args...))
}

// Fail records a stage failure.
func (s *RunState) Fail(stage string, err error) {
	s.Errors = append(s.Errors, StageError{Stage: stage, Err: err})
}

// ErrorStrings flattens the stage errors for persistence and API responses.
func (s *RunState) ErrorStrings() []string {
	out := make([]string, 0, len(s.Errors))
	for _, e := range s.Errors {
		out = append(out, e.Error())
	}
	return out
}

// Status is completed when no stage failed.
func (s *RunState) Status() string {
	if len(s.Errors) > 0 {
		return StatusFailed
	}
	return StatusCompleted
}

// Run is the persisted lifecycle record of a pipeline run.
type Run struct {
	ID              string     `json:"run_id"`
	Tickers         []string   `json:"tickers"`
	TimeWindowHours int        `json:"time_window_hours"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
	Errors          []string   `json:"errors"`
	Artifacts       []string   `json:"artifacts"`
}

// ReportRecord is the metadata row of a stored report.
type ReportRecord struct {
	RunID     string    `json:"run_id"`
	Date      string    `json:"date"`
	Tickers   []string  `json:"tickers"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}
