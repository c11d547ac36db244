package recorder

import (
	"errors"

	"MarketResearch/internal/model"
)

// ErrNotFound is returned when a run or embedding does not exist.
var ErrNotFound = errors.New("not found")

// MaxReports caps the rows returned by ListReports.
const MaxReports = 200

// ReportFilter narrows ListReports. Path takes precedence over Date.
type ReportFilter struct {
	Date  string // YYYY-MM-DD
	Path  string
	Limit int
}

// Recorder persists run history, fetched data and report metadata.
type Recorder interface {
	CreateRun(run *model.Run) error
	FinishRun(id, status string, errs, artifacts []string) error
	RecordArticles(runID string, articles []model.Article) error
	RecordPrices(runID string, prices []model.PriceSnapshot) error
	RecordReport(rec *model.ReportRecord) error
	// RecordEmbeddings upserts one vector per article URL; a later run
	// replaces the vector of an article it embeds again.
	RecordEmbeddings(runID string, embeddings []model.Embedding) error
	GetEmbedding(url string) (*model.Embedding, error)
	GetRun(id string) (*model.Run, error)
	ListReports(filter ReportFilter) ([]model.ReportRecord, error)
	Close() error
}

func (f ReportFilter) limit() int {
	if f.Limit <= 0 || f.Limit > MaxReports {
		return MaxReports
	}
	return f.Limit
}
