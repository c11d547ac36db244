package recorder

import "MarketResearch/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) CreateRun(_ *model.Run) error                             { return nil }
func (n *NoopRecorder) FinishRun(_, _ string, _, _ []string) error               { return nil }
func (n *NoopRecorder) RecordArticles(_ string, _ []model.Article) error         { return nil }
func (n *NoopRecorder) RecordPrices(_ string, _ []model.PriceSnapshot) error     { return nil }
func (n *NoopRecorder) RecordReport(_ *model.ReportRecord) error                 { return nil }
func (n *NoopRecorder) RecordEmbeddings(_ string, _ []model.Embedding) error     { return nil }
func (n *NoopRecorder) GetEmbedding(_ string) (*model.Embedding, error)          { return nil, ErrNotFound }
func (n *NoopRecorder) GetRun(_ string) (*model.Run, error)                      { return nil, ErrNotFound }
func (n *NoopRecorder) ListReports(_ ReportFilter) ([]model.ReportRecord, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                             { return nil }
