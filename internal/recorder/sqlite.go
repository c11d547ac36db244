package recorder

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/guregu/null/v6"
	"github.com/phuslu/log"
	_ "modernc.org/sqlite"

	"MarketResearch/internal/analysis"
	"MarketResearch/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the API can read while a scheduled run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id                TEXT PRIMARY KEY,
			tickers           TEXT NOT NULL,
			time_window_hours INTEGER NOT NULL,
			status            TEXT NOT NULL,
			started_at        INTEGER NOT NULL,
			finished_at       INTEGER,
			errors            TEXT NOT NULL DEFAULT '[]',
			artifacts         TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS articles (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			url_hash     TEXT NOT NULL,
			ticker       TEXT,
			title        TEXT,
			url          TEXT,
			source       TEXT,
			published_at INTEGER,
			summary      TEXT,
			sentiment    REAL,
			relevance    REAL,
			impact       REAL,
			UNIQUE(run_id, url_hash)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_run ON articles(run_id)`,

		`CREATE TABLE IF NOT EXISTS prices (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			ticker    TEXT NOT NULL,
			as_of     INTEGER NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL,
			volume    REAL,
			d1_change REAL,
			d5_change REAL,
			vol_z     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_run ON prices(run_id)`,

		`CREATE TABLE IF NOT EXISTS reports (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			date_utc   TEXT NOT NULL,
			tickers    TEXT NOT NULL,
			path       TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_date ON reports(date_utc)`,

		`CREATE TABLE IF NOT EXISTS embeddings (
			url_hash   TEXT PRIMARY KEY,
			run_id     TEXT NOT NULL,
			url        TEXT NOT NULL,
			ticker     TEXT,
			model      TEXT NOT NULL,
			dim        INTEGER NOT NULL,
			vector     BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) CreateRun(run *model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO runs
		(id, tickers, time_window_hours, status, started_at, errors, artifacts)
		VALUES (?,?,?,?,?,?,?)`,
		run.ID, encodeList(run.Tickers), run.TimeWindowHours, run.Status,
		run.StartedAt.UnixMilli(), encodeList(run.Errors), encodeList(run.Artifacts),
	)
	return err
}

func (r *SQLiteRecorder) FinishRun(id, status string, errs, artifacts []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(`UPDATE runs SET status = ?, finished_at = ?, errors = ?, artifacts = ? WHERE id = ?`,
		status, time.Now().UnixMilli(), encodeList(errs), encodeList(artifacts), id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRecorder) RecordArticles(runID string, articles []model.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO articles
		(run_id, url_hash, ticker, title, url, source, published_at, summary, sentiment, relevance, impact)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, a := range articles {
		var published null.Int
		if a.PublishedAt.Valid {
			published = null.IntFrom(a.PublishedAt.Time.UnixMilli())
		}
		if _, err := stmt.Exec(runID, analysis.URLKey(a.URL), a.Ticker, a.Title, a.URL,
			a.Source, published, a.Summary, a.Sentiment, a.Relevance, a.Impact); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert article %s: %w", a.URL, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordPrices(runID string, prices []model.PriceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	for _, p := range prices {
		if _, err := tx.Exec(`INSERT INTO prices
			(run_id, ticker, as_of, open, high, low, close, volume, d1_change, d5_change, vol_z)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			runID, p.Ticker, p.AsOf.UnixMilli(), p.Open, p.High, p.Low, p.Close, p.Volume,
			p.D1Change, p.D5Change, p.VolZ); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert price %s: %w", p.Ticker, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordReport(rec *model.ReportRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO reports (run_id, date_utc, tickers, path, created_at) VALUES (?,?,?,?,?)`,
		rec.RunID, rec.Date, encodeList(rec.Tickers), rec.Path, created.UnixMilli(),
	)
	return err
}

func (r *SQLiteRecorder) RecordEmbeddings(runID string, embeddings []model.Embedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO embeddings
		(url_hash, run_id, url, ticker, model, dim, vector, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(url_hash) DO UPDATE SET
			run_id = excluded.run_id, ticker = excluded.ticker, model = excluded.model,
			dim = excluded.dim, vector = excluded.vector, updated_at = excluded.updated_at`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, e := range embeddings {
		if _, err := stmt.Exec(analysis.URLKey(e.URL), runID, e.URL, e.Ticker, e.Model,
			len(e.Vector), encodeVector(e.Vector), now); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert embedding %s: %w", e.URL, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) GetEmbedding(url string) (*model.Embedding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		e      model.Embedding
		ticker null.String
		blob   []byte
	)
	err := r.db.QueryRow(`SELECT url, ticker, model, vector FROM embeddings WHERE url_hash = ?`,
		analysis.URLKey(url)).Scan(&e.URL, &ticker, &e.Model, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Ticker = ticker.ValueOrZero()
	if e.Vector, err = decodeVector(blob); err != nil {
		return nil, fmt.Errorf("embedding %s: %w", url, err)
	}
	return &e, nil
}

func (r *SQLiteRecorder) GetRun(id string) (*model.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		run                      model.Run
		tickers, errs, artifacts string
		started                  int64
		finished                 null.Int
	)
	err := r.db.QueryRow(`SELECT id, tickers, time_window_hours, status, started_at, finished_at, errors, artifacts
		FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &tickers, &run.TimeWindowHours, &run.Status, &started, &finished, &errs, &artifacts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	run.StartedAt = time.UnixMilli(started).UTC()
	if finished.Valid {
		t := time.UnixMilli(finished.Int64).UTC()
		run.FinishedAt = &t
	}
	run.Tickers = decodeList(tickers)
	run.Errors = decodeList(errs)
	run.Artifacts = decodeList(artifacts)
	return &run, nil
}

func (r *SQLiteRecorder) ListReports(filter ReportFilter) ([]model.ReportRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `SELECT run_id, date_utc, tickers, path, created_at FROM reports`
	var args []any
	limit := filter.limit()
	switch {
	case filter.Path != "":
		query += ` WHERE path = ?`
		args = append(args, filter.Path)
		limit = 1
	case filter.Date != "":
		query += ` WHERE date_utc = ?`
		args = append(args, filter.Date)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ReportRecord
	for rows.Next() {
		var (
			rec     model.ReportRecord
			tickers string
			created int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Date, &tickers, &rec.Path, &created); err != nil {
			return nil, err
		}
		rec.Tickers = decodeList(tickers)
		rec.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// encodeVector packs a vector as little-endian float32s.
func encodeVector(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

func decodeList(s string) []string {
	out := []string{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		log.Warn().Err(err).Str("value", s).Msg("malformed list column")
	}
	return out
}
