package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/phuslu/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Store writes reports under a base directory, one folder per UTC date.
type Store struct {
	Dir         string
	HTMLEnabled bool
	md          goldmark.Markdown
}

// NewStore creates a report store rooted at dir.
func NewStore(dir string, htmlEnabled bool) *Store {
	return &Store{
		Dir:         dir,
		HTMLEnabled: htmlEnabled,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// RelativePath is <date>/report_<SORTED_TICKERS>.md.
func RelativePath(date string, tickers []string) string {
	sorted := make([]string, len(tickers))
	copy(sorted, tickers)
	sort.Strings(sorted)
	return filepath.Join(date, "report_"+strings.Join(sorted, "_")+".md")
}

// Save writes the markdown report, overwriting a same-day report for the same
// tickers, and returns its path. A failed HTML rendering is only logged.
func (s *Store) Save(ctx context.Context, date string, tickers []string, markdown string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.Dir, RelativePath(date, tickers))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	log.Info().Str("path", path).Msg("report saved")

	if s.HTMLEnabled {
		htmlPath := strings.TrimSuffix(path, ".md") + ".html"
		if err := s.writeHTML(htmlPath, markdown); err != nil {
			log.Warn().Err(err).Str("path", htmlPath).Msg("html report failed")
		}
	}
	return path, nil
}

func (s *Store) writeHTML(path, markdown string) error {
	var body bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &body); err != nil {
		return fmt.Errorf("convert markdown: %w", err)
	}
	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Market Research Report</title></head><body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body></html>\n")
	return os.WriteFile(path, page.Bytes(), 0o644)
}
