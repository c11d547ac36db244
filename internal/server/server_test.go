package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketResearch/internal/analysis"
	"MarketResearch/internal/collector"
	"MarketResearch/internal/model"
	"MarketResearch/internal/recorder"
	"MarketResearch/internal/report"
	"MarketResearch/internal/runner"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	col := collector.NewCollector(&collector.MockNewsSource{}, nil, &collector.MockPriceSource{}, 1)
	r := runner.New(col, analysis.NewEngine(analysis.Options{}), rec, report.NewStore(filepath.Join(dir, "reports"), false), nil)
	return New(r, rec)
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(newTestServer(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRunAndStatus(t *testing.T) {
	s := newTestServer(t)

	w := do(s, http.MethodPost, "/run", `{"tickers":["aapl","msft"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp runResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Len(t, resp.Artifacts, 1)
	assert.Contains(t, resp.Artifacts[0], "report_AAPL_MSFT.md")
	assert.Equal(t, "plan: fetch news & prices", resp.Notes[0])
	assert.NotNil(t, resp.Errors)
	assert.Empty(t, resp.Errors)

	w = do(s, http.MethodGet, "/runs/"+resp.RunID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var run model.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, model.StatusCompleted, run.Status)
	assert.Equal(t, 24, run.TimeWindowHours)
	assert.Equal(t, resp.Artifacts, run.Artifacts)

	w = do(s, http.MethodGet, "/reports", "")
	require.Equal(t, http.StatusOK, w.Code)
	var reports []model.ReportRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, resp.RunID, reports[0].RunID)

	w = do(s, http.MethodGet, "/reports?path="+reports[0].Path, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	assert.Len(t, reports, 1)

	w = do(s, http.MethodGet, "/reports?date=1999-01-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestRun_Validation(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"tickers":`, http.StatusBadRequest},
		{"missing tickers", `{}`, http.StatusUnprocessableEntity},
		{"empty tickers", `{"tickers":[]}`, http.StatusUnprocessableEntity},
		{"bad symbol", `{"tickers":["AAPL1"]}`, http.StatusUnprocessableEntity},
		{"too long", `{"tickers":["ABCDEFG"]}`, http.StatusUnprocessableEntity},
		{"too many", `{"tickers":["A","B","C","D","E","F","G","H","I","J","K"]}`, http.StatusUnprocessableEntity},
		{"zero hours", `{"tickers":["AAPL"],"hours":0}`, http.StatusUnprocessableEntity},
		{"hours too big", `{"tickers":["AAPL"],"hours":169}`, http.StatusUnprocessableEntity},
		{"dotted ok", `{"tickers":["brk.b"],"hours":168}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodPost, "/run", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestGetRun_Errors(t *testing.T) {
	s := newTestServer(t)

	w := do(s, http.MethodGet, "/runs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodGet, "/runs/6f1c2d1e-8a7b-4c3d-9e0f-112233445566", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewValidator_TickerRule(t *testing.T) {
	v := newValidator()
	assert.NoError(t, v.Var("BRK.B", "ticker"))
	assert.Error(t, v.Var("aapl", "ticker"))
	assert.Error(t, v.Var("TOOLONGX", "ticker"))
	assert.NoError(t, v.Var([]string{"AAPL", "MSFT"}, "dive,ticker"))
}
