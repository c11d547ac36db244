package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketResearch/internal/model"
)

func testNotifier(url string) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = url
	n.backoff = func(int) time.Duration { return time.Millisecond }
	return n
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, testNotifier(srv.URL).Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, testNotifier(srv.URL).SendWithRetry(context.Background(), "hi", 3))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := testNotifier(srv.URL).SendWithRetry(context.Background(), "hi", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 retries exhausted")
}

func TestPoll_DispatchesCommands(t *testing.T) {
	var replies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			assert.Equal(t, "7", r.URL.Query().Get("offset"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"ok":true,"result":[
				{"update_id":7,"message":{"text":" /status abc "}},
				{"update_id":8},
				{"update_id":9,"message":{"text":"/help"}}
			]}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			replies = append(replies, body["text"])
			fmt.Fprint(w, `{"ok":true}`)
		}
	}))
	defer srv.Close()

	var commands []string
	handler := func(_ context.Context, cmd string) string {
		commands = append(commands, cmd)
		if cmd == "/help" {
			return ""
		}
		return "reply:" + cmd
	}

	next, err := testNotifier(srv.URL).poll(context.Background(), 7, handler)
	require.NoError(t, err)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/status abc", "/help"}, commands)
	assert.Equal(t, []string{"reply:/status abc"}, replies)
}

func TestFormatRunDigest(t *testing.T) {
	state := &model.RunState{
		RunID:           "run-1",
		Tickers:         []string{"AAPL"},
		TimeWindowHours: 24,
		Artifacts:       []string{"data/reports/2025-01-10/report_AAPL.md"},
		Errors:          []model.StageError{{Stage: "prices", Err: errors.New("rate limited")}},
	}
	for i := 0; i < 7; i++ {
		state.Ranked = append(state.Ranked, model.Article{
			Ticker: "AAPL",
			Title:  fmt.Sprintf("A&B %d", i),
			URL:    fmt.Sprintf("https://x/%d", i),
			Impact: null.FloatFrom(float64(7 - i)),
		})
	}

	msg := FormatRunDigest(state)
	assert.Contains(t, msg, "AAPL")
	assert.Contains(t, msg, "5. [AAPL]")
	assert.NotContains(t, msg, "6. [AAPL]")
	assert.Contains(t, msg, "A&amp;B 0")
	assert.Contains(t, msg, "report_AAPL.md")
	assert.Contains(t, msg, "1 stage error(s)")
	assert.Contains(t, msg, "prices error: rate limited")
	assert.Contains(t, msg, "<code>run-1</code>")
}

func TestFormatRunStatus(t *testing.T) {
	finished := time.Date(2025, 1, 10, 7, 5, 0, 0, time.UTC)
	msg := FormatRunStatus(&model.Run{
		ID:         "run-1",
		Tickers:    []string{"AAPL", "MSFT"},
		Status:     model.StatusCompleted,
		StartedAt:  time.Date(2025, 1, 10, 7, 0, 0, 0, time.UTC),
		FinishedAt: &finished,
	})
	assert.Contains(t, msg, "Status: completed")
	assert.Contains(t, msg, "Tickers: AAPL, MSFT")
	assert.Contains(t, msg, "Finished: 2025-01-10 07:05")
}
