package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/guregu/null/v6"
	"github.com/phuslu/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"MarketResearch/internal/model"
)

// AlphaVantageSource implements PriceSource using the GLOBAL_QUOTE endpoint.
type AlphaVantageSource struct {
	BaseURL string
	APIKey  string
	Client  *resty.Client
	Limiter *rate.Limiter
}

// NewAlphaVantageSource creates an Alpha Vantage price source limited to
// requestsPerMinute calls.
func NewAlphaVantageSource(apiKey string, requestsPerMinute int, opts HTTPOptions) *AlphaVantageSource {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &AlphaVantageSource{
		BaseURL: "https://www.alphavantage.co",
		APIKey:  apiKey,
		Client:  newClient(opts),
		Limiter: rate.NewLimiter(limit, 1),
	}
}

func (s *AlphaVantageSource) Name() string { return "alphavantage" }

type globalQuoteResponse struct {
	Quote       map[string]string `json:"Global Quote"`
	Note        string            `json:"Note"`
	Information string            `json:"Information"`
}

// FetchPrices requests one quote per ticker. Throttled or empty responses are
// skipped without failing the batch.
func (s *AlphaVantageSource) FetchPrices(ctx context.Context, tickers []string) ([]model.PriceSnapshot, error) {
	if s.APIKey == "" {
		log.Warn().Msg("ALPHAVANTAGE_API_KEY not set, returning empty prices")
		return nil, nil
	}

	var snaps []model.PriceSnapshot
	var errs []error
	for _, ticker := range tickers {
		if err := s.Limiter.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("alphavantage %s: %w", ticker, err))
			break
		}
		snap, ok, err := s.quote(ctx, ticker)
		if err != nil {
			log.Error().Err(err).Str("ticker", ticker).Msg("alphavantage quote failed")
			errs = append(errs, fmt.Errorf("alphavantage %s: %w", ticker, err))
			continue
		}
		if ok {
			snaps = append(snaps, snap)
		}
	}
	return snaps, errors.Join(errs...)
}

func (s *AlphaVantageSource) quote(ctx context.Context, ticker string) (model.PriceSnapshot, bool, error) {
	var result globalQuoteResponse
	resp, err := s.Client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   ticker,
			"apikey":   s.APIKey,
		}).
		SetResult(&result).
		Get(s.BaseURL + "/query")
	if err != nil {
		return model.PriceSnapshot{}, false, err
	}
	if resp.IsError() {
		return model.PriceSnapshot{}, false, fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	if msg := result.Note + result.Information; msg != "" {
		log.Warn().Str("ticker", ticker).Str("message", msg).Msg("alphavantage throttled")
		return model.PriceSnapshot{}, false, nil
	}
	if len(result.Quote) == 0 {
		log.Warn().Str("ticker", ticker).Msg("alphavantage returned empty quote")
		return model.PriceSnapshot{}, false, nil
	}
	return parseGlobalQuote(ticker, result.Quote), true, nil
}

// parseGlobalQuote maps the "01. symbol" style keys onto a snapshot.
func parseGlobalQuote(ticker string, q map[string]string) model.PriceSnapshot {
	snap := model.PriceSnapshot{
		Ticker: ticker,
		AsOf:   time.Now().UTC(),
		Open:   decimalField(q, "02. open"),
		High:   decimalField(q, "03. high"),
		Low:    decimalField(q, "04. low"),
		Close:  decimalField(q, "05. price"),
		Volume: decimalField(q, "06. volume"),
	}
	if t, ok := parseTime(q["07. latest trading day"]); ok {
		snap.AsOf = t
	}

	prev := decimalField(q, "08. previous close")
	if prev.Valid && prev.Float64 > 0 && snap.Close.Valid {
		snap.D1Change = null.FloatFrom((snap.Close.Float64 - prev.Float64) / prev.Float64 * 100)
	}
	return snap
}

func decimalField(q map[string]string, key string) null.Float {
	d, err := decimal.NewFromString(strings.TrimSpace(q[key]))
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(d.InexactFloat64())
}
