package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v6"
	"github.com/phuslu/log"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"MarketResearch/internal/calculator"
	"MarketResearch/internal/model"
)

// volumeLookback is the number of prior sessions the volume z-score compares against.
const volumeLookback = 20

// BarsFunc loads daily bars for a symbol between start and end.
type BarsFunc func(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)

// YahooSource implements PriceSource using Yahoo Finance daily charts.
type YahooSource struct {
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	Days      int
	Bars      BarsFunc
	now       func() time.Time
}

// NewYahooSource creates a Yahoo Finance price source.
func NewYahooSource() *YahooSource {
	return &YahooSource{
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		Days: 45,
		Bars: chartBars,
		now:  time.Now,
	}
}

func (s *YahooSource) Name() string { return "yahoo" }

func (s *YahooSource) yahooSymbol(symbol string) string {
	if mapped, ok := s.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// FetchPrices builds one snapshot per ticker from recent daily bars.
func (s *YahooSource) FetchPrices(ctx context.Context, tickers []string) ([]model.PriceSnapshot, error) {
	end := s.now()
	start := end.AddDate(0, 0, -s.Days)

	var snaps []model.PriceSnapshot
	var errs []error
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("yahoo %s: %w", ticker, err))
			break
		}
		bars, err := s.Bars(ctx, s.yahooSymbol(ticker), start, end)
		if err != nil {
			log.Error().Err(err).Str("ticker", ticker).Msg("yahoo chart failed")
			errs = append(errs, fmt.Errorf("yahoo %s: %w", ticker, err))
			continue
		}
		snap, ok := SnapshotFromBars(ticker, bars)
		if !ok {
			errs = append(errs, fmt.Errorf("yahoo %s: no data returned", ticker))
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, errors.Join(errs...)
}

// SnapshotFromBars summarises the latest bar with 1- and 5-session percent
// changes and the volume z-score. Metrics that cannot be computed stay null.
func SnapshotFromBars(ticker string, bars []model.OHLCV) (model.PriceSnapshot, bool) {
	if len(bars) == 0 {
		return model.PriceSnapshot{}, false
	}
	sorted := make([]model.OHLCV, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	last := sorted[len(sorted)-1]
	snap := model.PriceSnapshot{
		Ticker: ticker,
		AsOf:   last.Time,
		Open:   null.FloatFrom(last.Open),
		High:   null.FloatFrom(last.High),
		Low:    null.FloatFrom(last.Low),
		Close:  null.FloatFrom(last.Close),
		Volume: null.FloatFrom(last.Volume),
	}
	if v, err := calculator.ChangeOverBars(sorted, 1); err == nil {
		snap.D1Change = null.FloatFrom(v)
	}
	if v, err := calculator.ChangeOverBars(sorted, 5); err == nil {
		snap.D5Change = null.FloatFrom(v)
	}
	if v, err := calculator.VolumeZScore(sorted, volumeLookback); err == nil {
		snap.VolZ = null.FloatFrom(v)
	}
	return snap, true
}

// chartBars fetches one chart. finance-go takes no context, so cancellation is
// only observed before the request and between bars.
func chartBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var bars []model.OHLCV
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar := iter.Bar()
		if bar.Close.IsZero() && bar.Open.IsZero() {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(int64(bar.Timestamp), 0),
			Open:   bar.Open.InexactFloat64(),
			High:   bar.High.InexactFloat64(),
			Low:    bar.Low.InexactFloat64(),
			Close:  bar.Close.InexactFloat64(),
			Volume: float64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}
