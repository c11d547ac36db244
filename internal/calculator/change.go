package calculator

import (
	"errors"
	"math"

	"MarketResearch/internal/model"
)

// ErrZeroBase is returned when a percentage change has no usable base value.
var ErrZeroBase = errors.New("base value is zero")

// PercentChange returns (to - from) / from * 100.
func PercentChange(from, to float64) (float64, error) {
	if from == 0 {
		return 0, ErrZeroBase
	}
	return (to - from) / from * 100, nil
}

// ChangeOverBars returns the percent change of the last close vs the close n bars earlier.
func ChangeOverBars(bars []model.OHLCV, n int) (float64, error) {
	if n <= 0 {
		return 0, errors.New("bar offset must be positive")
	}
	if len(bars) < n+1 {
		return 0, errors.New("not enough bars for change calculation")
	}
	closes := extractCloses(bars)
	return PercentChange(closes[len(closes)-1-n], closes[len(closes)-1])
}

// ZScore returns how many standard deviations x sits from the mean of values.
func ZScore(values []float64, x float64) (float64, error) {
	if len(values) < 2 {
		return 0, errors.New("not enough data for z-score")
	}
	mean, err := CalculateSMA(values, len(values))
	if err != nil {
		return 0, err
	}
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(len(values)-1))
	if std == 0 {
		return 0, errors.New("zero variance")
	}
	return (x - mean) / std, nil
}

// VolumeZScore scores the last bar's volume against the lookback bars before it.
func VolumeZScore(bars []model.OHLCV, lookback int) (float64, error) {
	if lookback < 2 {
		return 0, errors.New("lookback must be at least 2")
	}
	if len(bars) < lookback+1 {
		return 0, errors.New("not enough bars for volume z-score")
	}
	vols := extractVolumes(bars)
	last := vols[len(vols)-1]
	return ZScore(vols[len(vols)-1-lookback:len(vols)-1], last)
}
