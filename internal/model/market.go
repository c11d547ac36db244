package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSnapshot is a point-in-time price observation for one ticker.
// A failed fetch may leave any of the numeric fields null.
type PriceSnapshot struct {
	Ticker   string     `json:"ticker"`
	AsOf     time.Time  `json:"as_of"`
	Open     null.Float `json:"open"`
	Close    null.Float `json:"close"`
	High     null.Float `json:"high"`
	Low      null.Float `json:"low"`
	Volume   null.Float `json:"volume"`
	D1Change null.Float `json:"d1_change"` // percent vs previous close
	D5Change null.Float `json:"d5_change"` // percent vs close five sessions back
	VolZ     null.Float `json:"vol_z"`     // volume z-score vs recent sessions
}
