package analysis

import (
	"testing"

	"MarketResearch/internal/model"
)

func TestSentiment_Counts(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"", 0.0},
		{"Apple announces new product", 0.0},
		{"Shares up on strong demand", 2.0 / 3.0},
		{"Profit miss and weak guidance", -2.0 / 3.0},
		{"Gain then loss", 0.0},
		{"UP up Up up", 4.0 / 5.0},
		{"upgrade downturn", 0.0}, // whole words only
		{"Apple Earnings Beat Apple beats earnings expectations", 0.5},
	}
	for _, tt := range tests {
		if got := Sentiment(tt.text); got != tt.want {
			t.Errorf("Sentiment(%q): expected %f, got %f", tt.text, tt.want, got)
		}
	}
}

func TestSentiment_Bounded(t *testing.T) {
	texts := []string{
		"up up up up up up up up up up up up up up up up up up up up",
		"down fall drop loss miss weak bearish negative decline down fall drop",
		"\xff\xfe garbage",
	}
	for _, text := range texts {
		s := Sentiment(text)
		if s < -1 || s > 1 {
			t.Errorf("Sentiment(%q) = %f out of [-1, 1]", text, s)
		}
	}
}

func TestLegacySentiment_Constant(t *testing.T) {
	want := -1.0 / 18.0
	for _, text := range []string{"", "strong beat", "weak miss"} {
		if got := LegacySentiment(text); got != want {
			t.Errorf("LegacySentiment(%q): expected %f, got %f", text, want, got)
		}
	}
}

func TestScoreSentiment_Legacy(t *testing.T) {
	in := []model.Article{{Ticker: "A", Title: "strong gain", URL: "1"}}
	if got := ScoreSentiment(in, false); got[0].Sentiment.Float64 != 2.0/3.0 {
		t.Errorf("expected 2/3, got %f", got[0].Sentiment.Float64)
	}
	if got := ScoreSentiment(in, true); got[0].Sentiment.Float64 != -1.0/18.0 {
		t.Errorf("expected -1/18, got %f", got[0].Sentiment.Float64)
	}
	if in[0].Sentiment.Valid {
		t.Error("input slice must not be modified")
	}
}
