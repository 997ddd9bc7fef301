package marketdata

import (
	"strings"
	"testing"
	"time"

	"preddesk/internal/config"
)

func testScannerConfig() config.ScannerConfig {
	return config.ScannerConfig{
		MinVolume24h:    200,
		MaxDaysToExpiry: 30,
		MaxSpread:       0.15,
	}
}

func fixedFilter(now time.Time) *Filter {
	f := NewFilter(testScannerConfig())
	f.now = func() time.Time { return now }
	return f
}

func TestAccept(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	in10 := now.Add(10 * 24 * time.Hour)
	in60 := now.Add(60 * 24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	cases := []struct {
		name   string
		quote  Quote
		ok     bool
		reason string
	}{
		{"good", Quote{Volume24h: 500, EndDate: &in10, Spread: 0.05, YesPrice: 0.45}, true, ""},
		{"thin volume", Quote{Volume24h: 100, EndDate: &in10, Spread: 0.05, YesPrice: 0.45}, false, "volume"},
		{"no end date", Quote{Volume24h: 500, Spread: 0.05, YesPrice: 0.45}, false, "no end date"},
		{"expired", Quote{Volume24h: 500, EndDate: &past, Spread: 0.05, YesPrice: 0.45}, false, "expired"},
		{"too far out", Quote{Volume24h: 500, EndDate: &in60, Spread: 0.05, YesPrice: 0.45}, false, "days to expiry"},
		{"wide spread", Quote{Volume24h: 500, EndDate: &in10, Spread: 0.20, YesPrice: 0.45}, false, "spread"},
		{"decided yes", Quote{Volume24h: 500, EndDate: &in10, Spread: 0.05, YesPrice: 0.98}, false, "tradeable band"},
		{"decided no", Quote{Volume24h: 500, EndDate: &in10, Spread: 0.05, YesPrice: 0.02}, false, "tradeable band"},
	}

	f := fixedFilter(now)
	for _, tc := range cases {
		ok, reason := f.Accept(tc.quote)
		if ok != tc.ok {
			t.Fatalf("%s: ok=%v reason=%q want ok=%v", tc.name, ok, reason, tc.ok)
		}
		if !ok && !strings.Contains(reason, tc.reason) {
			t.Fatalf("%s: reason=%q want contains %q", tc.name, reason, tc.reason)
		}
	}
}

func TestGuessCategory(t *testing.T) {
	cases := []struct {
		question string
		want     string
	}{
		{"Will the president win the 2028 election?", "politics"},
		{"Will Bitcoin close above $100k this month?", "crypto"},
		{"Will the Chiefs win the NFL championship?", "sports"},
		{"Will the Fed announce a rate cut in June?", "economics"},
		{"Will SpaceX launch Starship before July?", "science-tech"},
		{"Will the movie break the box office record?", "entertainment"},
		{"Will it rain in Paris tomorrow?", "other"},
	}
	for _, tc := range cases {
		if got := GuessCategory(tc.question); got != tc.want {
			t.Fatalf("%q: got=%q want %q", tc.question, got, tc.want)
		}
	}
}
