package marketdata

import (
	"fmt"
	"strings"
	"time"

	"preddesk/internal/config"
)

// Price extremes where the market has effectively decided; there is no
// information left to trade on.
const (
	minTradeablePrice = 0.03
	maxTradeablePrice = 0.97
)

// Filter screens scanned markets for quality before they cost estimator
// calls: enough volume, near-enough expiry, sane spread, undecided price.
type Filter struct {
	cfg config.ScannerConfig
	now func() time.Time
}

func NewFilter(cfg config.ScannerConfig) *Filter {
	return &Filter{
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Accept returns the first failed check by name, for scan-cycle logging.
func (f *Filter) Accept(q Quote) (bool, string) {
	if q.Volume24h < float64(f.cfg.MinVolume24h) {
		return false, fmt.Sprintf("volume %.0f below %d", q.Volume24h, f.cfg.MinVolume24h)
	}
	if q.EndDate == nil {
		return false, "no end date"
	}
	days := q.EndDate.Sub(f.now()).Hours() / 24
	if days < 0 {
		return false, "already expired"
	}
	if days > float64(f.cfg.MaxDaysToExpiry) {
		return false, fmt.Sprintf("%.0f days to expiry beyond %d", days, f.cfg.MaxDaysToExpiry)
	}
	if q.Spread > f.cfg.MaxSpread {
		return false, fmt.Sprintf("spread %.3f above %.3f", q.Spread, f.cfg.MaxSpread)
	}
	if q.YesPrice <= minTradeablePrice || q.YesPrice >= maxTradeablePrice {
		return false, fmt.Sprintf("price %.3f outside tradeable band", q.YesPrice)
	}
	return true, ""
}

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"politics", []string{"election", "president", "senate", "congress", "governor", "vote", "nominee"}},
	{"crypto", []string{"bitcoin", "btc", "ethereum", "eth", "crypto", "solana", "token"}},
	{"sports", []string{"nfl", "nba", "mlb", "nhl", "championship", "cup", "match", "game", "win the"}},
	{"economics", []string{"fed", "inflation", "gdp", "rate cut", "rate hike", "recession", "cpi"}},
	{"science-tech", []string{"spacex", "launch", "ai ", "model", "openai", "nasa", "vaccine"}},
	{"entertainment", []string{"movie", "album", "oscar", "grammy", "box office", "season finale"}},
}

// GuessCategory assigns a category from question keywords when the venue
// doesn't supply one.
func GuessCategory(question string) string {
	lower := strings.ToLower(question)
	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				return entry.category
			}
		}
	}
	return "other"
}
