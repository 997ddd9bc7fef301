package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"preddesk/internal/client/venue"
	"preddesk/internal/config"
)

// Quote is a venue market normalized into the shape the pipeline consumes.
type Quote struct {
	ID        string
	Question  string
	Slug      string
	Category  string
	YesPrice  float64
	NoPrice   float64
	Spread    float64
	Volume24h float64
	Liquidity float64
	EndDate   *time.Time
	Raw       json.RawMessage
}

type Resolution struct {
	Resolved bool
	Outcome  bool
}

type Provider interface {
	ListMarkets(ctx context.Context) ([]Quote, error)
	GetMarket(ctx context.Context, id string) (*Quote, error)
	CheckResolution(ctx context.Context, id string) (Resolution, error)
}

// VenueProvider serves quotes from the venue's REST API, paging until the
// venue runs dry or the configured page cap is hit.
type VenueProvider struct {
	client    *venue.Client
	pageLimit int
	maxPages  int
	logger    *zap.Logger
}

func NewVenueProvider(cfg config.VenueConfig, scanner config.ScannerConfig, logger *zap.Logger) *VenueProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &VenueProvider{
		client:    venue.NewClient(httpClient, cfg.BaseURL, cfg.RequestsPerSec, cfg.RequestBurst),
		pageLimit: scanner.PageLimit,
		maxPages:  scanner.MaxPages,
		logger:    logger,
	}
}

func (p *VenueProvider) ListMarkets(ctx context.Context) ([]Quote, error) {
	var quotes []Quote
	for page := 0; page < p.maxPages; page++ {
		markets, err := p.client.ListMarkets(ctx, p.pageLimit, page*p.pageLimit)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			p.logger.Warn("market page fetch failed, keeping earlier pages",
				zap.Int("page", page), zap.Error(err))
			break
		}
		for i := range markets {
			if quote, ok := toQuote(&markets[i]); ok {
				quotes = append(quotes, quote)
			}
		}
		if len(markets) < p.pageLimit {
			break
		}
	}
	return quotes, nil
}

func (p *VenueProvider) GetMarket(ctx context.Context, id string) (*Quote, error) {
	market, err := p.client.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	quote, ok := toQuote(market)
	if !ok {
		return nil, nil
	}
	return &quote, nil
}

func (p *VenueProvider) CheckResolution(ctx context.Context, id string) (Resolution, error) {
	market, err := p.client.GetMarket(ctx, id)
	if err != nil {
		return Resolution{}, err
	}
	outcome, ok := market.ResolvedOutcome()
	if !ok {
		return Resolution{}, nil
	}
	return Resolution{Resolved: true, Outcome: outcome}, nil
}

func toQuote(m *venue.Market) (Quote, bool) {
	yes, no, err := m.Prices()
	if err != nil {
		return Quote{}, false
	}
	category := m.Category
	if category == "" {
		category = GuessCategory(m.Question)
	}
	return Quote{
		ID:        m.ID,
		Question:  m.Question,
		Slug:      m.Slug,
		Category:  category,
		YesPrice:  yes,
		NoPrice:   no,
		Spread:    m.SpreadValue(),
		Volume24h: m.Volume24hr,
		Liquidity: m.LiquidityValue(),
		EndDate:   m.EndDate(),
		Raw:       m.Raw(),
	}, true
}
