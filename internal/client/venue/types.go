package venue

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Market is the venue's market payload. Numeric fields arrive as strings in
// several places, so parsing is deferred to helpers.
type Market struct {
	ID            string  `json:"id"`
	Question      string  `json:"question"`
	Slug          string  `json:"slug"`
	Category      string  `json:"category"`
	OutcomePrices string  `json:"outcomePrices"`
	BestBid       float64 `json:"bestBid"`
	BestAsk       float64 `json:"bestAsk"`
	Volume24hr    float64 `json:"volume24hr"`
	Liquidity     string  `json:"liquidity"`
	EndDateISO    string  `json:"endDate"`
	Active        bool    `json:"active"`
	Closed        bool    `json:"closed"`

	raw json.RawMessage
}

// Raw returns the original JSON body for audit storage.
func (m *Market) Raw() json.RawMessage {
	return m.raw
}

// Prices parses the outcome price pair. The venue encodes it as a JSON array
// of strings inside a string field.
func (m *Market) Prices() (yes, no float64, err error) {
	var pair []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &pair); err != nil {
		return 0, 0, fmt.Errorf("parse outcome prices %q: %w", m.OutcomePrices, err)
	}
	if len(pair) < 2 {
		return 0, 0, fmt.Errorf("outcome prices %q: need two outcomes", m.OutcomePrices)
	}
	yes, err = strconv.ParseFloat(pair[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse yes price %q: %w", pair[0], err)
	}
	no, err = strconv.ParseFloat(pair[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse no price %q: %w", pair[1], err)
	}
	return yes, no, nil
}

// Spread is best ask minus best bid when both are present, else 0.
func (m *Market) SpreadValue() float64 {
	if m.BestAsk > 0 && m.BestBid > 0 && m.BestAsk > m.BestBid {
		return m.BestAsk - m.BestBid
	}
	return 0
}

func (m *Market) LiquidityValue() float64 {
	v, err := strconv.ParseFloat(m.Liquidity, 64)
	if err != nil {
		return 0
	}
	return v
}

func (m *Market) EndDate() *time.Time {
	if m.EndDateISO == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, m.EndDateISO)
	if err != nil {
		return nil
	}
	return &t
}

// ResolvedOutcome reads the settled outcome off a closed market: after
// resolution the venue pins the winning outcome's price to ~1.
func (m *Market) ResolvedOutcome() (outcome bool, ok bool) {
	if !m.Closed {
		return false, false
	}
	yes, no, err := m.Prices()
	if err != nil {
		return false, false
	}
	switch {
	case yes >= 0.99:
		return true, true
	case no >= 0.99:
		return false, true
	default:
		return false, false
	}
}

// PriceEvent is one message off the market websocket channel.
type PriceEvent struct {
	EventType string `json:"event_type"`
	Market    string `json:"market"`
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
	Timestamp string `json:"timestamp"`
}

func (e PriceEvent) PriceValue() (float64, bool) {
	v, err := strconv.ParseFloat(e.Price, 64)
	if err != nil || v < 0 || v > 1 {
		return 0, false
	}
	return v, true
}
