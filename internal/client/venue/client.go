package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

const DefaultHost = "https://gamma-api.polymarket.com"

type Client struct {
	host       string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("venue API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string, requestsPerSec float64, burst int) *Client {
	if host == "" {
		host = DefaultHost
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if requestsPerSec <= 0 {
		requestsPerSec = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), burst),
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// ListMarkets fetches one page of open binary markets.
func (c *Client) ListMarkets(ctx context.Context, limit, offset int) ([]Market, error) {
	query := url.Values{}
	query.Set("active", "true")
	query.Set("closed", "false")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	body, err := c.doRequest(ctx, "/markets", query)
	if err != nil {
		return nil, err
	}
	return parseMarkets(body)
}

func (c *Client) GetMarket(ctx context.Context, marketID string) (*Market, error) {
	if marketID == "" {
		return nil, fmt.Errorf("market_id is required")
	}
	body, err := c.doRequest(ctx, "/markets/"+url.PathEscape(marketID), nil)
	if err != nil {
		return nil, err
	}
	var market Market
	if err := json.Unmarshal(body, &market); err != nil {
		return nil, fmt.Errorf("failed to decode market: %w", err)
	}
	market.raw = body
	return &market, nil
}

func parseMarkets(body []byte) ([]Market, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode market list: %w", err)
	}
	markets := make([]Market, 0, len(raws))
	for _, raw := range raws {
		var market Market
		if err := json.Unmarshal(raw, &market); err != nil {
			continue
		}
		market.raw = raw
		markets = append(markets, market)
	}
	return markets, nil
}
