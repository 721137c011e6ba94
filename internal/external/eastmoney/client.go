package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/pkg/config"
	"github.com/swfung/dualcannon/pkg/httputil"
	"github.com/swfung/dualcannon/pkg/logger"
)

// Client talks to the Eastmoney quote endpoints over HTTP. All
// requests go through the shared paced client.
type Client struct {
	http    *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewClient creates an Eastmoney API client.
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		http:    httpClient,
		baseURL: cfg.Feed.QuoteBaseURL,
		logger:  log,
	}
}

// quoteResponse is the wire shape of the quote endpoint.
type quoteResponse struct {
	Data struct {
		Code   string  `json:"f57"`
		Price  float64 `json:"f43"`
		Open   float64 `json:"f46"`
		High   float64 `json:"f44"`
		Low    float64 `json:"f45"`
		Volume int64   `json:"f47"`
	} `json:"data"`
}

// Quote returns the latest trade price for symbol. ok=false when the
// market has no trade yet (price 0 outside the session).
func (c *Client) Quote(ctx context.Context, symbol string) (float64, bool, error) {
	url := fmt.Sprintf("%s/api/qt/stock/get?secid=%s&fields=f43,f44,f45,f46,f47,f57",
		c.baseURL, secID(symbol))

	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return 0, false, fmt.Errorf("quote request for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("quote request for %s: status %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, false, fmt.Errorf("read quote response: %w", err)
	}

	var qr quoteResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return 0, false, fmt.Errorf("decode quote response: %w", err)
	}

	// prices arrive scaled by 100
	price := qr.Data.Price / 100.0
	if price <= 0 {
		return 0, false, nil
	}
	return price, true, nil
}

// secID converts "600000.SH" to the provider's "1.600000" form
// (1 = Shanghai, 0 = Shenzhen).
func secID(symbol string) string {
	norm := contracts.NormalizeSymbol(symbol)
	if len(norm) < 9 {
		return "0." + norm
	}
	code, market := norm[:6], norm[7:]
	if market == "SH" {
		return "1." + code
	}
	return "0." + code
}
