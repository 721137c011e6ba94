package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/swfung/dualcannon/pkg/httputil"
	"github.com/swfung/dualcannon/pkg/logger"
)

// HTTPGateway talks to the local trade gateway's REST API. The
// gateway process owns the broker session; this client only submits
// orders and reads account state.
type HTTPGateway struct {
	http    *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewHTTPGateway creates a trade gateway client.
func NewHTTPGateway(httpClient *httputil.Client, baseURL string, log *logger.Logger) *HTTPGateway {
	return &HTTPGateway{http: httpClient, baseURL: baseURL, logger: log}
}

type orderRequest struct {
	Account    string  `json:"account"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	CashAmount float64 `json:"cash_amount,omitempty"`
	Qty        int64   `json:"qty,omitempty"`
}

type orderResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

func (g *HTTPGateway) Buy(ctx context.Context, account, symbol string, cashAmount float64) (bool, error) {
	return g.placeOrder(ctx, orderRequest{
		Account: account, Symbol: symbol, Side: "buy", CashAmount: cashAmount,
	})
}

func (g *HTTPGateway) Sell(ctx context.Context, account, symbol string, shareQty int64) (bool, error) {
	return g.placeOrder(ctx, orderRequest{
		Account: account, Symbol: symbol, Side: "sell", Qty: shareQty,
	})
}

func (g *HTTPGateway) placeOrder(ctx context.Context, req orderRequest) (bool, error) {
	resp, err := g.http.PostJSON(ctx, g.baseURL+"/api/v1/orders", req)
	if err != nil {
		return false, fmt.Errorf("submit %s order for %s: %w", req.Side, req.Symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("submit %s order for %s: status %d", req.Side, req.Symbol, resp.StatusCode)
	}

	var or orderResponse
	if err := decodeBody(resp.Body, &or); err != nil {
		return false, fmt.Errorf("decode order response: %w", err)
	}

	if !or.Accepted && or.Message != "" {
		g.logger.WithFields(map[string]interface{}{
			"symbol": req.Symbol,
			"side":   req.Side,
			"reason": or.Message,
		}).Info("Order rejected by gateway")
	}
	return or.Accepted, nil
}

func (g *HTTPGateway) AvailableCash(ctx context.Context, account string) (float64, error) {
	var out struct {
		Cash float64 `json:"cash"`
	}
	if err := g.getJSON(ctx, fmt.Sprintf("/api/v1/accounts/%s/cash", account), &out); err != nil {
		return 0, err
	}
	return out.Cash, nil
}

func (g *HTTPGateway) Positions(ctx context.Context, account string) (map[string]int64, error) {
	var out struct {
		Positions map[string]int64 `json:"positions"`
	}
	if err := g.getJSON(ctx, fmt.Sprintf("/api/v1/accounts/%s/positions", account), &out); err != nil {
		return nil, err
	}
	if out.Positions == nil {
		out.Positions = make(map[string]int64)
	}
	return out.Positions, nil
}

func (g *HTTPGateway) PositionCost(ctx context.Context, account, symbol string) (float64, bool, error) {
	var out struct {
		Cost  float64 `json:"cost"`
		Found bool    `json:"found"`
	}
	path := fmt.Sprintf("/api/v1/accounts/%s/positions/%s/cost", account, symbol)
	if err := g.getJSON(ctx, path, &out); err != nil {
		return 0, false, err
	}
	return out.Cost, out.Found, nil
}

func (g *HTTPGateway) getJSON(ctx context.Context, path string, dest interface{}) error {
	resp, err := g.http.Get(ctx, g.baseURL+path)
	if err != nil {
		return fmt.Errorf("gateway GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway GET %s: status %d", path, resp.StatusCode)
	}
	return decodeBody(resp.Body, dest)
}

func decodeBody(body io.Reader, dest interface{}) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
