package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/swfung/dualcannon/internal/execution"
	"github.com/swfung/dualcannon/internal/session"
	"github.com/swfung/dualcannon/pkg/logger"
)

// StatusHandler exposes the live pipeline state.
type StatusHandler struct {
	driver *session.Driver
	orders *execution.Repository
	logger *logger.Logger
}

// NewStatusHandler creates the status handler. orders may be nil.
func NewStatusHandler(driver *session.Driver, orders *execution.Repository, log *logger.Logger) *StatusHandler {
	return &StatusHandler{driver: driver, orders: orders, logger: log}
}

// GetWatchlist returns today's frozen watchlist.
// GET /api/v1/watchlist
func (h *StatusHandler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	st := h.driver.State()
	if st == nil || st.Watchlist == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"built":   false,
			"entries": []interface{}{},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"built":      true,
		"trade_date": st.Watchlist.TradeDate,
		"built_at":   st.Watchlist.BuiltAt,
		"entries":    st.Watchlist.Entries,
	})
}

// GetPositions returns the current position records.
// GET /api/v1/positions
func (h *StatusHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	st := h.driver.State()
	if st == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"positions": []interface{}{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":      st.Date,
		"positions": st.Book.Positions,
		"pending":   st.Book.Pending,
	})
}

// GetPatterns returns per-symbol matcher progress.
// GET /api/v1/patterns
func (h *StatusHandler) GetPatterns(w http.ResponseWriter, r *http.Request) {
	st := h.driver.State()
	if st == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"patterns": map[string]interface{}{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":     st.Date,
		"patterns": st.Patterns,
	})
}

// GetOrders returns the newest audited orders.
// GET /api/v1/orders?limit=50
func (h *StatusHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"orders": []interface{}{}})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	orders, err := h.orders.RecentOrders(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Order query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "order query failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
