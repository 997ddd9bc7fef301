package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"preddesk/internal/repository"
	"preddesk/internal/risk"
)

type LedgerHandler struct {
	Repo   repository.Repository
	Ledger *risk.Ledger
}

func (h *LedgerHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/ledger", h.getLedger)
	r.GET("/api/v1/positions", h.listPositions)
}

// @Summary Current risk ledger snapshot
// @Tags ledger
// @Success 200 {object} map[string]any
// @Router /api/v1/ledger [get]
func (h *LedgerHandler) getLedger(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	snap := h.Ledger.Snapshot()
	Ok(c, map[string]any{
		"bankroll":       snap.Bankroll.StringFixed(2),
		"committed":      snap.Committed.StringFixed(2),
		"available":      snap.Available.StringFixed(2),
		"open_positions": snap.OpenPositions,
		"daily_pnl":      snap.DailyPnL.StringFixed(2),
		"halted":         snap.Halted,
		"day":            snap.Day,
	}, nil)
}

// @Summary List positions
// @Tags ledger
// @Param status query string false "filter by status"
// @Param market_id query string false "filter by market"
// @Success 200 {object} map[string]any
// @Router /api/v1/positions [get]
func (h *LedgerHandler) listPositions(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListPositions(c.Request.Context(), repository.ListPositionsParams{
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		Status:   stringQueryPtr(c, "status"),
		MarketID: stringQueryPtr(c, "market_id"),
		Asc:      boolPtr(strings.EqualFold(c.Query("order"), "asc")),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
