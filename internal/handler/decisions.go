package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"preddesk/internal/repository"
)

type DecisionHandler struct {
	Repo repository.Repository
}

func (h *DecisionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/decisions")
	group.GET("", h.listDecisions)
	group.GET("/:id", h.getDecision)
}

// @Summary List edge decisions
// @Tags decisions
// @Param market_id query string false "filter by market"
// @Param scan_cycle_id query string false "filter by scan cycle"
// @Param tradeable query bool false "filter by tradeable flag"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} map[string]any
// @Router /api/v1/decisions [get]
func (h *DecisionHandler) listDecisions(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListDecisionsParams{
		Limit:       intQuery(c, "limit", 50),
		Offset:      intQuery(c, "offset", 0),
		MarketID:    stringQueryPtr(c, "market_id"),
		ScanCycleID: stringQueryPtr(c, "scan_cycle_id"),
		Tradeable:   boolQueryPtr(c, "tradeable"),
		OrderBy: parseOrder(c.Query("sort_by"), map[string]string{
			"created_at": "created_at",
			"edge":       "edge",
		}),
		Asc: boolPtr(strings.EqualFold(c.Query("order"), "asc")),
	}

	items, err := h.Repo.ListEdgeDecisions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountEdgeDecisions(c.Request.Context(), repository.ListDecisionsParams{
		MarketID:    params.MarketID,
		ScanCycleID: params.ScanCycleID,
		Tradeable:   params.Tradeable,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get one edge decision
// @Tags decisions
// @Param id path int true "decision id"
// @Success 200 {object} map[string]any
// @Router /api/v1/decisions/{id} [get]
func (h *DecisionHandler) getDecision(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetEdgeDecisionByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "decision not found", nil)
		return
	}
	Ok(c, item, nil)
}
