package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"preddesk/internal/repository"
)

type MarketHandler struct {
	Repo repository.Repository
}

func (h *MarketHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/markets")
	group.GET("", h.listMarkets)
	group.GET("/:id", h.getMarket)
	group.GET("/:id/estimates", h.listEstimates)
	r.GET("/api/v1/scan-cycles", h.listScanCycles)
}

// @Summary List tracked markets
// @Tags markets
// @Param status query string false "filter by status"
// @Param category query string false "filter by category"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} map[string]any
// @Router /api/v1/markets [get]
func (h *MarketHandler) listMarkets(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListMarketsParams{
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		Status:   stringQueryPtr(c, "status"),
		Category: stringQueryPtr(c, "category"),
		OrderBy: parseOrder(c.Query("sort_by"), map[string]string{
			"last_seen_at":    "last_seen_at",
			"last_scanned_at": "last_scanned_at",
			"end_date":        "end_date",
		}),
		Asc: boolPtr(strings.EqualFold(c.Query("order"), "asc")),
	}
	items, err := h.Repo.ListMarkets(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountMarkets(c.Request.Context(), repository.ListMarketsParams{
		Status:   params.Status,
		Category: params.Category,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get one market
// @Tags markets
// @Param id path string true "market id"
// @Success 200 {object} map[string]any
// @Router /api/v1/markets/{id} [get]
func (h *MarketHandler) getMarket(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetMarketByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "market not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary List desk estimates for a market
// @Tags markets
// @Param id path string true "market id"
// @Param phase query string false "initial or final"
// @Success 200 {object} map[string]any
// @Router /api/v1/markets/{id}/estimates [get]
func (h *MarketHandler) listEstimates(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	items, err := h.Repo.ListEstimates(c.Request.Context(), repository.ListEstimatesParams{
		Limit:    intQuery(c, "limit", 100),
		Offset:   intQuery(c, "offset", 0),
		MarketID: &id,
		Phase:    stringQueryPtr(c, "phase"),
		Desk:     stringQueryPtr(c, "desk"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary List scan cycles
// @Tags markets
// @Param limit query int false "page size"
// @Success 200 {object} map[string]any
// @Router /api/v1/scan-cycles [get]
func (h *MarketHandler) listScanCycles(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListScanCycles(c.Request.Context(), intQuery(c, "limit", 20))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
