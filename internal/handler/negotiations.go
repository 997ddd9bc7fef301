package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"preddesk/internal/repository"
)

type NegotiationHandler struct {
	Repo repository.Repository
}

func (h *NegotiationHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/negotiations")
	group.GET("", h.listNegotiations)
	group.GET("/:id", h.getNegotiation)
}

// @Summary List negotiation records
// @Tags negotiations
// @Param market_id query string false "filter by market"
// @Param termination_reason query string false "filter by termination reason"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} map[string]any
// @Router /api/v1/negotiations [get]
func (h *NegotiationHandler) listNegotiations(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListNegotiationsParams{
		Limit:             intQuery(c, "limit", 50),
		Offset:            intQuery(c, "offset", 0),
		MarketID:          stringQueryPtr(c, "market_id"),
		TerminationReason: stringQueryPtr(c, "termination_reason"),
		Asc:               boolPtr(strings.EqualFold(c.Query("order"), "asc")),
	}

	items, err := h.Repo.ListNegotiations(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountNegotiations(c.Request.Context(), repository.ListNegotiationsParams{
		MarketID:          params.MarketID,
		TerminationReason: params.TerminationReason,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get one negotiation transcript
// @Tags negotiations
// @Param id path int true "negotiation id"
// @Success 200 {object} map[string]any
// @Router /api/v1/negotiations/{id} [get]
func (h *NegotiationHandler) getNegotiation(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetNegotiationByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "negotiation not found", nil)
		return
	}
	Ok(c, item, nil)
}
