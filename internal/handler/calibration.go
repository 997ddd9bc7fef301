package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"preddesk/internal/calibration"
	"preddesk/internal/repository"
)

type CalibrationHandler struct {
	Repo        repository.Repository
	Accumulator *calibration.Accumulator
}

func (h *CalibrationHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/calibration", h.summary)
	r.GET("/api/v1/calibration/records", h.listRecords)
}

// @Summary Calibration summary: overall and per-desk mean Brier
// @Tags calibration
// @Success 200 {object} map[string]any
// @Router /api/v1/calibration [get]
func (h *CalibrationHandler) summary(c *gin.Context) {
	if h.Repo == nil || h.Accumulator == nil {
		Error(c, http.StatusInternalServerError, "calibration unavailable", nil)
		return
	}
	overview, err := h.Repo.CalibrationOverview(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	desks, err := h.Accumulator.DeskSummary(c.Request.Context(), 500)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{
		"count":      overview.Count,
		"mean_brier": overview.MeanBrier,
		"desks":      desks,
	}, nil)
}

// @Summary List calibration records
// @Tags calibration
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} map[string]any
// @Router /api/v1/calibration/records [get]
func (h *CalibrationHandler) listRecords(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListCalibrationRecords(c.Request.Context(), repository.ListCalibrationParams{
		Limit:  intQuery(c, "limit", 100),
		Offset: intQuery(c, "offset", 0),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
