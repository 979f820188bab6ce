package handler

import (
	"errors"
	"net/http"
	"strings"

	"fxseries/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type GetStatsResponse struct {
	Column string          `json:"column" example:"USD/PLN"`
	Count  int             `json:"count" example:"61"`
	Mean   decimal.Decimal `json:"mean" swaggertype:"string" example:"4.01"`
	Median decimal.Decimal `json:"median" swaggertype:"string" example:"4.01"`
	Min    decimal.Decimal `json:"min" swaggertype:"string" example:"4.00"`
	Max    decimal.Decimal `json:"max" swaggertype:"string" example:"4.02"`
}

// GetStats godoc
// @Summary Get column statistics
// @Description Mean, median, min and max of one pair column of the persisted dataset. Only supported pairs are accepted
// @Tags Dataset
// @Produce json
// @Param base path string true "Base currency" example(USD)
// @Param quote path string true "Quote currency" example(PLN)
// @Success 200 {object} GetStatsResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /stats/{base}/{quote} [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimSpace(chi.URLParam(r, "base"))
	quote := strings.TrimSpace(chi.URLParam(r, "quote"))

	pair, err := h.validator.ValidatePair(base + "/" + quote)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sum, err := h.service.Summarize(r.Context(), pair.String())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDatasetNotFound):
			writeError(w, http.StatusNotFound, "no data persisted yet")
		case errors.Is(err, domain.ErrColumnNotFound):
			writeError(w, http.StatusNotFound, pair.String()+" is not available in the data")
		case errors.Is(err, domain.ErrNoValues):
			writeError(w, http.StatusNotFound, pair.String()+" has no values")
		default:
			msg := "ups, couldn't compute statistics this time"
			h.logger.WithError(err).WithFields(logrus.Fields{"handler": "GetStats", "pair": pair.String()}).Error(msg)
			writeError(w, http.StatusInternalServerError, msg)
		}
		return
	}

	writeJSON(w, http.StatusOK, GetStatsResponse{
		Column: sum.Column,
		Count:  sum.Count,
		Mean:   sum.Mean,
		Median: sum.Median,
		Min:    sum.Min,
		Max:    sum.Max,
	})
}
