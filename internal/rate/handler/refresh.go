package handler

import (
	"errors"
	"net/http"

	"fxseries/internal/domain"
	"fxseries/internal/rate"

	"github.com/sirupsen/logrus"
)

type RefreshResponse struct {
	Start string `json:"start" example:"2024-01-01"`
	End   string `json:"end" example:"2024-03-31"`
	Rows  int    `json:"rows" example:"61"`
}

// Refresh godoc
// @Summary Refresh dataset now
// @Description Fetch the default window for every configured pair and merge it into the persisted dataset
// @Tags Dataset
// @Produce json
// @Success 200 {object} RefreshResponse
// @Failure 400 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Router /refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	start, end := h.window.Range()
	if err := h.validator.ValidateRange(start, end); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ds, err := h.service.Update(r.Context(), start, end)
	if err != nil {
		fields := logrus.Fields{"handler": "Refresh", "start": start.String(), "end": end.String()}
		switch {
		case rate.IsUpstreamFailure(err):
			h.logger.WithError(err).WithFields(fields).Warn("refresh failed upstream")
			writeError(w, http.StatusBadGateway, err.Error())
		case errors.Is(err, domain.ErrEmptyJoin), errors.Is(err, domain.ErrDerivedColumn):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			msg := "ups, couldn't refresh dataset this time"
			h.logger.WithError(err).WithFields(fields).Error(msg)
			writeError(w, http.StatusInternalServerError, msg)
		}
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{Start: start.String(), End: end.String(), Rows: ds.Len()})
}
