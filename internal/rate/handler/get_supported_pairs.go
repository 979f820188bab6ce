package handler

import (
	"net/http"
)

type GetSupportedPairsResponse struct {
	Pairs []string `json:"pairs" example:"EUR/PLN,USD/PLN,CHF/PLN,EUR/USD,CHF/USD"`
}

// GetSupportedPairs godoc
// @Summary List supported pairs
// @Description Pairs the pipeline fetches or derives
// @Tags Dataset
// @Produce json
// @Success 200 {object} GetSupportedPairsResponse
// @Router /pairs [get]
func (h *Handler) GetSupportedPairs(w http.ResponseWriter, _ *http.Request) {
	supported := h.validator.SupportedPairs()
	pairs := make([]string, len(supported))
	for i, p := range supported {
		pairs[i] = p.String()
	}
	writeJSON(w, http.StatusOK, GetSupportedPairsResponse{Pairs: pairs})
}
