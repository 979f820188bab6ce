package handler

import (
	"errors"
	"net/http"

	"fxseries/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type DatasetRow struct {
	Date   string                `json:"date" example:"2024-01-02"`
	Values []decimal.NullDecimal `json:"values" swaggertype:"array,string" example:"4.3434,3.9432,1.1015"`
}

type GetDatasetResponse struct {
	Columns []string     `json:"columns" example:"EUR/PLN,USD/PLN,EUR/USD"`
	Rows    []DatasetRow `json:"rows"`
}

type GetColumnsResponse struct {
	Columns []string `json:"columns" example:"EUR/PLN,USD/PLN,EUR/USD"`
}

// GetDataset godoc
// @Summary Get persisted dataset
// @Description Rows of the merged dataset, optionally limited to an inclusive date range. Absent cells are null.
// @Tags Dataset
// @Produce json
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Success 200 {object} GetDatasetResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /dataset [get]
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	from, err := parseOptionalDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'from' date, expected YYYY-MM-DD")
		return
	}
	to, err := parseOptionalDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'to' date, expected YYYY-MM-DD")
		return
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		writeError(w, http.StatusBadRequest, "'from' is after 'to'")
		return
	}

	ds, ok := h.load(w, r, "GetDataset")
	if !ok {
		return
	}
	ds = ds.Between(from, to)

	res := GetDatasetResponse{Columns: ds.Columns(), Rows: make([]DatasetRow, 0, ds.Len())}
	for _, row := range ds.Rows() {
		res.Rows = append(res.Rows, DatasetRow{Date: row.Date.String(), Values: row.Values})
	}
	writeJSON(w, http.StatusOK, res)
}

// GetColumns godoc
// @Summary List dataset columns
// @Description Value column names of the persisted dataset, without the date column
// @Tags Dataset
// @Produce json
// @Success 200 {object} GetColumnsResponse
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /dataset/columns [get]
func (h *Handler) GetColumns(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.load(w, r, "GetColumns")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, GetColumnsResponse{Columns: ds.Columns()})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, handlerName string) (domain.Dataset, bool) {
	ds, err := h.service.Load(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrDatasetNotFound) {
			writeError(w, http.StatusNotFound, "no data persisted yet")
			return domain.Dataset{}, false
		}
		msg := "ups, couldn't load dataset this time"
		h.logger.WithError(err).WithField("handler", handlerName).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return domain.Dataset{}, false
	}
	return ds, true
}

func parseOptionalDate(raw string) (civil.Date, error) {
	if raw == "" {
		return civil.Date{}, nil
	}
	return civil.ParseDate(raw)
}
