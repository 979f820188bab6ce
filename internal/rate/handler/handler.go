package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"fxseries/internal/domain"
	"fxseries/internal/rate"
	"fxseries/internal/report"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"
)

type Validator interface {
	ValidatePair(raw string) (domain.Pair, error)
	ValidateRange(start, end civil.Date) error
	SupportedPairs() []domain.Pair
}

type Service interface {
	Load(ctx context.Context) (domain.Dataset, error)
	Summarize(ctx context.Context, column string) (report.Summary, error)
	Update(ctx context.Context, start, end civil.Date) (domain.Dataset, error)
}

type Handler struct {
	validator Validator
	service   Service
	window    rate.Window
	logger    logrus.FieldLogger
}

// NewRateHandler serves the dataset maintained by service; window is the range POST /refresh fetches.
func NewRateHandler(validator Validator, service Service, window rate.Window, logger logrus.FieldLogger) *Handler {
	return &Handler{validator: validator, service: service, window: window, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, statusCode int, errorMsg string) {
	writeJSON(w, statusCode, errorResponse{Error: errorMsg})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
