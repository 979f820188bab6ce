package api

import (
	_ "fxseries/docs"
	"fxseries/internal/rate/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	swagger "github.com/swaggo/http-swagger"
)

// @title fxseries API
// @version 1.0
// @description Read access to the merged FX rate dataset and on-demand refresh.
// @BasePath /api/v1
func NewRouter(rateHandler *handler.Handler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))

	// Swagger UI
	router.Get("/swagger/*", swagger.WrapHandler)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/dataset", rateHandler.GetDataset)
		r.Get("/dataset/columns", rateHandler.GetColumns)
		r.Get("/stats/{base:[A-Za-z]{3}}/{quote:[A-Za-z]{3}}", rateHandler.GetStats)
		r.Get("/pairs", rateHandler.GetSupportedPairs)
		r.Post("/refresh", rateHandler.Refresh)
	})
	return router
}
