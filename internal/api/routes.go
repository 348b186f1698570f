package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Position routes
	api.HandleFunc("/positions", handler.ListPositions).Methods("GET")
	api.HandleFunc("/positions", handler.AddPosition).Methods("POST")
	api.HandleFunc("/positions/{id}", handler.UpdatePosition).Methods("PUT")
	api.HandleFunc("/positions/{id}", handler.RemovePosition).Methods("DELETE")

	// Portfolio routes
	api.HandleFunc("/portfolio", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio/refresh", handler.RefreshPortfolio).Methods("POST")

	// Chart and market routes
	api.HandleFunc("/chart/{symbol}", handler.GetChart).Methods("GET")
	api.HandleFunc("/markets", handler.GetMarkets).Methods("GET")

	return r
}
