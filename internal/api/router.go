// Package api wires HTTP routes to handlers and applies shared middleware.
package api

import (
	"net/http"

	"delivery-tracking-service/internal/api/handlers"
	"delivery-tracking-service/internal/services"
)

// NewRouter builds the service's HTTP surface over the session manager.
func NewRouter(manager *services.SessionManager) http.Handler {
	mux := http.NewServeMux()

	sessions := &handlers.SessionHandler{Manager: manager}

	mux.HandleFunc("GET /health", handlers.Health)

	mux.HandleFunc("POST /sessions", sessions.Start)
	mux.HandleFunc("GET /sessions/{id}", sessions.Get)
	mux.HandleFunc("DELETE /sessions/{id}", sessions.End)
	mux.HandleFunc("POST /sessions/{id}/locations", sessions.PushLocation)
	mux.HandleFunc("POST /sessions/{id}/refresh", sessions.Refresh)
	mux.HandleFunc("POST /sessions/{id}/deliveries/{deliveryID}", sessions.SetDeliveryStatus)

	return loggingMiddleware(mux)
}
