package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Search jobs
	mux.HandleFunc("/api/search", s.app.SearchHandler.CreateSearchHandler) // POST - submit a search
	mux.HandleFunc("/api/search/", s.app.SearchHandler.GetSearchHandler)   // GET /{id} - poll a job

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/config", s.app.ConfigHandler.GetConfig)
	mux.HandleFunc("/api/logs/recent", s.app.LogsHandler.GetRecentLogsHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Everything else is a JSON 404
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
