package http

import (
	"net/http"

	"affekt/internal/adapter/http/middleware"
	"affekt/internal/service"
)

type Server struct {
	mux        *http.ServeMux
	handlers   *Handlers
	sseHandler *SSEHandler
	cors       func(http.Handler) http.Handler
}

func NewServer(analysisSvc AnalysisService, eventBus *service.EventBus, maxSizeMB int, corsOrigins []string, version string) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		handlers:   NewHandlers(analysisSvc, maxSizeMB, version),
		sseHandler: NewSSEHandler(eventBus, analysisSvc),
		cors:       middleware.CORS(corsOrigins),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/analyses", s.handlers.Submit())
	s.mux.HandleFunc("GET /api/analyses/{id}", s.handlers.Status())
	s.mux.HandleFunc("POST /api/analyses/{id}/reanalyze", s.handlers.Reanalyze())
	s.mux.HandleFunc("GET /api/analyses/{id}/events", s.sseHandler.Events())
	s.mux.HandleFunc("GET /api/health", s.handlers.Health())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.cors(middleware.SecurityHeaders(s.mux)).ServeHTTP(w, r)
}
