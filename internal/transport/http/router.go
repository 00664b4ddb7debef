package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"qa-live-service/internal/app"
)

// NewRouter wires the REST API, the websocket endpoint and health checks.
func NewRouter(service *app.QAService, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	api := NewAPIHandler(service, logger)
	ws := NewWSHandler(service, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(withPrincipal)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/api/groups/{groupID}", func(r chi.Router) {
		r.Get("/state", api.getState)
		r.Post("/question/open", api.openQuestion)
		r.Post("/question/close", api.closeQuestion)
		r.Post("/question/clear", api.clearQuestion)
		r.Get("/responses", api.listResponses)
		r.Post("/responses", api.submitAnswer)
		r.Get("/scores", api.listScores)
		r.Get("/participants", api.listParticipants)
		r.Put("/participants/{participantID}", api.putParticipant)
	})
	return r
}
