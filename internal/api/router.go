package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// routes builds the router. The facade is deliberately small: two command
// endpoints, liveness, and a handful of read-only views over cached state.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)
	r.Use(chimw.NoCache)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	r.Put("/setthermode", s.handleSetThermMode)
	r.Put("/truetemperature/{room_id}", s.handleTrueTemperature)

	r.Get("/homestatus", s.handleHomeStatus)
	r.Get("/homesdata", s.handleHomesData)
	r.Get("/events", s.handleEvents)

	return r
}
