package server

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/cityguesser/internal/handler/health"
	"github.com/playperu/cityguesser/internal/metrics"
)

func addRoutes(r chi.Router, d Deps) {
	broker := NewBroker()
	logger := d.Logger

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("City Guesser API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, d.Health).Routes())
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/api/modes", handleModes())
	r.Get("/api/countries/{name}/boundary", handleCountryBoundary(logger, d.Boundaries))

	r.Post("/api/players", handleCreatePlayer(logger, d.Store, d.JWTSecret))
	r.Get("/api/players/me/history", handlePlayerHistory(logger, d.Store, d.JWTSecret))

	r.Post("/api/sessions", handleCreateSession(logger, d.Sessions, d.Store, d.JWTSecret))
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Use(sessionMiddleware(d.Sessions))
		r.Get("/", handleGetSession())
		r.Delete("/", handleDeleteSession(d.Sessions, broker))
		r.Post("/start", handleStart(logger, broker))
		r.Post("/guess", handleGuess(logger, broker))
		r.Post("/next", handleNext(logger, broker))
		r.Post("/reset", handleReset(broker))
		r.Get("/events", handleEvents(broker))
	})

	r.Post("/api/admin/login", handleAdminLogin(d.Admin))
	r.Post("/api/admin/logout", handleAdminLogout(d.Admin))
	r.Get("/api/admin/me", handleAdminMe(d.Admin))

	r.Group(func(r chi.Router) {
		r.Use(adminAuthMiddleware(d.Admin))
		r.Get("/api/admin/locations", handleAdminListLocations(d.Store))
		r.Post("/api/admin/locations", handleAdminAddLocation(logger, d.Store))
		r.Delete("/api/admin/locations/{mode}/{id}", handleAdminDeleteLocation(logger, d.Store))
		r.Put("/api/admin/countries/{name}/boundary", handleAdminPutBoundary(logger, d.Store, d.Boundaries))
	})

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
