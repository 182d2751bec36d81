package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/cityguesser/internal/geoquiz"
)

type ModeInfo struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	MaxRounds    int    `json:"maxRounds"`
	HasElevation bool   `json:"hasElevation"`
}

type ModesResponse struct {
	Modes         []ModeInfo `json:"modes"`
	Difficulties  []string   `json:"difficulties"`
	QuizTypes     []string   `json:"quizTypes"`
	DefaultRounds int        `json:"defaultRounds"`
}

func handleModes() http.HandlerFunc {
	resp := ModesResponse{DefaultRounds: geoquiz.DefaultRounds}
	for _, m := range geoquiz.Modes {
		resp.Modes = append(resp.Modes, ModeInfo{
			ID:           m.String(),
			Label:        m.Label(),
			MaxRounds:    m.MaxRounds(),
			HasElevation: m.HasElevation(),
		})
	}
	for _, d := range geoquiz.Difficulties {
		resp.Difficulties = append(resp.Difficulties, string(d))
	}
	for _, q := range geoquiz.QuizTypes {
		resp.QuizTypes = append(resp.QuizTypes, string(q))
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleCountryBoundary serves the stored outline as a GeoJSON geometry.
func handleCountryBoundary(logger *slog.Logger, boundaries BoundarySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(chi.URLParam(r, "name"))
		if name == "" {
			writeError(w, http.StatusBadRequest, "country name is required")
			return
		}

		data, err := boundaries.CountryBoundary(r.Context(), name)
		if errors.Is(err, geoquiz.ErrNotFound) {
			writeError(w, http.StatusNotFound, "country not found")
			return
		}
		if err != nil {
			writeGameError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
