package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"github.com/playperu/cityguesser/internal/geomath"
	"github.com/playperu/cityguesser/internal/geoquiz"
	"github.com/playperu/cityguesser/internal/store"
)

type AdminLocationRequest struct {
	Mode       string   `json:"mode"`
	Name       string   `json:"name"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Elevation  *float64 `json:"elevation,omitempty"`
	Info       string   `json:"info,omitempty"`
	Difficulty string   `json:"difficulty"`
	Clue       string   `json:"clue,omitempty"`
}

type AdminLocation struct {
	LocationDTO
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty"`
	Clue       string `json:"clue,omitempty"`
}

type AdminLocationsResponse struct {
	Counts    map[string]int  `json:"counts"`
	Locations []AdminLocation `json:"locations,omitempty"`
}

// BoundaryRequest carries a country outline as WKT or as a GeoJSON geometry.
type BoundaryRequest struct {
	WKT     string          `json:"wkt,omitempty"`
	GeoJSON json.RawMessage `json:"geojson,omitempty"`
}

func adminLocation(mode geoquiz.Mode, l geoquiz.Location) AdminLocation {
	return AdminLocation{
		LocationDTO: locationDTO(l),
		Mode:        mode.String(),
		Difficulty:  string(l.Difficulty),
		Clue:        l.Clue,
	}
}

func handleAdminListLocations(locations LocationAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := locations.CountLocations(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp := AdminLocationsResponse{Counts: make(map[string]int, len(counts))}
		for m, n := range counts {
			resp.Counts[m.String()] = n
		}

		if q := r.URL.Query().Get("mode"); q != "" {
			mode, err := geoquiz.ParseMode(q)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			locs, err := locations.ListLocations(r.Context(), mode)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			resp.Locations = make([]AdminLocation, 0, len(locs))
			for _, l := range locs {
				resp.Locations = append(resp.Locations, adminLocation(mode, l))
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAdminAddLocation(logger *slog.Logger, locations LocationAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminLocationRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		mode, err := geoquiz.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		diff, err := geoquiz.ParseDifficulty(req.Difficulty)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		loc, err := locations.AddLocation(r.Context(), mode, geoquiz.Location{
			Name:       strings.TrimSpace(req.Name),
			Lat:        req.Lat,
			Lon:        req.Lon,
			Elevation:  req.Elevation,
			Info:       req.Info,
			Difficulty: diff,
			Clue:       req.Clue,
		})
		if errors.Is(err, store.ErrInvalidLocation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			writeGameError(w, logger, err)
			return
		}

		logger.Info("location added", "admin", adminFrom(r).Email, "mode", mode, "id", loc.ID, "name", loc.Name)
		writeJSON(w, http.StatusCreated, adminLocation(mode, loc))
	}
}

func handleAdminDeleteLocation(logger *slog.Logger, locations LocationAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := geoquiz.ParseMode(chi.URLParam(r, "mode"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		err = locations.DeleteLocation(r.Context(), mode, chi.URLParam(r, "id"))
		if errors.Is(err, geoquiz.ErrNotFound) {
			writeError(w, http.StatusNotFound, "location not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		logger.Info("location deleted", "admin", adminFrom(r).Email, "mode", mode, "id", chi.URLParam(r, "id"))
		writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
	}
}

// parseBoundary decodes exactly one of the WKT or GeoJSON fields.
func (req BoundaryRequest) parseBoundary() (orb.Geometry, error) {
	hasWKT := strings.TrimSpace(req.WKT) != ""
	hasGeoJSON := len(req.GeoJSON) > 0 && string(req.GeoJSON) != "null"

	switch {
	case hasWKT && hasGeoJSON:
		return nil, errors.New("send either wkt or geojson, not both")
	case hasWKT:
		return wkt.Unmarshal(req.WKT)
	case hasGeoJSON:
		g, err := geojson.UnmarshalGeometry(req.GeoJSON)
		if err != nil {
			return nil, err
		}
		return g.Geometry(), nil
	}
	return nil, errors.New("wkt or geojson is required")
}

func handleAdminPutBoundary(logger *slog.Logger, locations LocationAdmin, boundaries BoundarySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(chi.URLParam(r, "name"))
		if name == "" {
			writeError(w, http.StatusBadRequest, "country name is required")
			return
		}

		var req BoundaryRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		g, err := req.parseBoundary()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		err = locations.PutCountryBoundary(r.Context(), name, g)
		if errors.Is(err, geomath.ErrUnsupportedGeometry) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			writeGameError(w, logger, err)
			return
		}

		if inv, ok := boundaries.(boundaryInvalidator); ok {
			if err := inv.Invalidate(r.Context(), name); err != nil {
				logger.Warn("boundary cache invalidation failed", "country", name, "error", err)
			}
		}

		logger.Info("boundary updated", "admin", adminFrom(r).Email, "country", name, "type", g.GeoJSONType())
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	}
}
