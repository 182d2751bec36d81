package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/cityguesser/internal/game"
	"github.com/playperu/cityguesser/internal/geomath"
	"github.com/playperu/cityguesser/internal/geoquiz"
	"github.com/playperu/cityguesser/internal/metrics"
)

type GuessRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type GuessResponse struct {
	Result RoundResultDTO `json:"result"`
	// Path is the great-circle line from the guess to the target. It is
	// omitted when a country guess lands inside the outline.
	Path  []PointDTO    `json:"path,omitempty"`
	State StateResponse `json:"state"`
}

func handleGuess(logger *slog.Logger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sess := sessionFrom(r)

		var req GuessRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Lat == nil || req.Lon == nil {
			writeError(w, http.StatusBadRequest, "lat and lon are required")
			return
		}

		res, err := sess.SubmitGuess(r.Context(), geoquiz.Guess{Lat: *req.Lat, Lon: *req.Lon})
		if err != nil {
			if errors.Is(err, game.ErrDistanceUnavailable) {
				metrics.StoreErrorsTotal.WithLabelValues("distance_to_country").Inc()
			}
			writeGameError(w, logger, err)
			return
		}

		st := sess.State()
		mode := st.Settings.Mode
		metrics.RoundsScoredTotal.WithLabelValues(mode.String()).Inc()
		metrics.RoundPoints.Observe(float64(res.Points))

		resp := GuessResponse{
			Result: resultDTO(res),
			State:  stateResponse(st),
		}
		if !(mode == geoquiz.ModeCountry && res.ExactHit) {
			path := geomath.GreatCirclePath(res.Guess.Point(), res.Location.Point(), geomath.DefaultPathSegments)
			resp.Path = make([]PointDTO, len(path))
			for i, p := range path {
				resp.Path[i] = PointDTO{Lat: p.Lat, Lon: p.Lon}
			}
		}

		points := res.Points
		broker.Publish(id, SSEEvent{
			Type:       eventRoundScored,
			Round:      res.Round,
			Points:     &points,
			TotalScore: st.TotalScore,
		})
		writeJSON(w, http.StatusOK, resp)
	}
}
