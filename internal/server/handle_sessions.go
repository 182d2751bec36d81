package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/playperu/cityguesser/internal/game"
	"github.com/playperu/cityguesser/internal/geoquiz"
	"github.com/playperu/cityguesser/internal/metrics"
)

// PointDTO is a coordinate on the wire.
type PointDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type LocationDTO struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Elevation *float64 `json:"elevation,omitempty"`
	Info      string   `json:"info,omitempty"`
}

type RoundResultDTO struct {
	Round      int         `json:"round"`
	Location   LocationDTO `json:"location"`
	Guess      PointDTO    `json:"guess"`
	DistanceKm float64     `json:"distanceKm"`
	Points     int         `json:"points"`
	ExactHit   bool        `json:"exactHit"`
}

type QuestionDTO struct {
	Round     int      `json:"round"`
	Prompt    string   `json:"prompt"`
	Elevation *float64 `json:"elevation,omitempty"`
}

// StateResponse is the presentation view of a session.
type StateResponse struct {
	Phase         string           `json:"phase"`
	Mode          string           `json:"mode,omitempty"`
	Difficulty    string           `json:"difficulty,omitempty"`
	QuizType      string           `json:"quizType,omitempty"`
	RoundsPerGame int              `json:"roundsPerGame"`
	Round         int              `json:"round"`
	TotalScore    int              `json:"totalScore"`
	MaxScore      int              `json:"maxScore"`
	TurnOver      bool             `json:"turnOver"`
	PendingGuess  *PointDTO        `json:"pendingGuess,omitempty"`
	Question      *QuestionDTO     `json:"question,omitempty"`
	Results       []RoundResultDTO `json:"results"`
	Rating        string           `json:"rating,omitempty"`
	PlayerBound   bool             `json:"playerBound"`
	ScoreSaved    bool             `json:"scoreSaved"`
}

type CreateSessionResponse struct {
	SessionID string        `json:"sessionId"`
	State     StateResponse `json:"state"`
}

type StartRequest struct {
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty"`
	QuizType   string `json:"quizType"`
	Rounds     *int   `json:"rounds,omitempty"`
}

type NextResponse struct {
	State   StateResponse `json:"state"`
	Warning string        `json:"warning,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

func locationDTO(l geoquiz.Location) LocationDTO {
	return LocationDTO{
		ID:        l.ID,
		Name:      l.Name,
		Lat:       l.Lat,
		Lon:       l.Lon,
		Elevation: l.Elevation,
		Info:      l.Info,
	}
}

func resultDTO(r geoquiz.RoundResult) RoundResultDTO {
	return RoundResultDTO{
		Round:      r.Round,
		Location:   locationDTO(r.Location),
		Guess:      PointDTO{Lat: r.Guess.Lat, Lon: r.Guess.Lon},
		DistanceKm: r.DistanceKm,
		Points:     r.Points,
		ExactHit:   r.ExactHit,
	}
}

func stateResponse(st game.State) StateResponse {
	resp := StateResponse{
		Phase:         string(st.Phase),
		RoundsPerGame: st.Settings.RoundsPerGame,
		Round:         st.Round,
		TotalScore:    st.TotalScore,
		MaxScore:      st.MaxScore,
		TurnOver:      st.TurnOver,
		Results:       make([]RoundResultDTO, 0, len(st.Results)),
		Rating:        string(st.Rating),
		PlayerBound:   st.PlayerID != "",
		ScoreSaved:    st.ScoreSaved,
	}
	if st.Phase != game.PhaseNotStarted {
		resp.Mode = st.Settings.Mode.String()
		resp.Difficulty = string(st.Settings.Difficulty)
		resp.QuizType = string(st.Settings.QuizType)
	}
	if st.PendingGuess != nil {
		resp.PendingGuess = &PointDTO{Lat: st.PendingGuess.Lat, Lon: st.PendingGuess.Lon}
	}
	if q := st.Question; q != nil {
		resp.Question = &QuestionDTO{Round: q.Round, Prompt: q.Prompt, Elevation: q.Elevation}
	}
	for _, r := range st.Results {
		resp.Results = append(resp.Results, resultDTO(r))
	}
	return resp
}

func handleCreateSession(logger *slog.Logger, sessions *Registry, players PlayerDirectory, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok, err := playerFromRequest(r, secret)
		if ok && err != nil {
			writeError(w, http.StatusUnauthorized, "invalid player token")
			return
		}
		if ok {
			if _, err := players.Player(r.Context(), claims.PlayerID); err != nil {
				if errors.Is(err, geoquiz.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "unknown player")
					return
				}
				writeGameError(w, logger, err)
				return
			}
		}

		id, sess := sessions.Create()
		if ok {
			// A fresh session is never in progress.
			_ = sess.BindPlayer(claims.PlayerID)
		}

		logger.Info("session created", "session_id", id, "player_bound", ok)
		writeJSON(w, http.StatusCreated, CreateSessionResponse{
			SessionID: id,
			State:     stateResponse(sess.State()),
		})
	}
}

func handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess := sessionFrom(r)
		writeJSON(w, http.StatusOK, stateResponse(sess.State()))
	}
}

func handleDeleteSession(sessions *Registry, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sess := sessionFrom(r)
		sess.Reset()
		sessions.Delete(id)
		broker.Publish(id, SSEEvent{Type: eventGameReset})
		writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
	}
}

func (req StartRequest) settings() (game.Settings, error) {
	mode, err := geoquiz.ParseMode(req.Mode)
	if err != nil {
		return game.Settings{}, fmt.Errorf("%w: %w", game.ErrConfiguration, err)
	}
	diff := geoquiz.DifficultyEasy
	if req.Difficulty != "" {
		if diff, err = geoquiz.ParseDifficulty(req.Difficulty); err != nil {
			return game.Settings{}, fmt.Errorf("%w: %w", game.ErrConfiguration, err)
		}
	}
	quiz := geoquiz.QuizClassic
	if req.QuizType != "" {
		if quiz, err = geoquiz.ParseQuizType(req.QuizType); err != nil {
			return game.Settings{}, fmt.Errorf("%w: %w", game.ErrConfiguration, err)
		}
	}
	rounds := geoquiz.DefaultRounds
	if req.Rounds != nil {
		rounds = *req.Rounds
	}
	return game.Settings{
		Mode:          mode,
		Difficulty:    diff,
		QuizType:      quiz,
		RoundsPerGame: rounds,
	}, nil
}

func handleStart(logger *slog.Logger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sess := sessionFrom(r)

		var req StartRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		settings, err := req.settings()
		if err != nil {
			writeGameError(w, logger, err)
			return
		}

		if err := sess.Start(r.Context(), settings); err != nil {
			if errors.Is(err, game.ErrNoData) {
				metrics.StoreErrorsTotal.WithLabelValues("random_locations").Inc()
			}
			writeGameError(w, logger, err)
			return
		}

		st := sess.State()
		broker.Publish(id, SSEEvent{Type: eventGameStarted, Round: st.Round})
		writeJSON(w, http.StatusOK, stateResponse(st))
	}
}

func handleNext(logger *slog.Logger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sess := sessionFrom(r)

		var warning string
		if err := sess.NextRound(r.Context()); err != nil {
			if !errors.Is(err, game.ErrPersistence) {
				writeGameError(w, logger, err)
				return
			}
			metrics.StoreErrorsTotal.WithLabelValues("record_session").Inc()
			warning = "score could not be saved"
		}

		st := sess.State()
		if st.Phase == game.PhaseFinished {
			metrics.GamesFinishedTotal.WithLabelValues(st.Settings.Mode.String()).Inc()
			broker.Publish(id, SSEEvent{
				Type:       eventGameFinished,
				TotalScore: st.TotalScore,
				Rating:     string(st.Rating),
			})
		} else {
			broker.Publish(id, SSEEvent{Type: eventRoundAdvanced, Round: st.Round, TotalScore: st.TotalScore})
		}

		writeJSON(w, http.StatusOK, NextResponse{State: stateResponse(st), Warning: warning})
	}
}

func handleReset(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sess := sessionFrom(r)
		sess.Reset()
		broker.Publish(id, SSEEvent{Type: eventGameReset})
		writeJSON(w, http.StatusOK, stateResponse(sess.State()))
	}
}
