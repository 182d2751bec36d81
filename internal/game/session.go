// Package game runs one guessing game: it fetches the round targets, scores
// guesses and keeps the running total until the last round is played.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/playperu/cityguesser/internal/geomath"
	"github.com/playperu/cityguesser/internal/geoquiz"
)

// LocationStore supplies round targets and country distances.
type LocationStore interface {
	RandomLocations(ctx context.Context, mode geoquiz.Mode, difficulty geoquiz.Difficulty, count int) ([]geoquiz.Location, error)
	DistanceToCountry(ctx context.Context, p geoquiz.LatLon, name string) (float64, error)
}

// ScoreLedger persists finished games for a player.
type ScoreLedger interface {
	RecordSession(ctx context.Context, rec geoquiz.SessionRecord) error
}

type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
)

type Rating string

const (
	RatingLegend         Rating = "legend"
	RatingVeryGood       Rating = "very_good"
	RatingKeepPracticing Rating = "keep_practicing"
)

// RateScore grades a finished game against the best possible total.
func RateScore(total, maxScore int) Rating {
	if maxScore <= 0 {
		return RatingKeepPracticing
	}
	switch ratio := float64(total) / float64(maxScore); {
	case ratio >= 0.9:
		return RatingLegend
	case ratio >= 0.6:
		return RatingVeryGood
	}
	return RatingKeepPracticing
}

type Settings struct {
	Mode          geoquiz.Mode
	Difficulty    geoquiz.Difficulty
	QuizType      geoquiz.QuizType
	RoundsPerGame int
}

func (s Settings) Validate() error {
	if !s.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %d", ErrConfiguration, int(s.Mode))
	}
	if !s.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrConfiguration, s.Difficulty)
	}
	if !s.QuizType.Valid() {
		return fmt.Errorf("%w: unknown quiz type %q", ErrConfiguration, s.QuizType)
	}
	if limit := s.Mode.MaxRounds(); s.RoundsPerGame < 1 || s.RoundsPerGame > limit {
		return fmt.Errorf("%w: rounds must be between 1 and %d for %s, got %d",
			ErrConfiguration, limit, s.Mode, s.RoundsPerGame)
	}
	return nil
}

// Question is what the player sees for the current round.
type Question struct {
	Round     int
	Prompt    string
	Elevation *float64
}

// State is a point-in-time copy of a session for presentation.
type State struct {
	Phase        Phase
	Settings     Settings
	Round        int
	TotalScore   int
	MaxScore     int
	TurnOver     bool
	PendingGuess *geoquiz.Guess
	Results      []geoquiz.RoundResult
	Question     *Question
	Rating       Rating
	PlayerID     string
	ScoreSaved   bool
}

// Session is a single game. All methods are safe for concurrent use; calls
// are serialized, including the store round trips they make.
type Session struct {
	locations    LocationStore
	ledger       ScoreLedger
	logger       *slog.Logger
	storeTimeout time.Duration

	mu           sync.Mutex
	phase        Phase
	settings     Settings
	targets      []geoquiz.Location
	round        int
	totalScore   int
	results      []geoquiz.RoundResult
	turnOver     bool
	pendingGuess *geoquiz.Guess
	playerID     string
	scoreSaved   bool
}

// NewSession returns a session in the NotStarted phase. ledger may be nil, in
// which case finished games are not recorded. A storeTimeout of zero leaves
// store calls bounded only by the caller's context.
func NewSession(locations LocationStore, ledger ScoreLedger, logger *slog.Logger, storeTimeout time.Duration) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		locations:    locations,
		ledger:       ledger,
		logger:       logger,
		storeTimeout: storeTimeout,
		phase:        PhaseNotStarted,
	}
}

// BindPlayer attaches the player whose finished games go to the ledger.
func (s *Session) BindPlayer(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseInProgress {
		return fmt.Errorf("%w: cannot change player during a game", ErrInvalidTransition)
	}
	s.playerID = playerID
	return nil
}

// Start fetches the targets and begins round 1. It is allowed before the
// first game and after a finished one. On any error the session keeps its
// previous state.
func (s *Session) Start(ctx context.Context, settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseInProgress {
		return fmt.Errorf("%w: game already in progress", ErrInvalidTransition)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	locs, err := s.locations.RandomLocations(ctx, settings.Mode, settings.Difficulty, settings.RoundsPerGame)
	if err != nil {
		s.logger.Error("fetching locations", "mode", settings.Mode.String(), "difficulty", settings.Difficulty, "error", err)
		return fmt.Errorf("%w: %w", ErrNoData, err)
	}
	if len(locs) == 0 {
		return fmt.Errorf("%w: no %s locations for difficulty %s", ErrNoData, settings.Mode, settings.Difficulty)
	}
	if len(locs) > settings.RoundsPerGame {
		locs = locs[:settings.RoundsPerGame]
	}
	if len(locs) < settings.RoundsPerGame {
		s.logger.Warn("fewer locations than rounds requested",
			"mode", settings.Mode.String(), "requested", settings.RoundsPerGame, "got", len(locs))
		settings.RoundsPerGame = len(locs)
	}

	s.clear()
	s.settings = settings
	s.targets = append([]geoquiz.Location(nil), locs...)
	s.round = 1
	s.phase = PhaseInProgress
	return nil
}

// SubmitGuess scores the guess for the current round. A failed country
// distance lookup leaves the guess pending so it can be submitted again.
func (s *Session) SubmitGuess(ctx context.Context, g geoquiz.Guess) (geoquiz.RoundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress {
		return geoquiz.RoundResult{}, fmt.Errorf("%w: no game in progress", ErrInvalidTransition)
	}
	if s.turnOver {
		return geoquiz.RoundResult{}, ErrAlreadyScored
	}
	if !g.Point().Valid() {
		return geoquiz.RoundResult{}, fmt.Errorf("%w: lat %v lon %v out of range", ErrInvalidGuess, g.Lat, g.Lon)
	}

	guess := g
	s.pendingGuess = &guess
	target := s.targets[s.round-1]

	dist, err := s.distance(ctx, g, target)
	if err != nil {
		return geoquiz.RoundResult{}, err
	}

	points, err := geomath.ScoreFromDistance(dist)
	if err != nil {
		return geoquiz.RoundResult{}, fmt.Errorf("%w: %w", ErrDistanceUnavailable, err)
	}

	res := geoquiz.RoundResult{
		Round:      s.round,
		Location:   target,
		Guess:      g,
		DistanceKm: dist,
		Points:     points,
		ExactHit:   dist == 0,
	}
	s.results = append(s.results, res)
	s.totalScore += points
	s.turnOver = true
	return res, nil
}

func (s *Session) distance(ctx context.Context, g geoquiz.Guess, target geoquiz.Location) (float64, error) {
	switch s.settings.Mode {
	case geoquiz.ModeCity, geoquiz.ModeMountain, geoquiz.ModeBuilding:
		return geomath.GeodesicDistanceKm(g.Point(), target.Point()), nil
	case geoquiz.ModeCountry:
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()

		d, err := s.locations.DistanceToCountry(ctx, g.Point(), target.Name)
		if err != nil {
			s.logger.Error("country distance", "country", target.Name, "error", err)
			return 0, fmt.Errorf("%w: %w", ErrDistanceUnavailable, err)
		}
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return 0, fmt.Errorf("%w: no distance for %s", ErrDistanceUnavailable, target.Name)
		}
		return d, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %d", ErrConfiguration, int(s.settings.Mode))
}

// NextRound moves past a scored round. After the last round the game is
// finished and, when a player is bound, recorded once in the ledger. A ledger
// failure is returned wrapped in ErrPersistence; the game stays finished.
func (s *Session) NextRound(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress || !s.turnOver {
		return fmt.Errorf("%w: round not scored yet", ErrInvalidTransition)
	}

	s.round++
	s.turnOver = false
	s.pendingGuess = nil
	if s.round <= s.settings.RoundsPerGame {
		return nil
	}

	s.phase = PhaseFinished
	return s.saveScore(ctx)
}

func (s *Session) saveScore(ctx context.Context) error {
	if s.ledger == nil || s.playerID == "" || s.scoreSaved {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec := geoquiz.SessionRecord{
		PlayerID:  s.playerID,
		Score:     s.totalScore,
		Rounds:    s.settings.RoundsPerGame,
		ModeLabel: geoquiz.ModeLabel(s.settings.Mode, s.settings.Difficulty),
	}
	if err := s.ledger.RecordSession(ctx, rec); err != nil {
		s.logger.Error("recording game", "player_id", s.playerID, "score", rec.Score, "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.scoreSaved = true
	return nil
}

// Reset abandons the current game. The bound player is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clear()
	s.settings = Settings{}
	s.phase = PhaseNotStarted
}

func (s *Session) clear() {
	s.targets = nil
	s.round = 0
	s.totalScore = 0
	s.results = nil
	s.turnOver = false
	s.pendingGuess = nil
	s.scoreSaved = false
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// State returns a snapshot that does not alias session memory.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Phase:      s.phase,
		Settings:   s.settings,
		Round:      min(s.round, s.settings.RoundsPerGame),
		TotalScore: s.totalScore,
		MaxScore:   s.settings.RoundsPerGame * geomath.DefaultMaxPoints,
		TurnOver:   s.turnOver,
		Results:    append([]geoquiz.RoundResult(nil), s.results...),
		PlayerID:   s.playerID,
		ScoreSaved: s.scoreSaved,
	}
	if s.pendingGuess != nil {
		g := *s.pendingGuess
		st.PendingGuess = &g
	}

	switch s.phase {
	case PhaseInProgress:
		target := s.targets[s.round-1]
		q := &Question{
			Round:  s.round,
			Prompt: geoquiz.Prompt(s.settings.Mode, s.settings.QuizType, target),
		}
		if s.settings.Mode.HasElevation() && target.Elevation != nil {
			e := *target.Elevation
			q.Elevation = &e
		}
		st.Question = q
	case PhaseFinished:
		st.Rating = RateScore(s.totalScore, st.MaxScore)
	}
	return st
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
