// Package geoquiz defines the core domain types of the guessing game.
// It has zero external dependencies.
package geoquiz

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// DefaultRounds is the number of rounds offered when the player picks none.
const DefaultRounds = 5

// LatLon is a WGS84 coordinate in degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// Valid reports whether the coordinate is finite and inside the lat/lon ranges.
func (p LatLon) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

type Mode int

const (
	ModeCity Mode = iota
	ModeCountry
	ModeMountain
	ModeBuilding
)

// Modes lists every mode in menu order.
var Modes = []Mode{ModeCity, ModeCountry, ModeMountain, ModeBuilding}

func (m Mode) String() string {
	switch m {
	case ModeCity:
		return "city"
	case ModeCountry:
		return "country"
	case ModeMountain:
		return "mountain"
	case ModeBuilding:
		return "building"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Label is the human-readable name used in prompts and history entries.
func (m Mode) Label() string {
	switch m {
	case ModeCity:
		return "City"
	case ModeCountry:
		return "Country"
	case ModeMountain:
		return "Mountain"
	case ModeBuilding:
		return "Building"
	}
	return "Object"
}

// MaxRounds is the largest game length offered for the mode. The data sets
// for mountains and buildings are smaller, so they stop at 10.
func (m Mode) MaxRounds() int {
	switch m {
	case ModeMountain, ModeBuilding:
		return 10
	case ModeCity, ModeCountry:
		return 20
	}
	return 0
}

// HasElevation reports whether locations of this mode carry a height.
func (m Mode) HasElevation() bool {
	return m == ModeMountain || m == ModeBuilding
}

func (m Mode) Valid() bool {
	return m >= ModeCity && m <= ModeBuilding
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "city":
		return ModeCity, nil
	case "country":
		return ModeCountry, nil
	case "mountain":
		return ModeMountain, nil
	case "building":
		return ModeBuilding, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// QuizType selects how the target is presented to the player.
type QuizType string

const (
	QuizClassic QuizType = "classic"
	QuizRiddle  QuizType = "riddle"
)

var QuizTypes = []QuizType{QuizClassic, QuizRiddle}

func (q QuizType) Valid() bool {
	return q == QuizClassic || q == QuizRiddle
}

func ParseQuizType(s string) (QuizType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return QuizClassic, nil
	}
	q := QuizType(s)
	if !q.Valid() {
		return "", fmt.Errorf("unknown quiz type %q", s)
	}
	return q, nil
}

// Location is one target of a round. Elevation is set for mountains and
// buildings only; Clue may be empty.
type Location struct {
	ID         string
	Name       string
	Lat        float64
	Lon        float64
	Elevation  *float64
	Info       string
	Difficulty Difficulty
	Clue       string
}

func (l Location) Point() LatLon {
	return LatLon{Lat: l.Lat, Lon: l.Lon}
}

// Prompt renders the question shown to the player for this location.
func Prompt(mode Mode, quiz QuizType, loc Location) string {
	if quiz == QuizRiddle {
		hint := loc.Clue
		if hint == "" {
			hint = loc.Name
		}
		return fmt.Sprintf("Wanted: %s (%s)", hint, strings.ToLower(mode.Label()))
	}
	return fmt.Sprintf("Where is the %s: %s?", strings.ToLower(mode.Label()), loc.Name)
}

type Guess struct {
	Lat float64
	Lon float64
}

func (g Guess) Point() LatLon {
	return LatLon{Lat: g.Lat, Lon: g.Lon}
}

// RoundResult is created once per scored round and never changes.
type RoundResult struct {
	Round      int
	Location   Location
	Guess      Guess
	DistanceKm float64
	Points     int
	ExactHit   bool
}

// SessionRecord is what the score ledger keeps for a finished game.
type SessionRecord struct {
	PlayerID  string
	Score     int
	Rounds    int
	ModeLabel string
}

// ModeLabel formats the label stored with a finished game, e.g. "City (medium)".
func ModeLabel(mode Mode, difficulty Difficulty) string {
	return fmt.Sprintf("%s (%s)", mode.Label(), difficulty)
}

type Player struct {
	ID          string
	Name        string
	PlayedGames int
}

type HistoryEntry struct {
	ModeLabel string
	Score     int
	Rounds    int
	PlayedAt  time.Time
}
