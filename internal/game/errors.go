package game

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means no locations could be loaded for the requested
	// mode and difficulty; the game does not start.
	ErrNoData = errors.New("no data found")

	// ErrDistanceUnavailable means the country distance lookup failed; the
	// guess stays pending and may be retried.
	ErrDistanceUnavailable = errors.New("distance unavailable")

	// ErrPersistence means the finished game could not be written to the
	// score ledger. The in-memory result stands.
	ErrPersistence = errors.New("score not saved")

	// ErrConfiguration is returned for settings rejected before any fetch.
	ErrConfiguration = errors.New("invalid game settings")

	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidGuess      = errors.New("invalid guess")
)

// ErrAlreadyScored rejects a second guess in the same round.
var ErrAlreadyScored = fmt.Errorf("%w: round already scored", ErrInvalidTransition)
