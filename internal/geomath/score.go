package geomath

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultLimitKm   = 1000.0
	DefaultMaxPoints = 10
)

// ErrInvalidDistance is returned for negative or non-finite distances, which
// only come out of failed lookups.
var ErrInvalidDistance = errors.New("invalid distance")

// ScoreFromDistance scores a guess with the default 1000 km / 10 points rule.
func ScoreFromDistance(distanceKm float64) (int, error) {
	return Score(distanceKm, DefaultLimitKm, DefaultMaxPoints)
}

// Score decays linearly from maxPoints at 0 km to 0 at limitKm. Halves round
// to even.
func Score(distanceKm, limitKm float64, maxPoints int) (int, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDistance, distanceKm)
	}
	if !(limitKm > 0) || math.IsInf(limitKm, 0) {
		return 0, fmt.Errorf("score limit must be positive, got %v", limitKm)
	}
	if maxPoints < 0 {
		return 0, fmt.Errorf("max points must not be negative, got %d", maxPoints)
	}
	if distanceKm >= limitKm {
		return 0, nil
	}

	raw := float64(maxPoints) * (1 - distanceKm/limitKm)
	points := int(math.RoundToEven(raw))
	if points < 0 {
		return 0, nil
	}
	if points > maxPoints {
		return maxPoints, nil
	}
	return points, nil
}
