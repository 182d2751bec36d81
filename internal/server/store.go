package server

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/playperu/cityguesser/internal/game"
	"github.com/playperu/cityguesser/internal/geoquiz"
)

// PlayerDirectory resolves players by name and lists their finished games.
type PlayerDirectory interface {
	ResolveOrCreatePlayer(ctx context.Context, name string) (geoquiz.Player, error)
	Player(ctx context.Context, id string) (geoquiz.Player, error)
	PlayerHistory(ctx context.Context, playerID string, limit int) ([]geoquiz.HistoryEntry, error)
}

// BoundarySource returns a country's outline as GeoJSON.
type BoundarySource interface {
	CountryBoundary(ctx context.Context, name string) ([]byte, error)
}

// boundaryInvalidator is implemented by caches in front of a BoundarySource.
type boundaryInvalidator interface {
	Invalidate(ctx context.Context, name string) error
}

// LocationAdmin is the catalogue maintenance surface.
type LocationAdmin interface {
	ListLocations(ctx context.Context, mode geoquiz.Mode) ([]geoquiz.Location, error)
	AddLocation(ctx context.Context, mode geoquiz.Mode, loc geoquiz.Location) (geoquiz.Location, error)
	DeleteLocation(ctx context.Context, mode geoquiz.Mode, id string) error
	CountLocations(ctx context.Context) (map[geoquiz.Mode]int, error)
	PutCountryBoundary(ctx context.Context, name string, g orb.Geometry) error
}

// GameStore is everything the HTTP layer needs from a location backend.
// Both store.SQLite and store.PostGIS satisfy it.
type GameStore interface {
	game.LocationStore
	game.ScoreLedger
	PlayerDirectory
	LocationAdmin
	BoundarySource
}
