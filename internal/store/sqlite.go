// Package store holds the persistence backends for locations, country
// boundaries, players and finished games.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/playperu/cityguesser/internal/geomath"
	"github.com/playperu/cityguesser/internal/geoquiz"
)

// SQLite keeps everything in a libSQL database. Country boundaries are
// stored as GeoJSON text and distances are computed in Go.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) RandomLocations(ctx context.Context, mode geoquiz.Mode, difficulty geoquiz.Difficulty, count int) ([]geoquiz.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, lat, lon, elevation, info, difficulty, clue
		FROM locations
		WHERE mode = ? AND difficulty = ?
		ORDER BY RANDOM()
		LIMIT ?
	`, mode.String(), string(difficulty), count)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	return scanLocations(rows)
}

func (s *SQLite) ListLocations(ctx context.Context, mode geoquiz.Mode) ([]geoquiz.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, lat, lon, elevation, info, difficulty, clue
		FROM locations
		WHERE mode = ?
		ORDER BY name
	`, mode.String())
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	return scanLocations(rows)
}

func scanLocations(rows *sql.Rows) ([]geoquiz.Location, error) {
	defer rows.Close()

	var locs []geoquiz.Location
	for rows.Next() {
		var (
			l    geoquiz.Location
			elev sql.NullFloat64
			diff string
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Lat, &l.Lon, &elev, &l.Info, &diff, &l.Clue); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		if elev.Valid {
			e := elev.Float64
			l.Elevation = &e
		}
		l.Difficulty = geoquiz.Difficulty(diff)
		locs = append(locs, l)
	}
	return locs, rows.Err()
}

// AddLocation inserts loc under mode. An empty ID is replaced by a new UUID.
func (s *SQLite) AddLocation(ctx context.Context, mode geoquiz.Mode, loc geoquiz.Location) (geoquiz.Location, error) {
	if err := validateLocation(mode, loc); err != nil {
		return geoquiz.Location{}, err
	}
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}

	var elev sql.NullFloat64
	if loc.Elevation != nil {
		elev = sql.NullFloat64{Float64: *loc.Elevation, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (id, mode, name, lat, lon, elevation, info, difficulty, clue)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, loc.ID, mode.String(), loc.Name, loc.Lat, loc.Lon, elev, loc.Info, string(loc.Difficulty), loc.Clue)
	if err != nil {
		return geoquiz.Location{}, fmt.Errorf("inserting location: %w", err)
	}
	return loc, nil
}

func (s *SQLite) DeleteLocation(ctx context.Context, mode geoquiz.Mode, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM locations WHERE mode = ? AND id = ?`, mode.String(), id)
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return geoquiz.ErrNotFound
	}
	return nil
}

// CountLocations returns the number of locations per mode. Modes without
// rows are present with a zero count.
func (s *SQLite) CountLocations(ctx context.Context) (map[geoquiz.Mode]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mode, COUNT(*) FROM locations GROUP BY mode`)
	if err != nil {
		return nil, fmt.Errorf("counting locations: %w", err)
	}
	defer rows.Close()

	counts := make(map[geoquiz.Mode]int, len(geoquiz.Modes))
	for _, m := range geoquiz.Modes {
		counts[m] = 0
	}
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		m, err := geoquiz.ParseMode(name)
		if err != nil {
			return nil, err
		}
		counts[m] = n
	}
	return counts, rows.Err()
}

// DistanceToCountry returns the distance in km from p to the named country's
// outline, 0 when p lies inside it.
func (s *SQLite) DistanceToCountry(ctx context.Context, p geoquiz.LatLon, name string) (float64, error) {
	raw, err := s.CountryBoundary(ctx, name)
	if err != nil {
		return 0, err
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return 0, fmt.Errorf("decoding boundary of %s: %w", name, err)
	}
	return geomath.DistanceToAreaKm(p, g.Geometry())
}

// CountryBoundary returns the stored GeoJSON geometry for name. Lookups are
// case-insensitive.
func (s *SQLite) CountryBoundary(ctx context.Context, name string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT geojson FROM country_boundaries WHERE name = ?`, name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, geoquiz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying boundary: %w", err)
	}
	return []byte(data), nil
}

// PutCountryBoundary inserts or replaces the outline of a country.
func (s *SQLite) PutCountryBoundary(ctx context.Context, name string, g orb.Geometry) error {
	data, err := encodeBoundary(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO country_boundaries (name, geojson)
		VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET
			geojson = excluded.geojson,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, name, string(data))
	if err != nil {
		return fmt.Errorf("upserting boundary: %w", err)
	}
	return nil
}

// ResolveOrCreatePlayer returns the player with the given name, creating it
// on first use.
func (s *SQLite) ResolveOrCreatePlayer(ctx context.Context, name string) (geoquiz.Player, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, name) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		uuid.NewString(), name,
	)
	if err != nil {
		return geoquiz.Player{}, fmt.Errorf("creating player: %w", err)
	}

	var p geoquiz.Player
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, played_games FROM players WHERE name = ?`, name,
	).Scan(&p.ID, &p.Name, &p.PlayedGames)
	if err != nil {
		return geoquiz.Player{}, fmt.Errorf("loading player: %w", err)
	}
	return p, nil
}

func (s *SQLite) Player(ctx context.Context, id string) (geoquiz.Player, error) {
	var p geoquiz.Player
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, played_games FROM players WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.PlayedGames)
	if errors.Is(err, sql.ErrNoRows) {
		return p, geoquiz.ErrNotFound
	}
	return p, err
}

// RecordSession stores a finished game and bumps the player's game count in
// one transaction.
func (s *SQLite) RecordSession(ctx context.Context, rec geoquiz.SessionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE players SET played_games = played_games + 1 WHERE id = ?`, rec.PlayerID,
	)
	if err != nil {
		return fmt.Errorf("updating player: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("player %s: %w", rec.PlayerID, geoquiz.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO game_history (player_id, mode, score, rounds) VALUES (?, ?, ?, ?)`,
		rec.PlayerID, rec.ModeLabel, rec.Score, rec.Rounds,
	)
	if err != nil {
		return fmt.Errorf("inserting history: %w", err)
	}
	return tx.Commit()
}

// PlayerHistory returns up to limit finished games, newest first.
func (s *SQLite) PlayerHistory(ctx context.Context, playerID string, limit int) ([]geoquiz.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mode, score, rounds, played_at
		FROM game_history
		WHERE player_id = ?
		ORDER BY played_at DESC, id DESC
		LIMIT ?
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []geoquiz.HistoryEntry{}
	for rows.Next() {
		var (
			e        geoquiz.HistoryEntry
			playedAt string
		)
		if err := rows.Scan(&e.ModeLabel, &e.Score, &e.Rounds, &playedAt); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		e.PlayedAt, err = time.Parse(time.RFC3339Nano, playedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing played_at %q: %w", playedAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ErrInvalidLocation is returned by AddLocation for rows the schema would
// reject anyway.
var ErrInvalidLocation = errors.New("invalid location")

func validateLocation(mode geoquiz.Mode, loc geoquiz.Location) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidLocation, int(mode))
	}
	if strings.TrimSpace(loc.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLocation)
	}
	if !loc.Point().Valid() {
		return fmt.Errorf("%w: coordinates out of range: %v, %v", ErrInvalidLocation, loc.Lat, loc.Lon)
	}
	if !loc.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidLocation, loc.Difficulty)
	}
	return nil
}

func encodeBoundary(g orb.Geometry) ([]byte, error) {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return nil, fmt.Errorf("%w: %T", geomath.ErrUnsupportedGeometry, g)
	}
	data, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding boundary: %w", err)
	}
	return data, nil
}
