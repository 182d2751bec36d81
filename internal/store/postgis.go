package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"

	"github.com/playperu/cityguesser/internal/geoquiz"
)

// PostGIS keeps locations and boundaries in Postgres and lets the database
// compute geography distances.
type PostGIS struct {
	pool *pgxpool.Pool
}

func NewPostGIS(pool *pgxpool.Pool) *PostGIS {
	return &PostGIS{pool: pool}
}

func (s *PostGIS) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostGIS) RandomLocations(ctx context.Context, mode geoquiz.Mode, difficulty geoquiz.Difficulty, count int) ([]geoquiz.Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, lat, lon, elevation, info, difficulty, clue
		FROM locations
		WHERE mode = $1 AND difficulty = $2
		ORDER BY RANDOM()
		LIMIT $3
	`, mode.String(), string(difficulty), count)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	return collectLocations(rows)
}

func (s *PostGIS) ListLocations(ctx context.Context, mode geoquiz.Mode) ([]geoquiz.Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, lat, lon, elevation, info, difficulty, clue
		FROM locations
		WHERE mode = $1
		ORDER BY name
	`, mode.String())
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	return collectLocations(rows)
}

func collectLocations(rows pgx.Rows) ([]geoquiz.Location, error) {
	locs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (geoquiz.Location, error) {
		var (
			l    geoquiz.Location
			diff string
		)
		err := row.Scan(&l.ID, &l.Name, &l.Lat, &l.Lon, &l.Elevation, &l.Info, &diff, &l.Clue)
		l.Difficulty = geoquiz.Difficulty(diff)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning locations: %w", err)
	}
	return locs, nil
}

func (s *PostGIS) AddLocation(ctx context.Context, mode geoquiz.Mode, loc geoquiz.Location) (geoquiz.Location, error) {
	if err := validateLocation(mode, loc); err != nil {
		return geoquiz.Location{}, err
	}
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO locations (id, mode, name, lat, lon, elevation, info, difficulty, clue)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, loc.ID, mode.String(), loc.Name, loc.Lat, loc.Lon, loc.Elevation, loc.Info, string(loc.Difficulty), loc.Clue)
	if err != nil {
		return geoquiz.Location{}, fmt.Errorf("inserting location: %w", err)
	}
	return loc, nil
}

func (s *PostGIS) DeleteLocation(ctx context.Context, mode geoquiz.Mode, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM locations WHERE mode = $1 AND id = $2`, mode.String(), id)
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return geoquiz.ErrNotFound
	}
	return nil
}

func (s *PostGIS) CountLocations(ctx context.Context) (map[geoquiz.Mode]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT mode, COUNT(*) FROM locations GROUP BY mode`)
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

// DistanceToCountry measures on the geography type, so the result is the
// geodetic distance in km and 0 inside the outline.
func (s *PostGIS) DistanceToCountry(ctx context.Context, p geoquiz.LatLon, name string) (float64, error) {
	var km *float64
	err := s.pool.QueryRow(ctx, `
		SELECT ST_Distance(
			geom::geography,
			ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
		) / 1000
		FROM country_boundaries
		WHERE lower(name) = lower($3)
	`, p.Lon, p.Lat, name).Scan(&km)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, geoquiz.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("querying distance: %w", err)
	}
	if km == nil {
		return 0, fmt.Errorf("no distance for %s: %w", name, geoquiz.ErrNotFound)
	}
	return *km, nil
}

func (s *PostGIS) CountryBoundary(ctx context.Context, name string) ([]byte, error) {
	var data string
	err := s.pool.QueryRow(ctx,
		`SELECT ST_AsGeoJSON(geom) FROM country_boundaries WHERE lower(name) = lower($1)`, name,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, geoquiz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying boundary: %w", err)
	}
	return []byte(data), nil
}

func (s *PostGIS) PutCountryBoundary(ctx context.Context, name string, g orb.Geometry) error {
	data, err := encodeBoundary(g)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO country_boundaries (name, geom)
		VALUES ($1, ST_SetSRID(ST_GeomFromGeoJSON($2), 4326))
		ON CONFLICT (name) DO UPDATE SET
			geom = excluded.geom,
			updated_at = now()
	`, name, string(data))
	if err != nil {
		return fmt.Errorf("upserting boundary: %w", err)
	}
	return nil
}

func (s *PostGIS) ResolveOrCreatePlayer(ctx context.Context, name string) (geoquiz.Player, error) {
	var p geoquiz.Player
	err := s.pool.QueryRow(ctx, `
		INSERT INTO players (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id, name, played_games
	`, uuid.NewString(), name).Scan(&p.ID, &p.Name, &p.PlayedGames)
	if err != nil {
		return geoquiz.Player{}, fmt.Errorf("resolving player: %w", err)
	}
	return p, nil
}

func (s *PostGIS) Player(ctx context.Context, id string) (geoquiz.Player, error) {
	var p geoquiz.Player
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, played_games FROM players WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.PlayedGames)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, geoquiz.ErrNotFound
	}
	return p, err
}

func (s *PostGIS) RecordSession(ctx context.Context, rec geoquiz.SessionRecord) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE players SET played_games = played_games + 1 WHERE id = $1`, rec.PlayerID,
		)
		if err != nil {
			return fmt.Errorf("updating player: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("player %s: %w", rec.PlayerID, geoquiz.ErrNotFound)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO game_history (player_id, mode, score, rounds) VALUES ($1, $2, $3, $4)`,
			rec.PlayerID, rec.ModeLabel, rec.Score, rec.Rounds,
		)
		if err != nil {
			return fmt.Errorf("inserting history: %w", err)
		}
		return nil
	})
}

func (s *PostGIS) PlayerHistory(ctx context.Context, playerID string, limit int) ([]geoquiz.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT mode, score, rounds, played_at
		FROM game_history
		WHERE player_id = $1
		ORDER BY played_at DESC, id DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (geoquiz.HistoryEntry, error) {
		var e geoquiz.HistoryEntry
		err := row.Scan(&e.ModeLabel, &e.Score, &e.Rounds, &e.PlayedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning history: %w", err)
	}
	if entries == nil {
		entries = []geoquiz.HistoryEntry{}
	}
	return entries, nil
}
