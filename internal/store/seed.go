package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/playperu/cityguesser/internal/geoquiz"
)

//go:embed seed/demo.json
var demoData []byte

// Seeder is the subset of a store needed to load the demo data set.
type Seeder interface {
	CountLocations(ctx context.Context) (map[geoquiz.Mode]int, error)
	AddLocation(ctx context.Context, mode geoquiz.Mode, loc geoquiz.Location) (geoquiz.Location, error)
	PutCountryBoundary(ctx context.Context, name string, g orb.Geometry) error
}

type demoLocation struct {
	Mode       string   `json:"mode"`
	Name       string   `json:"name"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Elevation  *float64 `json:"elevation"`
	Difficulty string   `json:"difficulty"`
	Info       string   `json:"info"`
	Clue       string   `json:"clue"`
}

type demoCountry struct {
	demoLocation
	Geometry *geojson.Geometry `json:"geometry"`
}

type demoSet struct {
	Locations []demoLocation `json:"locations"`
	Countries []demoCountry  `json:"countries"`
}

func (d demoLocation) location() (geoquiz.Location, error) {
	diff, err := geoquiz.ParseDifficulty(d.Difficulty)
	if err != nil {
		return geoquiz.Location{}, err
	}
	return geoquiz.Location{
		Name:       d.Name,
		Lat:        d.Lat,
		Lon:        d.Lon,
		Elevation:  d.Elevation,
		Info:       d.Info,
		Difficulty: diff,
		Clue:       d.Clue,
	}, nil
}

// SeedDemo loads the embedded demo locations and country outlines when the
// store holds no locations at all. It returns the number of rows added.
func SeedDemo(ctx context.Context, s Seeder, logger *slog.Logger) (int, error) {
	counts, err := s.CountLocations(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting locations: %w", err)
	}
	for _, n := range counts {
		if n > 0 {
			return 0, nil
		}
	}

	var set demoSet
	if err := json.Unmarshal(demoData, &set); err != nil {
		return 0, fmt.Errorf("decoding demo data: %w", err)
	}

	added := 0
	for _, d := range set.Locations {
		mode, err := geoquiz.ParseMode(d.Mode)
		if err != nil {
			return added, fmt.Errorf("demo location %s: %w", d.Name, err)
		}
		loc, err := d.location()
		if err != nil {
			return added, fmt.Errorf("demo location %s: %w", d.Name, err)
		}
		if _, err := s.AddLocation(ctx, mode, loc); err != nil {
			return added, fmt.Errorf("adding %s: %w", d.Name, err)
		}
		added++
	}

	for _, c := range set.Countries {
		loc, err := c.location()
		if err != nil {
			return added, fmt.Errorf("demo country %s: %w", c.Name, err)
		}
		if c.Geometry == nil {
			return added, fmt.Errorf("demo country %s has no geometry", c.Name)
		}
		if err := s.PutCountryBoundary(ctx, c.Name, c.Geometry.Geometry()); err != nil {
			return added, fmt.Errorf("adding boundary of %s: %w", c.Name, err)
		}
		if _, err := s.AddLocation(ctx, geoquiz.ModeCountry, loc); err != nil {
			return added, fmt.Errorf("adding %s: %w", c.Name, err)
		}
		added++
	}

	logger.Info("seeded demo data", "locations", added, "countries", len(set.Countries))
	return added, nil
}
