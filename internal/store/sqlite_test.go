package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"

	"github.com/playperu/cityguesser/internal/database"
	"github.com/playperu/cityguesser/internal/geomath"
	"github.com/playperu/cityguesser/internal/geoquiz"
	"github.com/playperu/cityguesser/internal/migrations"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db, migrations.SQLite); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return NewSQLite(db)
}

func mustAdd(t *testing.T, s *SQLite, mode geoquiz.Mode, loc geoquiz.Location) geoquiz.Location {
	t.Helper()
	got, err := s.AddLocation(context.Background(), mode, loc)
	if err != nil {
		t.Fatalf("adding %s: %v", loc.Name, err)
	}
	return got
}

func square(minLon, minLat, maxLon, maxLat float64) orb.Polygon {
	return orb.Polygon{{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}
}

func TestRandomLocations(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, name := range []string{"Lima", "Paris", "Tokyo"} {
		mustAdd(t, s, geoquiz.ModeCity, geoquiz.Location{Name: name, Lat: 1, Lon: 2, Difficulty: geoquiz.DifficultyEasy})
	}
	mustAdd(t, s, geoquiz.ModeCity, geoquiz.Location{Name: "Cusco", Lat: 1, Lon: 2, Difficulty: geoquiz.DifficultyHard})
	mustAdd(t, s, geoquiz.ModeMountain, geoquiz.Location{Name: "K2", Lat: 1, Lon: 2, Difficulty: geoquiz.DifficultyEasy})

	tests := []struct {
		name  string
		mode  geoquiz.Mode
		diff  geoquiz.Difficulty
		count int
		want  int
	}{
		{"limited", geoquiz.ModeCity, geoquiz.DifficultyEasy, 2, 2},
		{"fewer than asked", geoquiz.ModeCity, geoquiz.DifficultyEasy, 10, 3},
		{"other difficulty", geoquiz.ModeCity, geoquiz.DifficultyHard, 5, 1},
		{"empty", geoquiz.ModeBuilding, geoquiz.DifficultyEasy, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locs, err := s.RandomLocations(ctx, tt.mode, tt.diff, tt.count)
			if err != nil {
				t.Fatalf("RandomLocations: %v", err)
			}
			if len(locs) != tt.want {
				t.Fatalf("got %d locations, want %d", len(locs), tt.want)
			}
			for _, l := range locs {
				if l.Difficulty != tt.diff {
					t.Errorf("%s difficulty = %q, want %q", l.Name, l.Difficulty, tt.diff)
				}
				if l.ID == "" {
					t.Errorf("%s has no id", l.Name)
				}
			}
		})
	}
}

func TestLocationElevation(t *testing.T) {
	s := newTestSQLite(t)
	h := 6768.0
	mustAdd(t, s, geoquiz.ModeMountain, geoquiz.Location{Name: "Huascarán", Lat: -9.12, Lon: -77.6, Elevation: &h, Difficulty: geoquiz.DifficultyHard, Clue: "white peak"})
	mustAdd(t, s, geoquiz.ModeCity, geoquiz.Location{Name: "Lima", Lat: -12, Lon: -77, Difficulty: geoquiz.DifficultyHard})

	mountains, err := s.ListLocations(context.Background(), geoquiz.ModeMountain)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(mountains) != 1 || mountains[0].Elevation == nil || *mountains[0].Elevation != h {
		t.Fatalf("mountains = %+v, want one with elevation %v", mountains, h)
	}
	if mountains[0].Clue != "white peak" {
		t.Errorf("clue = %q", mountains[0].Clue)
	}

	cities, err := s.ListLocations(context.Background(), geoquiz.ModeCity)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(cities) != 1 || cities[0].Elevation != nil {
		t.Fatalf("cities = %+v, want one without elevation", cities)
	}
}

func TestAddLocationValidation(t *testing.T) {
	s := newTestSQLite(t)

	tests := []struct {
		name string
		mode geoquiz.Mode
		loc  geoquiz.Location
	}{
		{"no name", geoquiz.ModeCity, geoquiz.Location{Lat: 1, Lon: 1, Difficulty: geoquiz.DifficultyEasy}},
		{"lat out of range", geoquiz.ModeCity, geoquiz.Location{Name: "X", Lat: 91, Difficulty: geoquiz.DifficultyEasy}},
		{"bad difficulty", geoquiz.ModeCity, geoquiz.Location{Name: "X", Difficulty: "extreme"}},
		{"bad mode", geoquiz.Mode(7), geoquiz.Location{Name: "X", Difficulty: geoquiz.DifficultyEasy}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddLocation(context.Background(), tt.mode, tt.loc)
			if !errors.Is(err, ErrInvalidLocation) {
				t.Errorf("err = %v, want ErrInvalidLocation", err)
			}
		})
	}
}

func TestDeleteLocation(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	loc := mustAdd(t, s, geoquiz.ModeCity, geoquiz.Location{Name: "Lima", Difficulty: geoquiz.DifficultyEasy})

	if err := s.DeleteLocation(ctx, geoquiz.ModeMountain, loc.ID); !errors.Is(err, geoquiz.ErrNotFound) {
		t.Errorf("delete under wrong mode: err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteLocation(ctx, geoquiz.ModeCity, loc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteLocation(ctx, geoquiz.ModeCity, loc.ID); !errors.Is(err, geoquiz.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestCountLocations(t *testing.T) {
	s := newTestSQLite(t)
	mustAdd(t, s, geoquiz.ModeCity, geoquiz.Location{Name: "A", Difficulty: geoquiz.DifficultyEasy})
	mustAdd(t, s, geoquiz.ModeCity, geoquiz.Location{Name: "B", Difficulty: geoquiz.DifficultyEasy})
	mustAdd(t, s, geoquiz.ModeBuilding, geoquiz.Location{Name: "C", Difficulty: geoquiz.DifficultyEasy})

	counts, err := s.CountLocations(context.Background())
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	want := map[geoquiz.Mode]int{
		geoquiz.ModeCity:     2,
		geoquiz.ModeCountry:  0,
		geoquiz.ModeMountain: 0,
		geoquiz.ModeBuilding: 1,
	}
	for m, n := range want {
		if counts[m] != n {
			t.Errorf("count[%s] = %d, want %d", m, counts[m], n)
		}
	}
}

func TestDistanceToCountry(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if err := s.PutCountryBoundary(ctx, "Squareland", square(0, 0, 10, 10)); err != nil {
		t.Fatalf("putting boundary: %v", err)
	}

	tests := []struct {
		name    string
		country string
		p       geoquiz.LatLon
		want    float64
		tol     float64
	}{
		{"inside", "Squareland", geoquiz.LatLon{Lat: 5, Lon: 5}, 0, 0},
		{"one degree south", "Squareland", geoquiz.LatLon{Lat: -1, Lon: 5}, 111.195, 0.01},
		{"case-insensitive name", "squareland", geoquiz.LatLon{Lat: 5, Lon: 5}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.DistanceToCountry(ctx, tt.p, tt.country)
			if err != nil {
				t.Fatalf("DistanceToCountry: %v", err)
			}
			if diff := got - tt.want; diff > tt.tol || diff < -tt.tol {
				t.Errorf("distance = %v, want %v ± %v", got, tt.want, tt.tol)
			}
		})
	}

	if _, err := s.DistanceToCountry(ctx, geoquiz.LatLon{}, "Atlantis"); !errors.Is(err, geoquiz.ErrNotFound) {
		t.Errorf("unknown country: err = %v, want ErrNotFound", err)
	}
}

func TestPutCountryBoundary(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if err := s.PutCountryBoundary(ctx, "Pointland", orb.Point{1, 2}); !errors.Is(err, geomath.ErrUnsupportedGeometry) {
		t.Errorf("point boundary: err = %v, want ErrUnsupportedGeometry", err)
	}

	if err := s.PutCountryBoundary(ctx, "Squareland", square(0, 0, 1, 1)); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := s.PutCountryBoundary(ctx, "Squareland", square(0, 0, 10, 10)); err != nil {
		t.Fatalf("replacing: %v", err)
	}

	d, err := s.DistanceToCountry(ctx, geoquiz.LatLon{Lat: 5, Lon: 5}, "Squareland")
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if d != 0 {
		t.Errorf("distance after replace = %v, want 0", d)
	}

	raw, err := s.CountryBoundary(ctx, "Squareland")
	if err != nil {
		t.Fatalf("boundary: %v", err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		t.Errorf("boundary = %q, want a GeoJSON object", raw)
	}
}

func TestResolveOrCreatePlayer(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first, err := s.ResolveOrCreatePlayer(ctx, "ana")
	if err != nil {
		t.Fatalf("creating: %v", err)
	}
	if first.ID == "" || first.Name != "ana" || first.PlayedGames != 0 {
		t.Fatalf("player = %+v", first)
	}

	again, err := s.ResolveOrCreatePlayer(ctx, "ana")
	if err != nil {
		t.Fatalf("resolving: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("id = %s, want %s", again.ID, first.ID)
	}

	other, err := s.ResolveOrCreatePlayer(ctx, "bob")
	if err != nil {
		t.Fatalf("creating bob: %v", err)
	}
	if other.ID == first.ID {
		t.Error("different names share an id")
	}

	if _, err := s.Player(ctx, "missing"); !errors.Is(err, geoquiz.ErrNotFound) {
		t.Errorf("Player(missing): err = %v, want ErrNotFound", err)
	}
}

func TestRecordSessionAndHistory(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	p, err := s.ResolveOrCreatePlayer(ctx, "ana")
	if err != nil {
		t.Fatalf("creating player: %v", err)
	}

	for i := 0; i < 12; i++ {
		rec := geoquiz.SessionRecord{PlayerID: p.ID, Score: i, Rounds: 5, ModeLabel: "City (easy)"}
		if err := s.RecordSession(ctx, rec); err != nil {
			t.Fatalf("recording game %d: %v", i, err)
		}
	}

	p, err = s.Player(ctx, p.ID)
	if err != nil {
		t.Fatalf("loading player: %v", err)
	}
	if p.PlayedGames != 12 {
		t.Errorf("played games = %d, want 12", p.PlayedGames)
	}

	history, err := s.PlayerHistory(ctx, p.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 10 {
		t.Fatalf("history has %d entries, want 10", len(history))
	}
	if history[0].Score != 11 || history[9].Score != 2 {
		t.Errorf("history scores = %d..%d, want 11..2", history[0].Score, history[9].Score)
	}
	if history[0].ModeLabel != "City (easy)" || history[0].Rounds != 5 || history[0].PlayedAt.IsZero() {
		t.Errorf("entry = %+v", history[0])
	}
}

func TestRecordSessionUnknownPlayer(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	err := s.RecordSession(ctx, geoquiz.SessionRecord{PlayerID: "ghost", Score: 5, Rounds: 5, ModeLabel: "City (easy)"})
	if !errors.Is(err, geoquiz.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	history, err := s.PlayerHistory(ctx, "ghost", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %+v, want empty", history)
	}
}

func TestSeedDemo(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	n, err := SeedDemo(ctx, s, logger)
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}
	if n == 0 {
		t.Fatal("nothing seeded")
	}

	for _, m := range geoquiz.Modes {
		for _, d := range geoquiz.Difficulties {
			locs, err := s.RandomLocations(ctx, m, d, 1)
			if err != nil {
				t.Fatalf("RandomLocations(%s, %s): %v", m, d, err)
			}
			if len(locs) == 0 {
				t.Errorf("no demo data for %s/%s", m, d)
			}
		}
	}

	countries, err := s.ListLocations(ctx, geoquiz.ModeCountry)
	if err != nil {
		t.Fatalf("listing countries: %v", err)
	}
	for _, c := range countries {
		d, err := s.DistanceToCountry(ctx, c.Point(), c.Name)
		if err != nil {
			t.Errorf("distance to %s: %v", c.Name, err)
			continue
		}
		if d != 0 {
			t.Errorf("%s reference point is %v km outside its outline", c.Name, d)
		}
	}

	again, err := SeedDemo(ctx, s, logger)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if again != 0 {
		t.Errorf("second seed added %d rows, want 0", again)
	}
}
