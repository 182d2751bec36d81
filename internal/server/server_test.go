package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/cityguesser/internal/database"
	"github.com/playperu/cityguesser/internal/geoquiz"
	"github.com/playperu/cityguesser/internal/migrations"
	"github.com/playperu/cityguesser/internal/store"
)

var testSecret = []byte("test-secret-0123456789")

const (
	testAdminEmail    = "admin@cityguesser.test"
	testAdminPassword = "hunter22"
)

type testEnv struct {
	handler  http.Handler
	store    *store.SQLite
	sessions *Registry
}

// newTestEnv wires the full router over an in-memory database holding two
// easy cities at the same spot, one hard mountain, a country with an
// outline and a country without one.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db, migrations.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s := store.NewSQLite(db)
	elev := 6768.0
	for _, add := range []struct {
		mode geoquiz.Mode
		loc  geoquiz.Location
	}{
		{geoquiz.ModeCity, geoquiz.Location{Name: "Lima", Lat: -12.05, Lon: -77.04, Difficulty: geoquiz.DifficultyEasy, Clue: "City of Kings"}},
		{geoquiz.ModeCity, geoquiz.Location{Name: "Rimac", Lat: -12.05, Lon: -77.04, Difficulty: geoquiz.DifficultyEasy}},
		{geoquiz.ModeMountain, geoquiz.Location{Name: "Huascaran", Lat: -9.12, Lon: -77.6, Elevation: &elev, Difficulty: geoquiz.DifficultyHard}},
		{geoquiz.ModeCountry, geoquiz.Location{Name: "Squareland", Lat: 5, Lon: 5, Difficulty: geoquiz.DifficultyEasy}},
		{geoquiz.ModeCountry, geoquiz.Location{Name: "Nowhere", Lat: 0, Lon: 0, Difficulty: geoquiz.DifficultyMedium}},
	} {
		if _, err := s.AddLocation(ctx, add.mode, add.loc); err != nil {
			t.Fatalf("add %s: %v", add.loc.Name, err)
		}
	}
	square := orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
	if err := s.PutCountryBoundary(ctx, "Squareland", square); err != nil {
		t.Fatalf("put boundary: %v", err)
	}

	admin := NewSQLAdminStore(db)
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := admin.EnsureAdmin(ctx, testAdminEmail, string(hash)); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := NewRegistry(s, s, logger, time.Second, time.Hour)

	h := NewHandler(Deps{
		Logger:    logger,
		Store:     s,
		Admin:     admin,
		Sessions:  sessions,
		JWTSecret: testSecret,
	})
	return &testEnv{handler: h, store: s, sessions: sessions}
}

type call struct {
	method string
	path   string
	body   any
	token  string
	cookie *http.Cookie
}

func (e *testEnv) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		data, err := json.Marshal(c.body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (body %q)", v, err, w.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d: %s", w.Code, want, w.Body.String())
	}
}

// newSession creates a session, optionally bound to the player behind token.
func (e *testEnv) newSession(t *testing.T, token string) string {
	t.Helper()
	w := e.do(t, call{method: http.MethodPost, path: "/api/sessions", token: token})
	expectStatus(t, w, http.StatusCreated)
	return decode[CreateSessionResponse](t, w).SessionID
}

func intPtr(n int) *int { return &n }

func TestHandleOpenAPI(t *testing.T) {
	h := handleOpenAPI()
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	rec := httptest.NewRecorder()

	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); !bytes.Contains([]byte(got), []byte("application/json")) {
		t.Fatalf("content-type = %q, want application/json", got)
	}

	body := rec.Body.String()
	for _, path := range []string{
		`"/healthz"`,
		`"/api/sessions/{id}/guess"`,
		`"/api/admin/countries/{name}/boundary"`,
	} {
		if !bytes.Contains([]byte(body), []byte(path)) {
			t.Errorf("body missing %s path", path)
		}
	}
}

func TestDocsServesSwaggerUI(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, call{method: http.MethodGet, path: "/docs/"})
	expectStatus(t, w, http.StatusOK)
	if !bytes.Contains(w.Body.Bytes(), []byte("/openapi.json")) {
		t.Fatalf("docs page does not reference /openapi.json")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, call{method: http.MethodGet, path: "/api/modes"})

	w := e.do(t, call{method: http.MethodGet, path: "/metrics"})
	expectStatus(t, w, http.StatusOK)
	if !bytes.Contains(w.Body.Bytes(), []byte(`cityguesser_http_request_duration_ms`)) {
		t.Fatalf("metrics output missing request histogram")
	}
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, call{method: http.MethodGet, path: "/healthz"})
	expectStatus(t, w, http.StatusOK)
}

func TestUnknownAPIPathIsJSON404(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, call{method: http.MethodGet, path: "/api/nope"})
	expectStatus(t, w, http.StatusNotFound)
}
