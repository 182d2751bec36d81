package server

import (
	"net/http"
	"strings"
	"testing"
)

func TestFullGameIsRecordedForPlayer(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, call{method: http.MethodPost, path: "/api/players", body: CreatePlayerRequest{Name: "  Maria "}})
	expectStatus(t, w, http.StatusOK)
	player := decode[CreatePlayerResponse](t, w)
	if player.Player.Name != "Maria" {
		t.Fatalf("name = %q, want trimmed Maria", player.Player.Name)
	}

	id := e.newSession(t, player.Token)
	base := "/api/sessions/" + id

	w = e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "city", Difficulty: "easy", Rounds: intPtr(2)}})
	expectStatus(t, w, http.StatusOK)
	st := decode[StateResponse](t, w)
	if st.Phase != "in_progress" || st.Round != 1 || st.MaxScore != 20 {
		t.Fatalf("state after start = %+v", st)
	}
	if st.Question == nil || !strings.HasPrefix(st.Question.Prompt, "Where is the city") {
		t.Fatalf("question = %+v", st.Question)
	}
	if !st.PlayerBound {
		t.Fatal("expected player to be bound")
	}

	for round := 1; round <= 2; round++ {
		w = e.do(t, call{method: http.MethodPost, path: base + "/guess", body: map[string]float64{"lat": -12.05, "lon": -77.04}})
		expectStatus(t, w, http.StatusOK)
		g := decode[GuessResponse](t, w)
		if g.Result.Points != 10 || !g.Result.ExactHit {
			t.Fatalf("round %d result = %+v, want 10 points exact", round, g.Result)
		}
		if len(g.Path) != 2 {
			t.Fatalf("round %d path has %d points, want 2 for identical endpoints", round, len(g.Path))
		}
		if !g.State.TurnOver {
			t.Fatalf("round %d: turn should be over", round)
		}

		w = e.do(t, call{method: http.MethodPost, path: base + "/next"})
		expectStatus(t, w, http.StatusOK)
		next := decode[NextResponse](t, w)
		if next.Warning != "" {
			t.Fatalf("unexpected warning %q", next.Warning)
		}
		st = next.State
	}

	if st.Phase != "finished" || st.TotalScore != 20 || st.Rating != "legend" || !st.ScoreSaved {
		t.Fatalf("final state = %+v", st)
	}
	if len(st.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(st.Results))
	}

	w = e.do(t, call{method: http.MethodGet, path: "/api/players/me/history", token: player.Token})
	expectStatus(t, w, http.StatusOK)
	hist := decode[PlayerHistoryResponse](t, w)
	if hist.Player.PlayedGames != 1 {
		t.Errorf("played games = %d, want 1", hist.Player.PlayedGames)
	}
	if len(hist.History) != 1 || hist.History[0].Mode != "City (easy)" || hist.History[0].Score != 20 {
		t.Fatalf("history = %+v", hist.History)
	}
}

func TestAnonymousGameIsNotRecorded(t *testing.T) {
	e := newTestEnv(t)
	base := "/api/sessions/" + e.newSession(t, "")

	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "city", Rounds: intPtr(1)}}), http.StatusOK)
	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/guess", body: map[string]float64{"lat": 0, "lon": 0}}), http.StatusOK)

	w := e.do(t, call{method: http.MethodPost, path: base + "/next"})
	expectStatus(t, w, http.StatusOK)
	st := decode[NextResponse](t, w).State
	if st.Phase != "finished" || st.ScoreSaved || st.PlayerBound {
		t.Fatalf("state = %+v", st)
	}
	if st.TotalScore != 0 || st.Rating != "keep_practicing" {
		t.Fatalf("far guess: total %d rating %q", st.TotalScore, st.Rating)
	}
}

func TestStartErrors(t *testing.T) {
	e := newTestEnv(t)
	base := "/api/sessions/" + e.newSession(t, "")

	tests := []struct {
		name string
		req  StartRequest
		want int
	}{
		{"unknown mode", StartRequest{Mode: "planet"}, http.StatusBadRequest},
		{"unknown difficulty", StartRequest{Mode: "city", Difficulty: "insane"}, http.StatusBadRequest},
		{"unknown quiz type", StartRequest{Mode: "city", QuizType: "trivia"}, http.StatusBadRequest},
		{"zero rounds", StartRequest{Mode: "city", Rounds: intPtr(0)}, http.StatusBadRequest},
		{"too many rounds", StartRequest{Mode: "mountain", Rounds: intPtr(11)}, http.StatusBadRequest},
		{"no data", StartRequest{Mode: "building", Difficulty: "hard"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, call{method: http.MethodPost, path: base + "/start", body: tt.req})
			expectStatus(t, w, tt.want)
		})
	}

	w := e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "building"}})
	if got := decode[ErrorResponse](t, w).Error; got != "no data found" {
		t.Errorf("error = %q, want no data found", got)
	}

	w = e.do(t, call{method: http.MethodGet, path: base})
	expectStatus(t, w, http.StatusOK)
	if st := decode[StateResponse](t, w); st.Phase != "not_started" {
		t.Errorf("phase after failed starts = %q, want not_started", st.Phase)
	}
}

func TestRoundsShrinkToAvailableLocations(t *testing.T) {
	e := newTestEnv(t)
	base := "/api/sessions/" + e.newSession(t, "")

	w := e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "city", Rounds: intPtr(10)}})
	expectStatus(t, w, http.StatusOK)
	if st := decode[StateResponse](t, w); st.RoundsPerGame != 2 || st.MaxScore != 20 {
		t.Fatalf("rounds = %d max = %d, want 2 and 20", st.RoundsPerGame, st.MaxScore)
	}
}

func TestTransitionGuards(t *testing.T) {
	e := newTestEnv(t)
	base := "/api/sessions/" + e.newSession(t, "")
	guess := map[string]float64{"lat": -12, "lon": -77}

	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/guess", body: guess}), http.StatusConflict)
	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/next"}), http.StatusConflict)

	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "city"}}), http.StatusOK)
	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "city"}}), http.StatusConflict)
	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/next"}), http.StatusConflict)

	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/guess", body: map[string]float64{"lat": 91, "lon": 0}}), http.StatusBadRequest)
	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/guess", body: map[string]float64{"lat": 1}}), http.StatusBadRequest)

	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/guess", body: guess}), http.StatusOK)
	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/guess", body: guess}), http.StatusConflict)
}

func TestUnknownSession(t *testing.T) {
	e := newTestEnv(t)

	for _, c := range []call{
		{method: http.MethodGet, path: "/api/sessions/nope"},
		{method: http.MethodPost, path: "/api/sessions/nope/start", body: StartRequest{Mode: "city"}},
		{method: http.MethodDelete, path: "/api/sessions/nope"},
	} {
		expectStatus(t, e.do(t, c), http.StatusNotFound)
	}
}

func TestCountryGuessInsideOmitsPath(t *testing.T) {
	e := newTestEnv(t)
	base := "/api/sessions/" + e.newSession(t, "")

	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "country", Rounds: intPtr(1)}}), http.StatusOK)

	w := e.do(t, call{method: http.MethodPost, path: base + "/guess", body: map[string]float64{"lat": 3, "lon": 7}})
	expectStatus(t, w, http.StatusOK)
	g := decode[GuessResponse](t, w)
	if !g.Result.ExactHit || g.Result.Points != 10 || g.Result.DistanceKm != 0 {
		t.Fatalf("result = %+v, want exact hit", g.Result)
	}
	if g.Path != nil {
		t.Fatalf("path = %d points, want none for a hit inside the outline", len(g.Path))
	}
}

func TestCountryGuessOutsideHasPath(t *testing.T) {
	e := newTestEnv(t)
	base := "/api/sessions/" + e.newSession(t, "")

	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "country", Rounds: intPtr(1)}}), http.StatusOK)

	w := e.do(t, call{method: http.MethodPost, path: base + "/guess", body: map[string]float64{"lat": 5, "lon": 12}})
	expectStatus(t, w, http.StatusOK)
	g := decode[GuessResponse](t, w)
	if g.Result.ExactHit || g.Result.DistanceKm <= 0 {
		t.Fatalf("result = %+v, want a miss", g.Result)
	}
	if len(g.Path) != 101 {
		t.Fatalf("path = %d points, want 101", len(g.Path))
	}
}

func TestCountryWithoutOutlineIsUnavailable(t *testing.T) {
	e := newTestEnv(t)
	base := "/api/sessions/" + e.newSession(t, "")

	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "country", Difficulty: "medium", Rounds: intPtr(1)}}), http.StatusOK)

	w := e.do(t, call{method: http.MethodPost, path: base + "/guess", body: map[string]float64{"lat": 1, "lon": 1}})
	expectStatus(t, w, http.StatusServiceUnavailable)
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	w = e.do(t, call{method: http.MethodGet, path: base})
	st := decode[StateResponse](t, w)
	if st.TurnOver || st.PendingGuess == nil {
		t.Fatalf("state = %+v, want pending guess and open turn", st)
	}
}

func TestMountainQuestionShowsElevation(t *testing.T) {
	e := newTestEnv(t)
	base := "/api/sessions/" + e.newSession(t, "")

	w := e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "mountain", Difficulty: "hard", QuizType: "riddle", Rounds: intPtr(1)}})
	expectStatus(t, w, http.StatusOK)
	st := decode[StateResponse](t, w)
	if st.Question == nil || st.Question.Elevation == nil || *st.Question.Elevation != 6768 {
		t.Fatalf("question = %+v, want elevation 6768", st.Question)
	}
	if !strings.HasPrefix(st.Question.Prompt, "Wanted:") {
		t.Errorf("prompt = %q, want riddle form", st.Question.Prompt)
	}
}

func TestResetAndDelete(t *testing.T) {
	e := newTestEnv(t)
	id := e.newSession(t, "")
	base := "/api/sessions/" + id

	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "city"}}), http.StatusOK)

	w := e.do(t, call{method: http.MethodPost, path: base + "/reset"})
	expectStatus(t, w, http.StatusOK)
	if st := decode[StateResponse](t, w); st.Phase != "not_started" || st.Mode != "" || st.Question != nil {
		t.Fatalf("state after reset = %+v", st)
	}

	expectStatus(t, e.do(t, call{method: http.MethodDelete, path: base}), http.StatusOK)
	if n := e.sessions.Len(); n != 0 {
		t.Fatalf("registry holds %d sessions after delete", n)
	}
	expectStatus(t, e.do(t, call{method: http.MethodGet, path: base}), http.StatusNotFound)
}

func TestNewGameAfterFinish(t *testing.T) {
	e := newTestEnv(t)
	base := "/api/sessions/" + e.newSession(t, "")

	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "city", Rounds: intPtr(1)}}), http.StatusOK)
	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/guess", body: map[string]float64{"lat": -12.05, "lon": -77.04}}), http.StatusOK)
	expectStatus(t, e.do(t, call{method: http.MethodPost, path: base + "/next"}), http.StatusOK)

	w := e.do(t, call{method: http.MethodPost, path: base + "/start", body: StartRequest{Mode: "city", Rounds: intPtr(2)}})
	expectStatus(t, w, http.StatusOK)
	if st := decode[StateResponse](t, w); st.TotalScore != 0 || len(st.Results) != 0 || st.Round != 1 {
		t.Fatalf("second game state = %+v", st)
	}
}
