package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse documents GET /healthz, keyed by check name.
type HealthResponse map[string]HealthCheckResult

type HealthCheckResult struct {
	Status    string `json:"status"`
	Optional  bool   `json:"optional,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "City Guesser API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the City Guesser geography quiz.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies. Optional checks never fail the probe.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/modes
	getModes, _ := r.NewOperationContext(http.MethodGet, "/api/modes")
	getModes.SetSummary("List game modes")
	getModes.SetDescription("Modes with their round limits, plus the difficulties and quiz types.")
	getModes.AddRespStructure(ModesResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getModes)

	// GET /api/countries/{name}/boundary
	getBoundary, _ := r.NewOperationContext(http.MethodGet, "/api/countries/{name}/boundary")
	getBoundary.SetSummary("Country outline")
	getBoundary.SetDescription("Returns the country's outline as a GeoJSON geometry.")
	getBoundary.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("application/geo+json"))
	getBoundary.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getBoundary)

	// POST /api/players
	postPlayer, _ := r.NewOperationContext(http.MethodPost, "/api/players")
	postPlayer.SetSummary("Register player")
	postPlayer.SetDescription("Resolves or creates a player by name and returns a bearer token.")
	postPlayer.AddReqStructure(CreatePlayerRequest{})
	postPlayer.AddRespStructure(CreatePlayerResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postPlayer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postPlayer)

	// GET /api/players/me/history
	getHistory, _ := r.NewOperationContext(http.MethodGet, "/api/players/me/history")
	getHistory.SetSummary("Player history")
	getHistory.SetDescription("The player's last 10 finished games, newest first. Requires Bearer token.")
	getHistory.AddRespStructure(PlayerHistoryResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHistory.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getHistory)

	// POST /api/sessions
	postSession, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	postSession.SetSummary("Create session")
	postSession.SetDescription("Creates a game session. With a Bearer token the finished games are recorded for that player.")
	postSession.AddRespStructure(CreateSessionResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postSession)

	// GET /api/sessions/{id}
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}")
	getSession.SetSummary("Get session state")
	getSession.AddRespStructure(StateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSession)

	// DELETE /api/sessions/{id}
	deleteSession, _ := r.NewOperationContext(http.MethodDelete, "/api/sessions/{id}")
	deleteSession.SetSummary("Delete session")
	deleteSession.AddRespStructure(StatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	deleteSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteSession)

	// POST /api/sessions/{id}/start
	postStart, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/start")
	postStart.SetSummary("Start game")
	postStart.SetDescription("Fetches the targets and begins round 1. Allowed before the first game and after a finished one.")
	postStart.AddReqStructure(StartRequest{})
	postStart.AddRespStructure(StateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postStart)

	// POST /api/sessions/{id}/guess
	postGuess, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/guess")
	postGuess.SetSummary("Submit guess")
	postGuess.SetDescription("Scores the guess for the current round and returns the path to the target.")
	postGuess.AddReqStructure(GuessRequest{})
	postGuess.AddRespStructure(GuessResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(postGuess)

	// POST /api/sessions/{id}/next
	postNext, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/next")
	postNext.SetSummary("Next round")
	postNext.SetDescription("Advances past a scored round. After the last round the game finishes; a failed save is reported as a warning.")
	postNext.AddRespStructure(NextResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postNext.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postNext)

	// POST /api/sessions/{id}/reset
	postReset, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/reset")
	postReset.SetSummary("Reset session")
	postReset.AddRespStructure(StateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postReset)

	// GET /api/sessions/{id}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events: game_started, round_scored, round_advanced, game_finished, game_reset.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// POST /api/admin/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	postLogin.SetSummary("Admin login")
	postLogin.SetDescription("Sets the admin_session cookie.")
	postLogin.AddReqStructure(AdminLoginRequest{})
	postLogin.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/admin/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/admin/logout")
	postLogout.SetSummary("Admin logout")
	postLogout.AddRespStructure(StatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/admin/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/admin/me")
	getMe.SetSummary("Current admin")
	getMe.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/admin/locations
	listLocations, _ := r.NewOperationContext(http.MethodGet, "/api/admin/locations")
	listLocations.SetSummary("List locations")
	listLocations.SetDescription("Counts per mode; with ?mode= also the locations of that mode. Requires admin_session cookie.")
	listLocations.AddRespStructure(AdminLocationsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listLocations.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listLocations)

	// POST /api/admin/locations
	addLocation, _ := r.NewOperationContext(http.MethodPost, "/api/admin/locations")
	addLocation.SetSummary("Add location")
	addLocation.AddReqStructure(AdminLocationRequest{})
	addLocation.AddRespStructure(AdminLocation{}, openapi.WithHTTPStatus(http.StatusCreated))
	addLocation.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	addLocation.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(addLocation)

	// DELETE /api/admin/locations/{mode}/{id}
	deleteLocation, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/locations/{mode}/{id}")
	deleteLocation.SetSummary("Delete location")
	deleteLocation.AddRespStructure(StatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	deleteLocation.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	deleteLocation.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(deleteLocation)

	// PUT /api/admin/countries/{name}/boundary
	putBoundary, _ := r.NewOperationContext(http.MethodPut, "/api/admin/countries/{name}/boundary")
	putBoundary.SetSummary("Replace country outline")
	putBoundary.SetDescription("Accepts a Polygon or MultiPolygon as WKT or GeoJSON. Requires admin_session cookie.")
	putBoundary.AddReqStructure(BoundaryRequest{})
	putBoundary.AddRespStructure(StatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	putBoundary.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	putBoundary.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(putBoundary)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
