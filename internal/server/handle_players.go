package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/playperu/cityguesser/internal/geoquiz"
)

const (
	maxPlayerNameLen = 20
	historyLimit     = 10
)

type CreatePlayerRequest struct {
	Name string `json:"name"`
}

type PlayerResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayedGames int    `json:"playedGames"`
}

type CreatePlayerResponse struct {
	Player PlayerResponse `json:"player"`
	Token  string         `json:"token"`
}

type HistoryEntryResponse struct {
	Mode     string    `json:"mode"`
	Score    int       `json:"score"`
	Rounds   int       `json:"rounds"`
	PlayedAt time.Time `json:"playedAt"`
}

type PlayerHistoryResponse struct {
	Player  PlayerResponse         `json:"player"`
	History []HistoryEntryResponse `json:"history"`
}

func playerResponse(p geoquiz.Player) PlayerResponse {
	return PlayerResponse{ID: p.ID, Name: p.Name, PlayedGames: p.PlayedGames}
}

func handleCreatePlayer(logger *slog.Logger, players PlayerDirectory, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePlayerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if utf8.RuneCountInString(name) > maxPlayerNameLen {
			writeError(w, http.StatusBadRequest, "name must be at most 20 characters")
			return
		}

		p, err := players.ResolveOrCreatePlayer(r.Context(), name)
		if err != nil {
			writeGameError(w, logger, err)
			return
		}

		token, err := issuePlayerToken(secret, p.ID, p.Name, time.Now())
		if err != nil {
			writeGameError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, CreatePlayerResponse{
			Player: playerResponse(p),
			Token:  token,
		})
	}
}

func handlePlayerHistory(logger *slog.Logger, players PlayerDirectory, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok, err := playerFromRequest(r, secret)
		if !ok || err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		p, err := players.Player(r.Context(), claims.PlayerID)
		if errors.Is(err, geoquiz.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unknown player")
			return
		}
		if err != nil {
			writeGameError(w, logger, err)
			return
		}

		entries, err := players.PlayerHistory(r.Context(), p.ID, historyLimit)
		if err != nil {
			writeGameError(w, logger, err)
			return
		}

		resp := PlayerHistoryResponse{
			Player:  playerResponse(p),
			History: make([]HistoryEntryResponse, 0, len(entries)),
		}
		for _, e := range entries {
			resp.History = append(resp.History, HistoryEntryResponse{
				Mode:     e.ModeLabel,
				Score:    e.Score,
				Rounds:   e.Rounds,
				PlayedAt: e.PlayedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
