package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const playerTokenTTL = 30 * 24 * time.Hour

// playerClaims identify a player across sessions.
type playerClaims struct {
	PlayerID string `json:"pid"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

var errNoPlayer = errors.New("no valid player token")

func issuePlayerToken(secret []byte, playerID, name string, now time.Time) (string, error) {
	claims := playerClaims{
		PlayerID: playerID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(playerTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parsePlayerToken(secret []byte, token string) (playerClaims, error) {
	var claims playerClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return playerClaims{}, fmt.Errorf("%w: %w", errNoPlayer, err)
	}
	if claims.PlayerID == "" {
		return playerClaims{}, errNoPlayer
	}
	return claims, nil
}

// playerFromRequest reads the bearer token. ok is false when the request
// carries no Authorization header at all.
func playerFromRequest(r *http.Request, secret []byte) (claims playerClaims, ok bool, err error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return playerClaims{}, false, nil
	}
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return playerClaims{}, true, errNoPlayer
	}
	claims, err = parsePlayerToken(secret, token)
	return claims, true, err
}
