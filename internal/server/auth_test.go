package server

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestPlayerTokenRoundTrip(t *testing.T) {
	token, err := issuePlayerToken(testSecret, "p1", "Maria", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	claims, err := parsePlayerToken(testSecret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.PlayerID != "p1" || claims.Name != "Maria" || claims.Subject != "p1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestPlayerTokenRejected(t *testing.T) {
	expired, _ := issuePlayerToken(testSecret, "p1", "Maria", time.Now().Add(-2*playerTokenTTL))
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, playerClaims{PlayerID: "p1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	empty, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, playerClaims{}).SignedString(testSecret)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"alg none", unsigned},
		{"no player id", empty},
		{"malformed", "a.b.c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parsePlayerToken(testSecret, tt.token); !errors.Is(err, errNoPlayer) {
				t.Fatalf("err = %v, want errNoPlayer", err)
			}
		})
	}
}

func TestPlayerFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if _, ok, err := playerFromRequest(req, testSecret); ok || err != nil {
		t.Fatalf("no header: ok=%v err=%v", ok, err)
	}

	req.Header.Set("Authorization", "Basic abc")
	if _, ok, err := playerFromRequest(req, testSecret); !ok || err == nil {
		t.Fatalf("basic auth: ok=%v err=%v", ok, err)
	}
}
