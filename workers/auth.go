package workers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"xrplprover/workers/handlers"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const tokenIssuer = "xrpl-prover"

// CallerClaims identify the Amplifier address a request is made on behalf
// of; the address is the token subject.
type CallerClaims struct {
	jwt.RegisteredClaims
}

// NewCallerToken signs a bearer token for sender.
func NewCallerToken(secret []byte, sender string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   sender,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseCallerToken validates a bearer token and returns its subject.
func ParseCallerToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CallerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*CallerClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// Authenticate resolves the caller of a request from its bearer token.
// Requests without a token are anonymous; a bad token is rejected.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || len(secret) == 0 {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}

			sender, err := ParseCallerToken(secret, tokenString)
			if err != nil {
				log.WithError(err).WithField("path", r.URL.Path).Info("rejected bearer token")
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(handlers.WithSender(r.Context(), sender)))
		})
	}
}
