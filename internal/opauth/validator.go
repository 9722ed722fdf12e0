package opauth

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	obsmw "e2estore/internal/observability/middleware"

	"github.com/golang-jwt/jwt/v5"
)

type Validator struct {
	public ed25519.PublicKey
	issuer string
}

func NewValidator(pubB64, issuer string) (*Validator, error) {
	raw, err := base64.StdEncoding.DecodeString(pubB64)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, ErrKeySize
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Validator{public: ed25519.PublicKey(raw), issuer: issuer}, nil
}

// Validate checks signature, expiry, issuer and role and returns the subject.
func (v *Validator) Validate(tokStr string) (string, error) {
	token, err := jwt.Parse(tokStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %T", token.Method)
		}
		return v.public, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	if role, _ := claims[RoleClaim].(string); role != OperatorRole {
		return "", fmt.Errorf("token role %q is not %s", role, OperatorRole)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("no subject")
	}
	return sub, nil
}

// Middleware rejects requests without a valid operator bearer token.
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := obsmw.RequestIDFromContext(r.Context())
		raw := r.Header.Get("Authorization")
		if !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			slog.Warn("operator auth missing bearer", "request_id", reqID)
			return
		}
		sub, err := v.Validate(strings.TrimSpace(raw[len("Bearer "):]))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			slog.Warn("operator auth invalid token", "error", err, "request_id", reqID)
			return
		}
		slog.Debug("operator auth passed", "subject", sub, "request_id", reqID)
		next.ServeHTTP(w, r.WithContext(contextWithSubject(r.Context(), sub)))
	})
}

type subjectKey struct{}

func contextWithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

func SubjectFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey{}).(string)
	return v, ok
}
