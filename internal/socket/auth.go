package socket

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/smartschoolbus/tracker/internal/models"
)

// AuthError is fatal to the connection attempt: no session is established.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "authentication error: " + e.Reason }

type UserStore interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
}

type BusStore interface {
	BusByAPIKey(ctx context.Context, apiKey string) (*models.Bus, error)
}

// Authenticator turns connection-time credentials into an Identity.
type Authenticator struct {
	users  UserStore
	buses  BusStore
	secret []byte
	log    *zap.Logger
}

func NewAuthenticator(users UserStore, buses BusStore, secret []byte, log *zap.Logger) *Authenticator {
	return &Authenticator{users: users, buses: buses, secret: secret, log: log}
}

// Resolve checks the two credential schemes in precedence order: a bearer
// token in the authorization header makes a viewer session, an API key
// makes a device session. Exactly one credential must be presented; a
// connection can never hold both a viewer and a device identity.
func (a *Authenticator) Resolve(ctx context.Context, authHeader, apiKey string) (Identity, error) {
	switch {
	case authHeader != "" && apiKey != "":
		return nil, &AuthError{Reason: "ambiguous credentials"}
	case authHeader != "":
		return a.resolveViewer(ctx, authHeader)
	case apiKey != "":
		return a.resolveDevice(ctx, apiKey)
	default:
		return nil, &AuthError{Reason: "no credentials provided"}
	}
}

func (a *Authenticator) resolveViewer(ctx context.Context, authHeader string) (Identity, error) {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return nil, &AuthError{Reason: "token not provided"}
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, &AuthError{Reason: "invalid token"}
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, &AuthError{Reason: "invalid token subject"}
	}

	user, err := a.users.UserByID(ctx, userID)
	if err != nil {
		a.log.Error("user lookup failed during auth", zap.Int64("user_id", userID), zap.Error(err))
		return nil, &AuthError{Reason: "invalid credentials"}
	}
	if user == nil || !user.IsActive {
		return nil, &AuthError{Reason: "user not found or inactive"}
	}
	return Viewer{UserID: user.ID, Role: user.Role}, nil
}

func (a *Authenticator) resolveDevice(ctx context.Context, apiKey string) (Identity, error) {
	bus, err := a.buses.BusByAPIKey(ctx, apiKey)
	if err != nil {
		a.log.Error("bus lookup failed during auth", zap.Error(err))
		return nil, &AuthError{Reason: "invalid credentials"}
	}
	if bus == nil {
		return nil, &AuthError{Reason: "invalid api key"}
	}
	return &Device{BusID: bus.ID}, nil
}
