// Package auth issues and verifies the bearer tokens that identify learners.
package auth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// Issuer is the iss claim of every access token.
	Issuer = "studydeck"
	// KeyID is the kid header of every access token.
	KeyID = "v1"
	// AccessTokenDuration is the default lifetime of an access token.
	AccessTokenDuration = 24 * time.Hour
)

type contextKey int

// UserIDContextKey is the context key holding the authenticated learner ID.
const UserIDContextKey contextKey = iota

// ClaimsMessage is the payload of an access token.
type ClaimsMessage struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a token for the learner that expires at expirationTime.
// A zero expirationTime produces a token without expiry.
func GenerateAccessToken(username string, userID int32, expirationTime time.Time, secret []byte) (string, error) {
	registeredClaims := jwt.RegisteredClaims{
		Issuer:   Issuer,
		Subject:  strconv.Itoa(int(userID)),
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	if !expirationTime.IsZero() {
		registeredClaims.ExpiresAt = jwt.NewNumericDate(expirationTime)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &ClaimsMessage{
		Name:             username,
		RegisteredClaims: registeredClaims,
	})
	token.Header["kid"] = KeyID

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// Authenticator verifies access tokens.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an authenticator for tokens signed with secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Authenticate parses an Authorization header value and returns the learner ID.
func (a *Authenticator) Authenticate(authHeader string) (int32, error) {
	token, ok := extractBearerToken(authHeader)
	if !ok {
		return 0, errors.New("missing bearer token")
	}

	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if kid, ok := t.Header["kid"].(string); !ok || kid != KeyID {
			return nil, errors.Errorf("unexpected kid %v", t.Header["kid"])
		}
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
	)
	if err != nil {
		return 0, errors.Wrap(err, "invalid access token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil || userID <= 0 {
		return 0, errors.Errorf("invalid subject %q", claims.Subject)
	}
	return int32(userID), nil
}

func extractBearerToken(authHeader string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithUserID returns a context carrying the authenticated learner ID.
func WithUserID(ctx context.Context, userID int32) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserIDFromContext returns the authenticated learner ID, if any.
func UserIDFromContext(ctx context.Context) (int32, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(int32)
	return userID, ok
}
