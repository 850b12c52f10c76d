package store

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"bookswap/pkg/domain"
)

const (
	// DefaultSessionTTL is the lifetime of a session token.
	DefaultSessionTTL = 7 * 24 * time.Hour
	// sessionLeeway is clock skew tolerance for token validation.
	sessionLeeway = 30 * time.Second

	sessionIssuer = "bookswap"
)

// JWTSessionStore issues and validates stateless HS256 session tokens.
type JWTSessionStore struct {
	secret []byte
	ttl    time.Duration
}

type sessionClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTSessionStore builds a session store around the shared secret.
// A non-positive ttl falls back to DefaultSessionTTL.
func NewJWTSessionStore(secret string, ttl time.Duration) *JWTSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &JWTSessionStore{secret: []byte(secret), ttl: ttl}
}

// NewSession signs a token carrying the user id and role.
func (s *JWTSessionStore) NewSession(userID string, role domain.UserRole) (string, error) {
	if userID == "" {
		return "", errors.New("user id required")
	}
	now := time.Now().UTC()
	claims := sessionClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// GetSession validates a token and returns the session it carries.
// Invalid, expired, or foreign tokens report ok=false without an error;
// the caller treats all of those as an unauthenticated request.
func (s *JWTSessionStore) GetSession(token string) (Session, bool, error) {
	claims := sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(sessionLeeway),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Session{}, false, nil
	}
	role := domain.UserRole(claims.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return Session{UserID: claims.Subject, Role: role}, true, nil
}
