// Package auth authenticates dashboard agents: bcrypt-backed credential
// verification and stateless JWT tokens carrying the agent identity. The
// customer widget is anonymous by design; only the agent surface is guarded.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for unknown usernames and wrong
// passwords alike, so login responses cannot be used to probe accounts.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// ErrInvalidToken is returned when a presented token fails verification.
var ErrInvalidToken = errors.New("auth: invalid token")

// Identity describes an authenticated agent.
type Identity struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}

// Claims is the JWT payload issued for an agent login.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// CredentialStore verifies agent logins. The in-memory Store serves demos
// and tests; deployments wrap their user directory behind this interface.
type CredentialStore interface {
	Authenticate(username, password string) (*Identity, error)
}

type record struct {
	identity Identity
	hash     []byte
}

// Store is an in-memory CredentialStore holding bcrypt password hashes.
type Store struct {
	mu    sync.RWMutex
	users map[string]record
}

// NewStore constructs an empty credential store.
func NewStore() *Store {
	return &Store{users: make(map[string]record)}
}

// Add registers an agent account, hashing the password with bcrypt.
func (s *Store) Add(username, password string, identity Identity) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = record{identity: identity, hash: hash}
	return nil
}

// Authenticate verifies the username/password pair.
func (s *Store) Authenticate(username, password string) (*Identity, error) {
	s.mu.RLock()
	rec, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(rec.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	identity := rec.identity
	return &identity, nil
}

// TokenIssuer signs and verifies agent tokens with an HMAC secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// TokenIssuerOptions configures a TokenIssuer.
type TokenIssuerOptions struct {
	// TTL is the token lifetime. Defaults to 12 hours, roughly one shift.
	TTL time.Duration

	// Issuer is the iss claim value.
	Issuer string
}

// NewTokenIssuer creates an issuer signing with the given secret.
func NewTokenIssuer(secret []byte, optFns ...func(o *TokenIssuerOptions)) *TokenIssuer {
	opts := TokenIssuerOptions{
		TTL:    12 * time.Hour,
		Issuer: "supportmesh",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &TokenIssuer{secret: secret, ttl: opts.TTL, issuer: opts.Issuer}
}

// Issue signs a token for the identity.
func (t *TokenIssuer) Issue(identity Identity) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Name: identity.Name,
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.AgentID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the embedded identity.
func (t *TokenIssuer) Verify(tokenString string) (*Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &Identity{AgentID: claims.Subject, Name: claims.Name, Role: claims.Role}, nil
}
