package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TypeAccess is the token_type claim value of access tokens.
	TypeAccess = "access"
	// TypeRefresh is the token_type claim value of refresh tokens.
	TypeRefresh = "refresh"
)

// ErrInvalidToken is returned by DecodeRefresh for any token that fails
// signature, shape, expiry, or type checks. Callers get no finer detail by
// design.
var ErrInvalidToken = errors.New("invalid token")

// Config holds the signing parameters. Secret is an HMAC-SHA256 key; both
// lifetimes are fixed configuration, not per-call inputs.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// Codec signs and verifies the access/refresh token pair. It is stateless
// and safe for concurrent use.
type Codec struct {
	config Config
}

// AccessClaims are embedded in access tokens. Subject carries the user ID.
type AccessClaims struct {
	Role      string `json:"role,omitempty"`
	Verified  bool   `json:"verified"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// RefreshClaims are embedded in refresh tokens. Subject carries the user ID
// and ID (jti) carries the session ID, binding token and session in both
// directions.
type RefreshClaims struct {
	Verified  bool   `json:"verified"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Pair is an issued token pair plus the refresh token's encoded expiry. The
// session TTL in the store derives from RefreshExpiresAt so store TTL and
// token validity never drift apart.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// NewCodec validates the config and returns a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("signing secret required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	return &Codec{config: cfg}, nil
}

// IssuePair signs a new access/refresh pair for the given user. The refresh
// token's jti claim is set to sessionID.
func (c *Codec) IssuePair(userID, role string, verified bool, sessionID string) (Pair, error) {
	now := time.Now()
	refreshExpiry := now.Add(c.config.RefreshTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Role:      role,
		Verified:  verified,
		TokenType: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.AccessTTL)),
		},
	})
	accessStr, err := access.SignedString(c.config.Secret)
	if err != nil {
		return Pair{}, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		Verified:  verified,
		TokenType: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        sessionID,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExpiry),
		},
	})
	refreshStr, err := refresh.SignedString(c.config.Secret)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:      accessStr,
		RefreshToken:     refreshStr,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// DecodeRefresh verifies signature, algorithm, and expiry, and rejects any
// token whose token_type claim is not "refresh".
func (c *Codec) DecodeRefresh(tokenStr string) (*RefreshClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &RefreshClaims{}, func(t *jwt.Token) (interface{}, error) {
		return c.config.Secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*RefreshClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != TypeRefresh {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// DecodeAccess verifies an access token. Route middleware uses this; the
// engine itself never accepts access tokens for state changes.
func (c *Codec) DecodeAccess(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return c.config.Secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.TokenType != TypeAccess {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
