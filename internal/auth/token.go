package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"user-service/internal/domain"
)

// minSigningKeyBytes is the HS256 key size floor (256 bits).
const minSigningKeyBytes = 32

// Claims is the verified content of a session token.
type Claims struct {
	Subject   string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec issues and verifies HS256 session tokens. It holds no mutable
// state after construction and is safe for concurrent use.
type TokenCodec struct {
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for iat/exp and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// DecodeSigningKey decodes the base64 secret from configuration.
func DecodeSigningKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, errors.New("signing key is empty")
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	if len(key) < minSigningKeyBytes {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", minSigningKeyBytes, len(key))
	}
	return key, nil
}

func NewTokenCodec(key []byte, ttl time.Duration, opts ...CodecOption) (*TokenCodec, error) {
	if len(key) < minSigningKeyBytes {
		return nil, fmt.Errorf("signing key must be at least %d bytes", minSigningKeyBytes)
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	c := &TokenCodec{
		key: append([]byte(nil), key...),
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// TTL reports the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a fresh token for user. Every call yields a distinct token id.
func (c *TokenCodec) Issue(user *domain.User) (string, error) {
	if user == nil || user.Username == "" {
		return "", errors.New("token subject is required")
	}

	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   user.Username,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks structure, algorithm, signature and expiry. A decodable token
// whose exp has passed is reported as ErrTokenExpired even if its signature
// does not verify.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || c.expired(claims) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	out := &Claims{
		Subject:   claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// ExtractSubject verifies token and returns its subject.
func (c *TokenCodec) ExtractSubject(token string) (string, error) {
	claims, err := c.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// expired mirrors the jwt validator: a token is expired once now >= exp.
func (c *TokenCodec) expired(claims *jwt.RegisteredClaims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return !c.now().Before(claims.ExpiresAt.Time)
}
