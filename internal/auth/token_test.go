package auth

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-service/internal/domain"
)

var testKey = bytes.Repeat([]byte("k"), 32)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestCodec(t *testing.T, now time.Time) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(testKey, time.Hour, WithClock(fixedClock(now)))
	require.NoError(t, err)
	return codec
}

func tamperSignature(token string) string {
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}

func TestDecodeSigningKey(t *testing.T) {
	key, err := DecodeSigningKey(base64.StdEncoding.EncodeToString(testKey))
	require.NoError(t, err)
	assert.Equal(t, testKey, key)

	_, err = DecodeSigningKey("")
	assert.Error(t, err)

	_, err = DecodeSigningKey("not base64!")
	assert.Error(t, err)

	_, err = DecodeSigningKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func TestNewTokenCodecRejectsBadConfig(t *testing.T) {
	_, err := NewTokenCodec([]byte("short"), time.Hour)
	assert.Error(t, err)

	_, err = NewTokenCodec(testKey, 0)
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, now)

	token, err := codec.Issue(&domain.User{Username: "alice"})
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, claims.IssuedAt.Equal(now))
	assert.True(t, claims.ExpiresAt.Equal(now.Add(codec.TTL())))
	assert.Equal(t, time.Hour, codec.TTL())

	subject, err := codec.ExtractSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestIssueProducesDistinctTokenIDs(t *testing.T) {
	codec := newTestCodec(t, time.Now())
	user := &domain.User{Username: "alice"}

	first, err := codec.Issue(user)
	require.NoError(t, err)
	second, err := codec.Issue(user)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = codec.Issue(&domain.User{})
	assert.Error(t, err)
}

func TestVerifyExpired(t *testing.T) {
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := newTestCodec(t, issued).Issue(&domain.User{Username: "alice"})
	require.NoError(t, err)

	later := newTestCodec(t, issued.Add(2*time.Hour))
	_, err = later.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	atExpiry := newTestCodec(t, issued.Add(time.Hour))
	_, err = atExpiry.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyExpiredWinsOverBadSignature(t *testing.T) {
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := newTestCodec(t, issued).Issue(&domain.User{Username: "alice"})
	require.NoError(t, err)

	_, err = newTestCodec(t, issued.Add(2*time.Hour)).Verify(tamperSignature(token))
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyTamperedSignature(t *testing.T) {
	codec := newTestCodec(t, time.Now())
	token, err := codec.Issue(&domain.User{Username: "alice"})
	require.NoError(t, err)

	_, err = codec.Verify(tamperSignature(token))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	now := time.Now()
	codec := newTestCodec(t, now)

	otherKey, err := NewTokenCodec(bytes.Repeat([]byte("x"), 32), time.Hour)
	require.NoError(t, err)
	foreign, err := otherKey.Issue(&domain.User{Username: "alice"})
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{Subject: "alice", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testKey)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"}).SignedString(testKey)
	require.NoError(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(testKey)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":     "not-a-token",
		"empty":       "",
		"foreign key": foreign,
		"wrong alg":   hs512,
		"no exp":      noExp,
		"no subject":  noSub,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Verify(token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}
