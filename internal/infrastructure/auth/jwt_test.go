package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labelprint/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestTokenService() *TokenService {
	return NewTokenService(config.AuthConfig{
		Enabled:         true,
		Secret:          testSecret,
		Issuer:          "test-issuer",
		TokenExpiration: 15 * time.Minute,
	})
}

func TestNewTokenService(t *testing.T) {
	svc := newTestTokenService()

	assert.Equal(t, []byte(testSecret), svc.secret)
	assert.Equal(t, "test-issuer", svc.issuer)
	assert.Equal(t, 15*time.Minute, svc.Expiration())
}

func TestIssueAndValidate(t *testing.T) {
	svc := newTestTokenService()

	token, expiresAt, err := svc.Issue("lims")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "lims", claims.Client)
	assert.Equal(t, "lims", claims.Subject)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.True(t, claims.HasScope(ScopeRender))
	assert.True(t, claims.HasScope(ScopeRead))
	assert.NotEmpty(t, claims.ID)
}

func TestIssue_Scopes(t *testing.T) {
	svc := newTestTokenService()

	token, _, err := svc.Issue("viewer", ScopeRead)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.True(t, claims.HasScope(ScopeRead))
	assert.False(t, claims.HasScope(ScopeRender))
}

func TestIssue_Errors(t *testing.T) {
	_, _, err := newTestTokenService().Issue("")
	assert.ErrorIs(t, err, ErrMissingClient)

	_, _, err = NewTokenService(config.AuthConfig{}).Issue("lims")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestValidate_Expired(t *testing.T) {
	svc := newTestTokenService()
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := svc.Issue("lims")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_NotYetValid(t *testing.T) {
	svc := newTestTokenService()
	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	token, _, err := svc.Issue("lims")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrTokenNotYetValid)
}

func TestValidate_Invalid(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenService(config.AuthConfig{Secret: "another-secret-key-at-least-32-chars", Issuer: "test-issuer", TokenExpiration: time.Minute})
	token, _, err := other.Issue("lims")
	require.NoError(t, err)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "signature from another secret")

	foreign := NewTokenService(config.AuthConfig{Secret: testSecret, Issuer: "someone-else", TokenExpiration: time.Minute})
	token, _, err = foreign.Issue("lims")
	require.NoError(t, err)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "issuer mismatch")
}

func TestValidate_MissingClient(t *testing.T) {
	svc := newTestTokenService()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "test-issuer",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrMissingClient)
}

func TestValidate_RejectsNonHMAC(t *testing.T) {
	svc := newTestTokenService()
	claims := &Claims{Client: "lims", RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
