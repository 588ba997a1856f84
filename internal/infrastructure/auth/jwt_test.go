package auth

import (
	"testing"
	"time"

	"github.com/familynest/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars!!"

func newTestValidator() *TokenValidator {
	return NewTokenValidator(config.JWTConfig{
		Secret:   testSecret,
		Issuer:   "https://auth.example.com/auth/v1",
		Audience: "authenticated",
		Leeway:   30 * time.Second,
	})
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func providerClaims(sub string, exp time.Time) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "https://auth.example.com/auth/v1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		},
		Email: "ann@example.com",
	}
}

func TestTokenValidator_DevTokenRoundTrip(t *testing.T) {
	v := newTestValidator()
	userID := uuid.New()
	familyID := uuid.New()

	token, err := v.DevToken(userID, &familyID, time.Hour)
	require.NoError(t, err)

	claims, err := v.Validate(token)
	require.NoError(t, err)
	gotUser, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)

	gotFamily, ok, err := claims.FamilyUUID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, familyID, gotFamily)
}

func TestTokenValidator_Validate(t *testing.T) {
	v := newTestValidator()
	sub := uuid.NewString()
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			name:  "valid provider token",
			token: func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, []byte(testSecret), providerClaims(sub, future)) },
		},
		{
			name: "expired beyond leeway",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), providerClaims(sub, time.Now().Add(-time.Minute)))
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "expired within leeway",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), providerClaims(sub, time.Now().Add(-10*time.Second)))
			},
		},
		{
			name:    "wrong secret",
			token:   func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, []byte("another-secret"), providerClaims(sub, future)) },
			wantErr: ErrInvalidToken,
		},
		{
			name:    "wrong algorithm",
			token:   func(t *testing.T) string { return sign(t, jwt.SigningMethodHS512, []byte(testSecret), providerClaims(sub, future)) },
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				c := providerClaims(sub, future)
				c.Issuer = "https://evil.example.com"
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			wantErr: ErrInvalidClaims,
		},
		{
			name: "wrong audience",
			token: func(t *testing.T) string {
				c := providerClaims(sub, future)
				c.Audience = jwt.ClaimStrings{"anon"}
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			wantErr: ErrInvalidClaims,
		},
		{
			name: "missing expiry",
			token: func(t *testing.T) string {
				c := providerClaims(sub, future)
				c.ExpiresAt = nil
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name:    "missing subject",
			token:   func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, []byte(testSecret), providerClaims("", future)) },
			wantErr: ErrMissingSubject,
		},
		{
			name:    "non-uuid subject",
			token:   func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, []byte(testSecret), providerClaims("user-1", future)) },
			wantErr: ErrInvalidClaims,
		},
		{
			name:    "garbage",
			token:   func(*testing.T) string { return "not.a.jwt" },
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Validate(tt.token(t))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, sub, claims.Subject)
			assert.Equal(t, "ann@example.com", claims.Email)
		})
	}
}

func TestTokenValidator_NoSecret(t *testing.T) {
	v := NewTokenValidator(config.JWTConfig{})
	_, err := v.Validate("x")
	assert.ErrorIs(t, err, ErrMissingSecret)
	_, err = v.DevToken(uuid.New(), nil, time.Minute)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestClaims_FamilyUUID(t *testing.T) {
	c := &Claims{}
	_, ok, err := c.FamilyUUID()
	require.NoError(t, err)
	assert.False(t, ok)

	c.FamilyID = "nope"
	_, _, err = c.FamilyUUID()
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
