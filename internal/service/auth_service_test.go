package service

import (
	"testing"

	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	svc := NewAuthService(
		config.JWTConfig{SecretKey: "operator-secret", ExpireHours: 2},
		config.JWTConfig{SecretKey: "user-secret"},
	)

	token, _, err := svc.GenerateUserJWT(&models.User{ID: 7, Email: "u@example.com", TokenVersion: 3})
	require.NoError(t, err)
	claims, err := ParseUserJWT("user-secret", token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, uint64(3), claims.TokenVersion)

	_, err = ParseUserJWT("operator-secret", token)
	assert.Error(t, err, "user token must not verify with the operator secret")

	opToken, _, err := svc.GenerateOperatorJWT(&models.Operator{ID: 2, Username: "ops"})
	require.NoError(t, err)
	opClaims, err := ParseOperatorJWT("operator-secret", opToken)
	require.NoError(t, err)
	assert.Equal(t, "ops", opClaims.Username)

	_, err = ParseOperatorJWT("operator-secret", token)
	assert.Error(t, err, "user token lacks operator_id")
}
