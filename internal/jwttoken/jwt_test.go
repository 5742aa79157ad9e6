package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "civicwatch/pkg/domain"
	dErrors "civicwatch/pkg/domain-errors"
)

var jwtService = NewService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var userID = id.NewUserID()
var role = "trusted_reporter"
var expiresIn = time.Hour

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(userID, role, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, role, claims.Role)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(userID, role, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "token has expired", dErrors.MessageOf(err))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewService("another-signing-key", "test-issuer", "test-audience")
	token, err := other.GenerateAccessToken(userID, role, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ExtractUserID(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(userID, role, expiresIn)
	require.NoError(t, err)

	got, err := jwtService.ExtractUserID(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}
