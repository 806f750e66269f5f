package utils

import (
	"testing"

	"taskhub-backend/shared/database/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()

	token, err := GenerateJWT(userID, "owner@example.com", models.RoleOwner, orgID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.Equal(t, string(models.RoleOwner), claims.Role)
	assert.Equal(t, orgID.String(), claims.OrganizationID)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	_, err := ValidateJWT("not-a-token")
	assert.Error(t, err)
}

func TestRefreshJWTRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateRefreshJWT(userID, "viewer@example.com")
	require.NoError(t, err)

	claims, err := ValidateRefreshJWT(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("longenough"))
	assert.Error(t, ValidatePassword("short"))
}

func TestGenerateSessionID(t *testing.T) {
	first, err := GenerateSessionID()
	require.NoError(t, err)
	second, err := GenerateSessionID()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
}
