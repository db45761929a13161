package utils

import (
	"testing"
	"time"

	"github.com/campusride/campusride-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	user := &models.User{UserType: models.UserTypeDriver}
	user.ID = 42

	token, err := GenerateToken([]byte("secret"), time.Hour, user, "sess")
	require.NoError(t, err)

	claims, err := ValidateToken([]byte("secret"), token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, models.UserTypeDriver, claims.UserType)
	assert.Equal(t, "sess", claims.SessionID)
}

func TestValidateTokenRejects(t *testing.T) {
	user := &models.User{UserType: models.UserTypePassenger}
	user.ID = 1

	token, err := GenerateToken([]byte("secret"), time.Hour, user, "s")
	require.NoError(t, err)
	_, err = ValidateToken([]byte("other"), token)
	assert.Error(t, err, "wrong key")

	expired, err := GenerateToken([]byte("secret"), -time.Minute, user, "s")
	require.NoError(t, err)
	_, err = ValidateToken([]byte("secret"), expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateToken([]byte("secret"), unsigned)
	assert.Error(t, err, "alg none")
}

func TestClaimsUserIDRejectsBadSubject(t *testing.T) {
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"}}
	_, err := c.UserID()
	assert.Error(t, err)
}

func TestHaversineDistance(t *testing.T) {
	// Turin Porta Nuova to Politecnico, about 1.3 km
	d := HaversineDistance(45.0621, 7.6784, 45.0625, 7.6624)
	assert.InDelta(t, 1.26, d, 0.05)
	assert.Zero(t, HaversineDistance(10, 10, 10, 10))

	assert.True(t, IsWithinRadius(45.0621, 7.6784, 45.0625, 7.6624, 5))
	assert.False(t, IsWithinRadius(45.0621, 7.6784, 45.4642, 9.19, 5))
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	box := GetBoundingBox(45.0, 7.0, 10)
	assert.Less(t, box.SouthWest.Lat, 45.0)
	assert.Greater(t, box.NorthEast.Lat, 45.0)
	assert.Less(t, box.SouthWest.Lng, 7.0)
	assert.Greater(t, box.NorthEast.Lng, 7.0)

	edge := HaversineDistance(45.0, 7.0, box.NorthEast.Lat, 7.0)
	assert.InDelta(t, 10, edge, 0.01)
}
