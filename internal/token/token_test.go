package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pledger/pkg/domain"
	dErrors "pledger/pkg/domain-errors"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("test-key", "pledger")

	bearer, err := svc.GenerateToken(id.Identity("user-1"), time.Hour)
	require.NoError(t, err)

	caller, err := svc.ValidateToken(bearer)
	require.NoError(t, err)
	assert.Equal(t, id.Identity("user-1"), caller)
}

func TestExpiredToken(t *testing.T) {
	svc := NewService("test-key", "pledger")

	bearer, err := svc.GenerateToken(id.Identity("user-1"), -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(bearer)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestWrongKey(t *testing.T) {
	minter := NewService("key-a", "pledger")
	validator := NewService("key-b", "pledger")

	bearer, err := minter.GenerateToken(id.Identity("user-1"), time.Hour)
	require.NoError(t, err)

	_, err = validator.ValidateToken(bearer)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestGarbageToken(t *testing.T) {
	svc := NewService("test-key", "pledger")
	_, err := svc.ValidateToken("not-a-token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
