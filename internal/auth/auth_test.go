package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/factory-report-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	user := domain.User{ID: "john", Name: "John Smith", Role: domain.RoleTechnician}

	token, exp, err := tm.GenerateToken("session-1", user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.ID)
	assert.Equal(t, "john", claims.Subject)
	assert.Equal(t, domain.RoleTechnician, claims.Role)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret", 30).GenerateToken("s", domain.User{ID: "mike"})
	require.NoError(t, err)

	_, err = NewTokenManager("other", 30).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsExpired(t *testing.T) {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", 1).WithClock(func() time.Time { return issued })
	token, _, err := tm.GenerateToken("s", domain.User{ID: "mike"})
	require.NoError(t, err)

	tm.WithClock(func() time.Time { return issued.Add(2 * time.Minute) })
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestHashAccounts(t *testing.T) {
	creds, err := HashAccounts(DefaultAccounts, bcrypt.MinCost)
	require.NoError(t, err)
	require.Len(t, creds, len(DefaultAccounts))

	for i, cred := range creds {
		assert.NotEqual(t, DefaultAccounts[i].Password, cred.PasswordHash)
		assert.NoError(t, ComparePassword(cred.PasswordHash, DefaultAccounts[i].Password))
		assert.Error(t, ComparePassword(cred.PasswordHash, "wrong"))
	}
}
