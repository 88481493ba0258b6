package services

import (
	"sync"
	"testing"
	"time"

	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/models"
	"tasknotes/tasknotes/testutils"
	"tasknotes/tasknotes/utils/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestAuthService() *AuthService {
	return NewAuthService(testSecret, time.Minute, time.Hour, newTestUserService(), NewGormTokenBlacklist())
}

func registerTestUser(t *testing.T, db *database.Database, authService *AuthService, username string) (models.User, TokenPair) {
	t.Helper()
	user, pair, err := authService.Register(db, username, username+"@example.com", "password")
	require.NoError(t, err)
	return user, pair
}

func TestRegister_IssuesPair(t *testing.T) {
	db := testutils.SetupTestDB(t)
	authService := newTestAuthService()

	user, pair := registerTestUser(t, db, authService, "alice")

	claims, err := authService.ValidateToken(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	// A refresh token is not an access token.
	_, err = authService.ValidateToken(pair.Refresh)
	assert.Error(t, err)

	_, _, err = authService.Register(db, "alice", "", "other")
	assert.ErrorIs(t, err, ErrResourceExists)

	// The first account keeps its password.
	_, err = authService.Login(db, "alice", "password")
	assert.NoError(t, err)
	_, err = authService.Login(db, "alice", "other")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin(t *testing.T) {
	db := testutils.SetupTestDB(t)
	authService := newTestAuthService()
	registerTestUser(t, db, authService, "alice")

	pair, err := authService.Login(db, "alice", "password")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	_, err = authService.Login(db, "alice", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = authService.Login(db, "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	db := testutils.SetupTestDB(t)
	authService := newTestAuthService()
	user, pair := registerTestUser(t, db, authService, "alice")

	rotated, err := authService.Refresh(db, pair.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Refresh, rotated.Refresh)

	claims, err := authService.ValidateToken(rotated.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = authService.Refresh(db, pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The rotated token still works once.
	_, err = authService.Refresh(db, rotated.Refresh)
	assert.NoError(t, err)
}

func TestRefresh_InvalidTokens(t *testing.T) {
	db := testutils.SetupTestDB(t)
	authService := newTestAuthService()
	_, pair := registerTestUser(t, db, authService, "alice")

	_, err := authService.Refresh(db, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = authService.Refresh(db, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = authService.Refresh(db, pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	ghost, _, err := token.GenerateToken(uuid.New(), "ghost", token.RefreshToken, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	_, err = authService.Refresh(db, ghost)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthService("another-secret", time.Minute, time.Hour, newTestUserService(), NewGormTokenBlacklist())
	_, err = other.Refresh(db, pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	db := testutils.SetupTestDB(t)
	authService := newTestAuthService()
	_, pair := registerTestUser(t, db, authService, "alice")

	const attempts = 5
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := authService.Refresh(db, pair.Refresh)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInvalidToken)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestLogout(t *testing.T) {
	db := testutils.SetupTestDB(t)
	authService := newTestAuthService()
	alice, alicePair := registerTestUser(t, db, authService, "alice")
	bob, _ := registerTestUser(t, db, authService, "bob")

	err := authService.Logout(db, bob.ID, alicePair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, authService.Logout(db, alice.ID, alicePair.Refresh))

	err = authService.Logout(db, alice.ID, alicePair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = authService.Refresh(db, alicePair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Access tokens stay valid until they expire.
	_, err = authService.ValidateToken(alicePair.Access)
	assert.NoError(t, err)

	assert.ErrorIs(t, authService.Logout(db, alice.ID, ""), ErrValidation)
	assert.ErrorIs(t, authService.Logout(db, uuid.Nil, alicePair.Refresh), ErrUnauthorized)
	assert.ErrorIs(t, authService.Logout(db, alice.ID, "garbage"), ErrInvalidToken)
}

func TestTokenBlacklist(t *testing.T) {
	db := testutils.SetupTestDB(t)
	blacklist := NewGormTokenBlacklist()
	userID := uuid.New()
	now := time.Now()

	revoked, err := blacklist.IsRevoked(db, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, blacklist.Revoke(db, "jti-1", userID, now.Add(time.Hour)))
	assert.ErrorIs(t, blacklist.Revoke(db, "jti-1", userID, now.Add(time.Hour)), ErrTokenRevoked)

	revoked, err = blacklist.IsRevoked(db, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, blacklist.Revoke(db, "jti-old", userID, now.Add(-time.Hour)))

	purged, err := blacklist.PurgeExpired(db, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	revoked, err = blacklist.IsRevoked(db, "jti-old")
	require.NoError(t, err)
	assert.False(t, revoked)
	revoked, err = blacklist.IsRevoked(db, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}
