package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithlearn/zenith-back/internal/config"
	"github.com/zenithlearn/zenith-back/internal/db/inmem"
	"github.com/zenithlearn/zenith-back/internal/models"
)

func newTestService() (*Service, *inmem.Store) {
	store := inmem.Open()
	cfg := &config.Config{JWTSecret: "test-secret"}
	return NewService(cfg, store), store
}

func signUpStudent(t *testing.T, svc *Service) *TokenPair {
	t.Helper()
	pair, _, err := svc.SignUp(context.Background(), SignUpInput{
		Email:       "alex@example.com",
		Password:    "hunter2hunter2",
		DisplayName: "Alex Rivera",
		Role:        models.RoleStudent,
		ClassCode:   "AB12CD",
	})
	require.NoError(t, err)
	return pair
}

func TestSignUpCreatesProfileAndSession(t *testing.T) {
	svc, store := newTestService()

	pair, profile, err := svc.SignUp(context.Background(), SignUpInput{
		Email:       "chen@example.com",
		Password:    "hunter2hunter2",
		DisplayName: "Ms. Chen",
		Role:        models.RoleTeacher,
		Institution: "Zenith High",
	})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	assert.Equal(t, models.RoleTeacher, profile.Role)
	assert.Equal(t, "Zenith High", profile.Institution)
	assert.Empty(t, profile.ClassCode)

	sess, err := svc.Current(pair.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, sess)

	stored, err := store.ProfileByUserID(context.Background(), sess.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Ms. Chen", stored.DisplayName)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	signUpStudent(t, svc)

	_, _, err := svc.SignUp(context.Background(), SignUpInput{
		Email:       "alex@example.com",
		Password:    "hunter2hunter2",
		DisplayName: "Other Alex",
		Role:        models.RoleStudent,
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignInVerifiesPassword(t *testing.T) {
	svc, _ := newTestService()
	signUpStudent(t, svc)

	pair, err := svc.SignIn(context.Background(), "alex@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = svc.SignIn(context.Background(), "alex@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(context.Background(), "nobody@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOutRevokesAndNotifies(t *testing.T) {
	svc, _ := newTestService()
	pair := signUpStudent(t, svc)

	sess, err := svc.Current(pair.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, sess)

	events, unsubscribe := svc.Watch(sess.ID)
	defer unsubscribe()

	svc.SignOut(sess.ID)

	got := <-events
	assert.Nil(t, got, "watchers are told the session is gone")

	sess, err = svc.Current(pair.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, sess, "a revoked session reads as unauthenticated")
}

func TestSignOutConcurrentWithWatchers(t *testing.T) {
	svc, _ := newTestService()
	pair := signUpStudent(t, svc)

	sess, err := svc.Current(pair.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, sess)

	// watchers churn while sign-out broadcasts; run under -race
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_, unsubscribe := svc.Watch(sess.ID)
			unsubscribe()
		}
	}()

	for i := 0; i < 200; i++ {
		svc.SignOut(sess.ID)
	}
	<-done

	got, err := svc.Current(pair.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRefreshKeepsSession(t *testing.T) {
	svc, _ := newTestService()
	pair := signUpStudent(t, svc)

	oldSess, err := svc.Current(pair.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, oldSess)

	next, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)

	newSess, err := svc.Current(next.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, newSess)
	assert.Equal(t, oldSess.ID, newSess.ID, "refresh does not open a new session")
}

func TestRefreshRejectsAccessTokenAndRevokedSession(t *testing.T) {
	svc, _ := newTestService()
	pair := signUpStudent(t, svc)

	_, err := svc.Refresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	sess, err := svc.Current(pair.AccessToken)
	require.NoError(t, err)
	svc.SignOut(sess.ID)

	_, err = svc.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsExpiredSession(t *testing.T) {
	svc, _ := newTestService()
	pair := signUpStudent(t, svc)

	sess, err := svc.Current(pair.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, sess)

	svc.mutex.Lock()
	svc.sessions[sess.ID].Expiry = time.Now().Add(-time.Minute)
	svc.mutex.Unlock()

	_, err = svc.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPruneExpiredSessions(t *testing.T) {
	svc, _ := newTestService()
	pair := signUpStudent(t, svc)

	live, err := svc.SignIn(context.Background(), "alex@example.com", "hunter2hunter2")
	require.NoError(t, err)

	lapsed, err := svc.Current(pair.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, lapsed)

	svc.mutex.Lock()
	svc.sessions[lapsed.ID].Expiry = time.Now().Add(-time.Minute)
	svc.mutex.Unlock()

	assert.Equal(t, 1, svc.PruneExpiredSessions())

	gone, err := svc.Current(pair.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := svc.Current(live.AccessToken)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestCurrentWithGarbageToken(t *testing.T) {
	svc, _ := newTestService()

	sess, err := svc.Current("not-a-jwt")
	assert.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = svc.Current("")
	assert.NoError(t, err)
	assert.Nil(t, sess)
}
