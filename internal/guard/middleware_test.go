package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithlearn/zenith-back/internal/auth"
	"github.com/zenithlearn/zenith-back/internal/config"
	"github.com/zenithlearn/zenith-back/internal/db/inmem"
	"github.com/zenithlearn/zenith-back/internal/models"
)

func TestBearerSourceResolvesSession(t *testing.T) {
	svc := auth.NewService(&config.Config{JWTSecret: "test-secret"}, inmem.Open())
	pair, _, err := svc.SignUp(context.Background(), auth.SignUpInput{
		Email:       "alex@example.com",
		Password:    "hunter2hunter2",
		DisplayName: "Alex Rivera",
		Role:        models.RoleStudent,
	})
	require.NoError(t, err)

	sess, err := BearerSource(svc, pair.AccessToken).Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.ID)
	assert.NotEmpty(t, sess.UserID)

	sess, err = BearerSource(svc, "").Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess, "no token reads as no session, not an error")
}
