package guard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zenithlearn/zenith-back/internal/auth"
	"github.com/zenithlearn/zenith-back/internal/models"
)

// bearerSource reads the session out of one request's bearer token.
type bearerSource struct {
	svc   *auth.Service
	token string
}

func (b bearerSource) Current(ctx context.Context) (*Session, error) {
	sess, err := b.svc.Current(b.token)
	if err != nil || sess == nil {
		return nil, err
	}
	return &Session{ID: sess.ID, UserID: sess.UserID}, nil
}

// BearerSource is the per-request SessionSource backed by a bearer token.
func BearerSource(svc *auth.Service, token string) SessionSource {
	return bearerSource{svc: svc, token: token}
}

// RequireRole guards a route group behind the state machine. Redirect
// decisions become 303s; a transport failure becomes a 503 the client may
// retry, never a redirect.
func RequireRole(svc *auth.Service, profiles ProfileResolver, required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		src := BearerSource(svc, auth.BearerToken(c))
		g := New(src, profiles, required)

		decision := g.Resolve(c.Request.Context())
		switch decision.State {
		case StateAllowed:
			c.Set("user_id", decision.Session.UserID)
			c.Set("session_id", decision.Session.ID)
			c.Set("profile", decision.Profile)
			c.Next()
		case StateRedirectSignIn, StateRedirectOtherRole:
			c.Redirect(http.StatusSeeOther, decision.Target)
			c.Abort()
		default:
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":     "Temporarily unavailable",
				"retryable": true,
			})
		}
	}
}
