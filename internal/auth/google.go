package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/zenithlearn/zenith-back/internal/config"
	"github.com/zenithlearn/zenith-back/internal/db"
	"github.com/zenithlearn/zenith-back/internal/models"
)

var googleOauthConfig *oauth2.Config

func InitGoogle(cfg *config.Config) {
	googleOauthConfig = &oauth2.Config{
		RedirectURL:  cfg.BaseURL + "/auth/google/callback",
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleSecret,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// GoogleLoginHandler godoc
// @Summary      Login with Google
// @Description  Redirects to the Google consent screen
// @Tags         auth
// @Produce      json
// @Success      307 {string} string
// @Router       /auth/google/login [get]
func GoogleLoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		url := googleOauthConfig.AuthCodeURL("state")
		c.Redirect(http.StatusTemporaryRedirect, url)
	}
}

// GoogleCallbackHandler godoc
// @Summary      Google callback
// @Description  Exchanges the code, provisions the account on first login, and returns a token pair
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} map[string]string
// @Router       /auth/google/callback [get]
func GoogleCallbackHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("code")
		token, err := googleOauthConfig.Exchange(context.Background(), code)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to exchange token"})
			return
		}

		resp, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get user info"})
			return
		}
		defer resp.Body.Close()

		var userInfo struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse user info"})
			return
		}

		ctx := c.Request.Context()
		u, err := svc.store.UserByEmail(ctx, userInfo.Email)
		if err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
				return
			}
			// First Google login: provision account and a student profile.
			// Role can only be picked on the sign-up form; Google logins
			// default to student.
			u = &models.User{
				ID:           uuid.NewString(),
				Email:        userInfo.Email,
				GoogleLinked: true,
			}
			if err := svc.store.CreateUser(ctx, u); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save user"})
				return
			}
			p := models.Profile{
				UserID:       u.ID,
				DisplayName:  userInfo.Name,
				Role:         models.RoleStudent,
				LastActivity: time.Now(),
			}
			if err := svc.store.CreateProfile(ctx, &p); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save profile"})
				return
			}
		}

		pair, err := svc.openSession(u.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"email":         u.Email,
		})
	}
}
