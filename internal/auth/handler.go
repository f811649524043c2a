package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/zenithlearn/zenith-back/internal/models"
)

type SignUpRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	DisplayName     string `json:"display_name" binding:"required"`
	Role            string `json:"role" binding:"required,oneof=student teacher"`
	ClassCode       string `json:"class_code"`
	Institution     string `json:"institution"`
	GradeLevel      string `json:"grade_level"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// bindError turns validator failures into a field-level message instead of
// the raw validator string.
func bindError(err error) gin.H {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return gin.H{"error": "Invalid request", "field": fe.Field(), "rule": fe.Tag()}
	}
	return gin.H{"error": "Invalid request"}
}

// SignUpHandler godoc
// @Summary      Create an account
// @Description  Registers a user, creates the profile row with the chosen role, and signs in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  SignUpRequest  true  "Account info"
// @Success      201   {object} map[string]interface{}
// @Failure      400   {object} map[string]string
// @Failure      409   {object} map[string]string
// @Router       /auth/signup [post]
func SignUpHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignUpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, bindError(err))
			return
		}

		pair, profile, err := svc.SignUp(c.Request.Context(), SignUpInput{
			Email:       req.Email,
			Password:    req.Password,
			DisplayName: req.DisplayName,
			Role:        models.Role(req.Role),
			ClassCode:   req.ClassCode,
			Institution: req.Institution,
			GradeLevel:  req.GradeLevel,
		})
		if err != nil {
			if errors.Is(err, ErrEmailTaken) {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"profile":       profile,
		})
	}
}

// SignInHandler godoc
// @Summary      Sign in
// @Description  Verifies credentials and returns a token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  SignInRequest  true  "Credentials"
// @Success      200   {object} TokenPair
// @Failure      400   {object} map[string]string
// @Failure      401   {object} map[string]string
// @Router       /auth/signin [post]
func SignInHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignInRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, bindError(err))
			return
		}

		pair, err := svc.SignIn(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign in failed"})
			return
		}

		c.JSON(http.StatusOK, pair)
	}
}

// SignOutHandler godoc
// @Summary      Sign out
// @Description  Revokes the current session; open pages watching it are notified
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]string
// @Security     BearerAuth
// @Router       /auth/signout [post]
func SignOutHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.SignOut(c.GetString("session_id"))
		c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
	}
}

// RefreshHandler godoc
// @Summary      Refresh tokens
// @Description  Trades a refresh token for a new access/refresh pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  RefreshRequest  true  "Refresh token"
// @Success      200   {object} TokenPair
// @Failure      400   {object} map[string]string
// @Failure      401   {object} map[string]string
// @Router       /auth/refresh [post]
func RefreshHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing refresh token"})
			return
		}

		pair, err := svc.Refresh(req.RefreshToken)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}

		c.JSON(http.StatusOK, pair)
	}
}
