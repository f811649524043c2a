package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zenithlearn/zenith-back/internal/auth"
	"github.com/zenithlearn/zenith-back/internal/config"
	"github.com/zenithlearn/zenith-back/internal/content"
	"github.com/zenithlearn/zenith-back/internal/db"
	"github.com/zenithlearn/zenith-back/internal/guard"
	"github.com/zenithlearn/zenith-back/internal/models"
)

// streakGrace is how long a streak survives without activity before the
// next completion restarts it at 1. The daily cron job uses the same window
// to zero lapsed streaks.
const streakGrace = 48 * time.Hour

// Handler carries the dependencies the route handlers need. Nothing here is
// a package global: tests construct a Handler around the in-memory store.
type Handler struct {
	cfg   *config.Config
	store db.Store
	svc   *auth.Service
}

func NewHandler(cfg *config.Config, store db.Store, svc *auth.Service) *Handler {
	return &Handler{cfg: cfg, store: store, svc: svc}
}

// Resolver adapts the store to the guard's profile lookup, mapping a
// missing row to the guard's not-found error and leaving everything else
// as a transport failure.
func (h *Handler) Resolver() guard.ProfileResolver {
	return storeResolver{store: h.store}
}

type storeResolver struct {
	store db.Store
}

func (r storeResolver) Resolve(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := r.store.ProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, guard.ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetMe godoc
// @Summary      Get current user profile
// @Description  Returns the authenticated user's profile row
// @Tags         user
// @Produce      json
// @Success      200 {object} models.Profile
// @Failure      404 {object} map[string]string
// @Security     BearerAuth
// @Router       /me [get]
func (h *Handler) GetMe(c *gin.Context) {
	userID := c.GetString("user_id")

	profile, err := h.store.ProfileByUserID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// StudentDashboard godoc
// @Summary      Student dashboard
// @Description  Profile, per-subject progress and the subject catalog for the student view
// @Tags         dashboard
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Failure      503 {object} map[string]string
// @Security     BearerAuth
// @Router       /student-dashboard [get]
func (h *Handler) StudentDashboard(c *gin.Context) {
	profile := c.MustGet("profile").(*models.Profile)

	progress, err := h.store.ProgressByUser(c.Request.Context(), profile.UserID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load progress", "retryable": true})
		return
	}

	var totalScore, totalCompletion int
	for _, up := range progress {
		totalScore += up.Score
		totalCompletion += up.CompletionPercentage
	}
	avgCompletion := 0
	if len(progress) > 0 {
		avgCompletion = totalCompletion / len(progress)
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":            profile,
		"progress":           progress,
		"subjects":           content.Subjects(),
		"total_score":        totalScore,
		"average_completion": avgCompletion,
	})
}

// TeacherDashboard godoc
// @Summary      Teacher dashboard
// @Description  Profile and the teacher's classes
// @Tags         dashboard
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Failure      503 {object} map[string]string
// @Security     BearerAuth
// @Router       /teacher-dashboard [get]
func (h *Handler) TeacherDashboard(c *gin.Context) {
	profile := c.MustGet("profile").(*models.Profile)

	classes, err := h.store.ClassesByTeacher(c.Request.Context(), profile.UserID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load classes", "retryable": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile": profile,
		"classes": classes,
	})
}

// GetProgress godoc
// @Summary      Progress overview
// @Description  Per-subject progress rows with simple aggregates
// @Tags         progress
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /progress [get]
func (h *Handler) GetProgress(c *gin.Context) {
	userID := c.GetString("user_id")

	rows, err := h.store.ProgressByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch progress"})
		return
	}

	var minutes int
	for _, up := range rows {
		minutes += up.TimeSpent
	}
	c.JSON(http.StatusOK, gin.H{"progress": rows, "total_minutes": minutes})
}

type RecordProgressRequest struct {
	Subject              string `json:"subject" binding:"required"`
	CompletionPercentage int    `json:"completion_percentage" binding:"min=0,max=100"`
	Score                int    `json:"score" binding:"min=0"`
	TimeSpent            int    `json:"time_spent" binding:"min=0"`
	CoinsEarned          int    `json:"coins_earned" binding:"min=0"`
}

// RecordProgress godoc
// @Summary      Record lesson completion
// @Description  Upserts the subject progress row, credits coins and advances the learning streak
// @Tags         progress
// @Accept       json
// @Produce      json
// @Param        body  body  RecordProgressRequest  true  "Completion info"
// @Success      200   {object} models.Profile
// @Failure      400   {object} map[string]string
// @Security     BearerAuth
// @Router       /progress [post]
func (h *Handler) RecordProgress(c *gin.Context) {
	userID := c.GetString("user_id")

	var req RecordProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if _, err := content.SubjectByID(req.Subject); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown subject"})
		return
	}

	ctx := c.Request.Context()
	up := models.UserProgress{
		UserID:               userID,
		Subject:              req.Subject,
		CompletionPercentage: req.CompletionPercentage,
		Score:                req.Score,
		TimeSpent:            req.TimeSpent,
	}
	if err := h.store.UpsertProgress(ctx, &up); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save progress"})
		return
	}

	if req.CoinsEarned > 0 {
		if err := h.store.AddCoins(ctx, userID, req.CoinsEarned, "lesson:"+req.Subject); err != nil {
			log.Println("failed to credit coins:", err)
		}
	}

	profile, err := h.store.ProfileByUserID(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	now := time.Now()
	profile.LearningStreak = nextStreak(profile.LearningStreak, profile.LastActivity, now)
	profile.LastActivity = now
	if err := h.store.UpdateProfileCounters(ctx, profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// nextStreak advances the streak on a new activity day, keeps it within the
// same day, and restarts it once the grace window has lapsed.
func nextStreak(current int, lastActivity, now time.Time) int {
	if current == 0 {
		return 1
	}
	sameDay := lastActivity.Year() == now.Year() && lastActivity.YearDay() == now.YearDay()
	if sameDay {
		return current
	}
	if now.Sub(lastActivity) <= streakGrace {
		return current + 1
	}
	return 1
}

// SessionEvents godoc
// @Summary      Session event stream
// @Description  Server-sent guard decisions for the watched session; emits redirect_sign_in when the session is revoked
// @Tags         session
// @Produce      text/event-stream
// @Param        role  query  string  false  "Required role of the page being watched"  Enums(student, teacher)
// @Success      200 {string} string
// @Security     BearerAuth
// @Router       /session/events [get]
func (h *Handler) SessionEvents(c *gin.Context) {
	sessionID := c.GetString("session_id")

	required := models.Role(c.DefaultQuery("role", string(models.RoleStudent)))
	if !required.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	src := guard.BearerSource(h.svc, auth.BearerToken(c))
	g := guard.New(src, h.Resolver(), required)

	raw, unsubscribe := h.svc.Watch(sessionID)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// bridge registry events into the guard's session type
	events := make(chan *guard.Session)
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case sess, ok := <-raw:
				if !ok {
					return
				}
				var gs *guard.Session
				if sess != nil {
					gs = &guard.Session{ID: sess.ID, UserID: sess.UserID}
				}
				select {
				case events <- gs:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	w := guard.NewWatcher(g, events)
	go w.Run(ctx)

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case d := <-w.Decisions():
			c.SSEvent("decision", d)
			// a terminal redirect ends the stream
			return d.State == guard.StateAllowed
		}
	})
}
