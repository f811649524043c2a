package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithlearn/zenith-back/internal/auth"
	"github.com/zenithlearn/zenith-back/internal/config"
	"github.com/zenithlearn/zenith-back/internal/db/inmem"
	"github.com/zenithlearn/zenith-back/internal/guard"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T) (*gin.Engine, *inmem.Store, *auth.Service) {
	t.Helper()
	store := inmem.Open()
	cfg := &config.Config{JWTSecret: "test-secret"}
	svc := auth.NewService(cfg, store)
	return SetupRouter(cfg, store, svc), store, svc
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body) //nolint:errcheck
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func signUp(t *testing.T, r *gin.Engine, email, role string) string {
	t.Helper()
	rec := doJSON(r, http.MethodPost, "/auth/signup", "", gin.H{
		"email":            email,
		"password":         "hunter2hunter2",
		"confirm_password": "hunter2hunter2",
		"display_name":     "Test " + role,
		"role":             role,
		"institution":      "Zenith High",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestSignUpValidation(t *testing.T) {
	r, _, _ := setup(t)

	rec := doJSON(r, http.MethodPost, "/auth/signup", "", gin.H{
		"email":            "alex@example.com",
		"password":         "hunter2hunter2",
		"confirm_password": "different",
		"display_name":     "Alex",
		"role":             "student",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(r, http.MethodPost, "/auth/signup", "", gin.H{
		"email":            "alex@example.com",
		"password":         "hunter2hunter2",
		"confirm_password": "hunter2hunter2",
		"display_name":     "Alex",
		"role":             "admin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardRedirectsWithoutSession(t *testing.T) {
	r, _, _ := setup(t)

	rec := doJSON(r, http.MethodGet, guard.RouteStudentDashboard, "", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, guard.RouteAuth, rec.Header().Get("Location"))

	rec = doJSON(r, http.MethodGet, guard.RouteTeacherDashboard, "", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, guard.RouteAuth, rec.Header().Get("Location"))
}

func TestDashboardRedirectsWrongRole(t *testing.T) {
	r, _, _ := setup(t)
	teacherTok := signUp(t, r, "chen@example.com", "teacher")
	studentTok := signUp(t, r, "alex@example.com", "student")

	rec := doJSON(r, http.MethodGet, guard.RouteStudentDashboard, teacherTok, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, guard.RouteTeacherDashboard, rec.Header().Get("Location"))

	rec = doJSON(r, http.MethodGet, guard.RouteTeacherDashboard, studentTok, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, guard.RouteStudentDashboard, rec.Header().Get("Location"))
}

func TestStudentDashboardLoads(t *testing.T) {
	r, _, _ := setup(t)
	tok := signUp(t, r, "alex@example.com", "student")

	rec := doJSON(r, http.MethodGet, guard.RouteStudentDashboard, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Profile struct {
			DisplayName string `json:"display_name"`
			Role        string `json:"role"`
		} `json:"profile"`
		Subjects []interface{} `json:"subjects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "student", resp.Profile.Role)
	assert.NotEmpty(t, resp.Subjects)
}

func TestDashboardTransportFailureIsRetryableNotRedirect(t *testing.T) {
	r, store, _ := setup(t)
	tok := signUp(t, r, "alex@example.com", "student")

	store.Fail(errors.New("connection refused"))
	defer store.Fail(nil)

	rec := doJSON(r, http.MethodGet, guard.RouteStudentDashboard, tok, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"), "transient failure must not evict the user")
	assert.Contains(t, rec.Body.String(), "retryable")
}

func TestSignOutEndsDashboardAccess(t *testing.T) {
	r, _, _ := setup(t)
	tok := signUp(t, r, "alex@example.com", "student")

	rec := doJSON(r, http.MethodPost, "/auth/signout", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, guard.RouteStudentDashboard, tok, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, guard.RouteAuth, rec.Header().Get("Location"))
}

func TestRecordProgressAdvancesStreakAndCoins(t *testing.T) {
	r, _, _ := setup(t)
	tok := signUp(t, r, "alex@example.com", "student")

	rec := doJSON(r, http.MethodPost, "/progress", tok, gin.H{
		"subject":               "mathematics",
		"completion_percentage": 40,
		"score":                 120,
		"time_spent":            15,
		"coins_earned":          50,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile struct {
		LearningStreak      int `json:"learning_streak"`
		TotalKnowledgeCoins int `json:"total_knowledge_coins"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, 1, profile.LearningStreak)
	assert.Equal(t, 50, profile.TotalKnowledgeCoins)

	// a second completion the same day keeps the streak
	rec = doJSON(r, http.MethodPost, "/progress", tok, gin.H{
		"subject":               "mathematics",
		"completion_percentage": 60,
		"coins_earned":          25,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, 1, profile.LearningStreak)
	assert.Equal(t, 75, profile.TotalKnowledgeCoins)

	rec = doJSON(r, http.MethodGet, "/progress", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mathematics")
}

func TestRecordProgressUnknownSubject(t *testing.T) {
	r, _, _ := setup(t)
	tok := signUp(t, r, "alex@example.com", "student")

	rec := doJSON(r, http.MethodPost, "/progress", tok, gin.H{"subject": "astrology"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNextStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, nextStreak(0, time.Time{}, now), "first activity starts the streak")
	assert.Equal(t, 4, nextStreak(4, now.Add(-2*time.Hour), now), "same day keeps it")
	assert.Equal(t, 5, nextStreak(4, now.Add(-24*time.Hour), now), "next day advances it")
	assert.Equal(t, 1, nextStreak(4, now.Add(-72*time.Hour), now), "a lapse restarts it")
}

func TestGetMe(t *testing.T) {
	r, _, _ := setup(t)
	tok := signUp(t, r, "alex@example.com", "student")

	rec := doJSON(r, http.MethodGet, "/me", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Test student")

	rec = doJSON(r, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// readEventData returns the next SSE data line from the stream.
func readEventData(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func TestSessionEventsStreamSignOut(t *testing.T) {
	r, _, svc := setup(t)
	tok := signUp(t, r, "alex@example.com", "student")

	srv := httptest.NewServer(r)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/session/events?role=student", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)

	data := readEventData(t, reader)
	assert.Contains(t, data, "allowed")

	sess, err := svc.Current(tok)
	require.NoError(t, err)
	svc.SignOut(sess.ID)

	data = readEventData(t, reader)
	assert.Contains(t, data, "redirect_sign_in")
	assert.Contains(t, data, guard.RouteAuth)
}

func TestContentEndpoints(t *testing.T) {
	r, _, _ := setup(t)

	rec := doJSON(r, http.MethodGet, "/subjects", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/subject/mathematics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Linear Equations")

	rec = doJSON(r, http.MethodGet, "/subject/alchemy", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(r, http.MethodGet, "/lesson/physics/kinematics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/game/mathematics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/game/biology", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
