package api

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zenithlearn/zenith-back/internal/db"
	"github.com/zenithlearn/zenith-back/internal/excel"
	"github.com/zenithlearn/zenith-back/internal/models"
)

const (
	classCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	classCodeLength   = 6

	// codeRetries bounds regeneration when the unique index rejects a code.
	// 36^6 codes make a collision effectively a non-event, but the index,
	// not this loop, is what guarantees uniqueness.
	codeRetries = 3
)

// GenerateClassCode returns a 6-character uppercase alphanumeric join code.
// Display-level uniqueness only; the classes.code unique index catches the
// rest.
func GenerateClassCode() string {
	b := make([]byte, classCodeLength)
	for i := range b {
		b[i] = classCodeAlphabet[rand.Intn(len(classCodeAlphabet))]
	}
	return string(b)
}

type CreateClassRequest struct {
	Name        string `json:"name" binding:"required"`
	Subject     string `json:"subject" binding:"required"`
	Description string `json:"description"`
}

// CreateClass godoc
// @Summary      Create a class
// @Description  Creates a class owned by the authenticated teacher with a generated join code
// @Tags         classes
// @Accept       json
// @Produce      json
// @Param        body  body  CreateClassRequest  true  "Class info"
// @Success      201   {object} models.Class
// @Failure      400   {object} map[string]string
// @Failure      500   {object} map[string]string
// @Security     BearerAuth
// @Router       /teacher/classes [post]
func (h *Handler) CreateClass(c *gin.Context) {
	teacherID := c.GetString("user_id")

	var req CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	var cl models.Class
	for attempt := 0; ; attempt++ {
		cl = models.Class{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Subject:     req.Subject,
			Description: req.Description,
			Code:        GenerateClassCode(),
			TeacherID:   teacherID,
			CreatedAt:   time.Now(),
		}
		err := h.store.CreateClass(ctx, &cl)
		if err == nil {
			break
		}
		if errors.Is(err, db.ErrDuplicate) && attempt < codeRetries {
			continue
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create class"})
		return
	}

	c.JSON(http.StatusCreated, cl)
}

// ListClasses godoc
// @Summary      List classes
// @Description  Returns the authenticated teacher's classes, newest first
// @Tags         classes
// @Produce      json
// @Success      200 {array} models.Class
// @Failure      500 {object} map[string]string
// @Security     BearerAuth
// @Router       /teacher/classes [get]
func (h *Handler) ListClasses(c *gin.Context) {
	teacherID := c.GetString("user_id")

	classes, err := h.store.ClassesByTeacher(c.Request.Context(), teacherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch classes"})
		return
	}
	c.JSON(http.StatusOK, classes)
}

// ClassReport godoc
// @Summary      Export a class report
// @Description  Builds an xlsx roster with streaks, coins and per-subject progress for one class
// @Tags         classes
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id  path  string  true  "Class ID"
// @Success      200 {file} file
// @Failure      404 {object} map[string]string
// @Security     BearerAuth
// @Router       /teacher/classes/{id}/report [get]
func (h *Handler) ClassReport(c *gin.Context) {
	teacherID := c.GetString("user_id")
	ctx := c.Request.Context()

	cl, err := h.store.ClassByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load class"})
		return
	}
	if cl.TeacherID != teacherID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
		return
	}

	students, err := h.store.StudentsByClassCode(ctx, cl.Code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load roster"})
		return
	}

	progress := make(map[string][]models.UserProgress, len(students))
	for _, st := range students {
		rows, err := h.store.ProgressByUser(ctx, st.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load progress"})
			return
		}
		progress[st.UserID] = rows
	}

	f, err := excel.BuildClassReport(cl, students, progress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-report.xlsx", cl.Code))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		// headers are already out, nothing useful to send the client
		_ = c.Error(err)
	}
}
