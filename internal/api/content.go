package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zenithlearn/zenith-back/internal/content"
)

// ListSubjects godoc
// @Summary      List subjects
// @Description  Returns the subject catalog with lessons
// @Tags         content
// @Produce      json
// @Success      200 {array} content.Subject
// @Router       /subjects [get]
func (h *Handler) ListSubjects(c *gin.Context) {
	c.JSON(http.StatusOK, content.Subjects())
}

// GetSubject godoc
// @Summary      Get a subject
// @Tags         content
// @Produce      json
// @Param        id  path  string  true  "Subject ID"
// @Success      200 {object} content.Subject
// @Failure      404 {object} map[string]string
// @Router       /subject/{id} [get]
func (h *Handler) GetSubject(c *gin.Context) {
	s, err := content.SubjectByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetLesson godoc
// @Summary      Get a lesson
// @Tags         content
// @Produce      json
// @Param        subject   path  string  true  "Subject ID"
// @Param        lessonId  path  string  true  "Lesson ID"
// @Success      200 {object} content.Lesson
// @Failure      404 {object} map[string]string
// @Router       /lesson/{subject}/{lessonId} [get]
func (h *Handler) GetLesson(c *gin.Context) {
	l, err := content.LessonByID(c.Param("subject"), c.Param("lessonId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lesson not found"})
		return
	}
	c.JSON(http.StatusOK, l)
}

// GetGame godoc
// @Summary      Get game questions
// @Tags         content
// @Produce      json
// @Param        subject  path  string  true  "Subject ID"
// @Success      200 {array} content.GameQuestion
// @Failure      404 {object} map[string]string
// @Router       /game/{subject} [get]
func (h *Handler) GetGame(c *gin.Context) {
	qs, err := content.GameQuestions(c.Param("subject"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No game for this subject"})
		return
	}
	c.JSON(http.StatusOK, qs)
}
