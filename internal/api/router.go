package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/zenithlearn/zenith-back/docs"
	"github.com/zenithlearn/zenith-back/internal/auth"
	"github.com/zenithlearn/zenith-back/internal/config"
	"github.com/zenithlearn/zenith-back/internal/db"
	"github.com/zenithlearn/zenith-back/internal/guard"
	"github.com/zenithlearn/zenith-back/internal/models"
)

// @title           ZenithLearn API
// @version         1.0
// @description     Backend for the ZenithLearn gamified STEM education platform.
// @host            localhost:8000
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func SetupRouter(cfg *config.Config, store db.Store, svc *auth.Service) *gin.Engine {
	auth.InitGoogle(cfg)

	h := NewHandler(cfg, store, svc)
	resolver := h.Resolver()

	r := gin.Default()

	// Public routes
	r.GET("/health", func(c *gin.Context) {
		if err := store.Ping(); err != nil {
			c.JSON(500, gin.H{"status": "db_ping_error"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/auth/signup", auth.SignUpHandler(svc))
	r.POST("/auth/signin", auth.SignInHandler(svc))
	r.POST("/auth/refresh", auth.RefreshHandler(svc))
	r.GET("/auth/google/login", auth.GoogleLoginHandler())
	r.GET("/auth/google/callback", auth.GoogleCallbackHandler(svc))

	r.GET("/subjects", h.ListSubjects)
	r.GET("/subject/:id", h.GetSubject)
	r.GET("/lesson/:subject/:lessonId", h.GetLesson)
	r.GET("/game/:subject", h.GetGame)

	// Authenticated
	user := r.Group("/")
	user.Use(auth.Middleware(svc))
	{
		user.POST("/auth/signout", auth.SignOutHandler(svc))
		user.GET("/me", h.GetMe)
		user.GET("/progress", h.GetProgress)
		user.POST("/progress", h.RecordProgress)
		user.GET("/session/events", h.SessionEvents)
	}

	// Role-guarded dashboards: a mismatched role is redirected to its own
	// dashboard, a missing session to /auth.
	r.GET(guard.RouteStudentDashboard,
		guard.RequireRole(svc, resolver, models.RoleStudent), h.StudentDashboard)

	teacher := r.Group("/")
	teacher.Use(guard.RequireRole(svc, resolver, models.RoleTeacher))
	{
		teacher.GET(guard.RouteTeacherDashboard, h.TeacherDashboard)
		teacher.GET("/teacher/classes", h.ListClasses)
		teacher.POST("/teacher/classes", h.CreateClass)
		teacher.GET("/teacher/classes/:id/report", h.ClassReport)
	}

	return r
}
