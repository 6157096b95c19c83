package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/handler"
	"github.com/stemsi/proctor-backend/internal/middleware"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/response"
	"github.com/stemsi/proctor-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Exam          *handler.ExamHandler
	Question      *handler.QuestionHandler
	Course        *handler.CourseHandler
	WS            *handler.WSHandler
	System        *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	authLimiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		authed := auth.Group("", middleware.RequireJWT(authService), middleware.CheckSingleDeviceSession(authService))
		authed.GET("/me", handlers.Auth.Me)
		authed.POST("/logout", handlers.Auth.Logout)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireJWT(authService),
		middleware.RequireRole(model.RoleStudent),
		middleware.CheckSingleDeviceSession(authService),
		middleware.NoStore(),
	)
	{
		studentAPI.GET("/exams", handlers.StudentPortal.GetLobby)
		studentAPI.GET("/results", handlers.StudentPortal.GetResults)

		attempt := studentAPI.Group("/exams/:exam_id/session")
		attempt.POST("", handlers.StudentPortal.EnterExam)
		attempt.GET("", handlers.StudentPortal.GetExamState)
		attempt.PUT("/answers", handlers.StudentPortal.SaveAnswer)
		attempt.PUT("/position", handlers.StudentPortal.Navigate)
		attempt.PUT("/fullscreen", handlers.StudentPortal.SetFullscreen)
		attempt.POST("/visibility", handlers.StudentPortal.ReportVisibility)
		attempt.POST("/finish", handlers.StudentPortal.FinishExam)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSJWT(authService),
		middleware.RequireRole(model.RoleStudent),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.ExamWebSocketStream)
	}

	// ─── 4. Admin Group (JWT + Role) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(
		middleware.RequireJWT(authService),
		middleware.RequireRole(model.RoleAdmin),
	)
	{
		adminAPI.GET("/courses", handlers.Course.ListCourses)
		adminAPI.POST("/courses", handlers.Course.CreateCourse)
		adminAPI.GET("/courses/:id/batches", handlers.Course.ListBatches)
		adminAPI.GET("/courses/:id/enrollments", handlers.Course.ListEnrollments)
		adminAPI.GET("/courses/:id/questions", handlers.Question.ListQuestions)
		adminAPI.POST("/batches", handlers.Course.CreateBatch)
		adminAPI.POST("/enrollments", handlers.Course.Enroll)
		adminAPI.DELETE("/enrollments/:id", handlers.Course.Unenroll)
		adminAPI.GET("/students", handlers.Course.ListStudents)

		adminAPI.POST("/questions", handlers.Question.CreateQuestion)
		adminAPI.GET("/questions/:id", handlers.Question.GetQuestion)
		adminAPI.DELETE("/questions/:id", handlers.Question.DeleteQuestion)

		adminAPI.GET("/exams", handlers.Exam.ListExams)
		adminAPI.POST("/exams", handlers.Exam.CreateExam)
		adminAPI.GET("/exams/:id", handlers.Exam.GetExam)
		adminAPI.DELETE("/exams/:id", handlers.Exam.DeleteExam)
		adminAPI.GET("/exams/:id/questions", handlers.Exam.GetExamQuestions)
		adminAPI.GET("/exams/:id/results", handlers.Exam.GetExamResults)
		adminAPI.GET("/exams/:id/integrity", handlers.Exam.GetIntegrityEvents)

		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
