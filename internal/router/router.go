package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ujianku/ujianku-backend/internal/config"
	"github.com/ujianku/ujianku-backend/internal/handler"
	"github.com/ujianku/ujianku-backend/internal/middleware"
	"github.com/ujianku/ujianku-backend/internal/response"
	"github.com/ujianku/ujianku-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	StudentExam *handler.StudentExamHandler
	TeacherExam *handler.TeacherExamHandler
	WS          *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/teacher/login", handlers.Auth.TeacherLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/teacher/me", middleware.RequireTeacherJWT(authService), handlers.Auth.GetTeacherProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/exams", handlers.StudentExam.ListExams)
		studentAPI.POST("/exams/:exam_id/start", handlers.StudentExam.StartExam)
		studentAPI.GET("/exams/:exam_id/paper", handlers.StudentExam.GetExamPaper)
		studentAPI.PUT("/exams/:exam_id/answers", handlers.StudentExam.SaveAnswer)
		studentAPI.GET("/exams/:exam_id/state", handlers.StudentExam.GetExamState)
		studentAPI.GET("/exams/:exam_id/time", handlers.StudentExam.GetTimeRemaining)
		studentAPI.POST("/exams/:exam_id/submit", handlers.StudentExam.SubmitExam)
		studentAPI.GET("/exams/:exam_id/result", handlers.StudentExam.GetExamResult)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.ExamStream)
	}

	// ─── 4. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		teacherAPI.POST("/exams", handlers.TeacherExam.CreateExam)
		teacherAPI.GET("/exams", handlers.TeacherExam.ListExams)
		teacherAPI.GET("/exams/:exam_id/questions", handlers.TeacherExam.ListQuestions)
		teacherAPI.PUT("/exams/:exam_id/questions", handlers.TeacherExam.ReplaceQuestions)
		teacherAPI.POST("/exams/:exam_id/activate", handlers.TeacherExam.ActivateExam)
		teacherAPI.POST("/exams/:exam_id/archive", handlers.TeacherExam.ArchiveExam)
		teacherAPI.GET("/exams/:exam_id/results", handlers.TeacherExam.GetExamResults)
		teacherAPI.PUT("/exams/:exam_id/submissions/:submission_id/questions/:question_id/grade", handlers.TeacherExam.GradeEssay)
	}

	return router
}
