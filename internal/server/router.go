package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/devBarbar/smart-study-notes-sub002/internal/handlers"
	"github.com/devBarbar/smart-study-notes-sub002/internal/middleware"
)

type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	ExamHandler    *handlers.ExamHandler
	JobsHandler    *handlers.JobsHandler
	LectureHandler *handlers.LectureHandler
	ReviewHandler  *handlers.ReviewHandler
	SSEHandler     *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.POST("/refresh", cfg.AuthHandler.Refresh)

	// Protected
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.POST("/logout", cfg.AuthHandler.Logout)
	protected.GET("/sse/stream", cfg.SSEHandler.Stream)

	api := protected.Group("/api")
	api.POST("/jobs", cfg.JobsHandler.Enqueue)
	api.GET("/jobs", cfg.JobsHandler.List)
	api.GET("/jobs/:id", cfg.JobsHandler.Get)

	api.POST("/lectures", cfg.LectureHandler.Create)
	api.GET("/lectures/:id", cfg.LectureHandler.Get)
	api.GET("/lectures/:id/plan", cfg.LectureHandler.Plan)

	api.GET("/exams/:id", cfg.ExamHandler.Get)
	api.POST("/exams/:id/start", cfg.ExamHandler.Start)

	api.POST("/reviews", cfg.ReviewHandler.Record)
	api.GET("/review/due", cfg.ReviewHandler.Due)
	api.GET("/review/daily", cfg.ReviewHandler.Daily)
	api.GET("/streak", cfg.ReviewHandler.Streak)

	return router
}
