package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/livequiz-api/internal/metrics"
	"github.com/yourusername/livequiz-api/internal/middleware"
	"github.com/yourusername/livequiz-api/internal/service/quizengine"
)

// Routes содержит обработчики и middleware, из которых собираются маршруты
type Routes struct {
	Play        *PlayHandler
	Quiz        *QuizHandler
	WS          *WSHandler // nil отключает WebSocket маршрут
	JoinLimiter quizengine.JoinRateLimiter
	AdminAuth   *middleware.AdminAuth
}

// Register настраивает маршруты API
func (r *Routes) Register(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api")
	{
		quizzes := api.Group("/quizzes")
		{
			// Группа маршрутов, требующих quizID
			quizWithID := quizzes.Group("/:id")
			quizWithID.Use(middleware.ExtractUintParam("id", "quizID"))
			{
				quizWithID.GET("", r.Play.GetQuiz)
				quizWithID.POST("/join", middleware.JoinRateLimit(r.JoinLimiter), r.Play.JoinQuiz)
				quizWithID.GET("/leaderboard", r.Play.GetLeaderboard)
				quizWithID.GET("/stats", r.Play.GetStats)
			}
		}

		attempts := api.Group("/attempts/:id")
		attempts.Use(middleware.ExtractUintParam("id", "attemptID"))
		{
			attempts.GET("/question", r.Play.GetCurrentQuestion)
			attempts.POST("/answers", r.Play.SubmitAnswer)
		}

		// Маршруты для администраторов
		admin := api.Group("/admin/quizzes")
		admin.Use(r.AdminAuth.RequireAdmin())
		{
			admin.POST("", r.Quiz.CreateQuiz)
			admin.GET("", r.Quiz.ListQuizzes)

			adminWithID := admin.Group("/:id")
			adminWithID.Use(middleware.ExtractUintParam("id", "quizID"))
			{
				adminWithID.GET("", r.Quiz.GetQuiz)
				adminWithID.POST("/questions", r.Quiz.AddQuestions)
				adminWithID.GET("/questions", r.Quiz.ListQuestions)
				adminWithID.POST("/start", r.Quiz.StartQuiz)
				adminWithID.POST("/end", r.Quiz.EndQuiz)
				adminWithID.PATCH("/settings", r.Quiz.UpdateSettings)
				adminWithID.GET("/leaderboard/export", r.Quiz.ExportLeaderboard)
			}
		}
	}

	if r.WS != nil {
		router.GET("/ws/quizzes/:id", middleware.ExtractUintParam("id", "quizID"), r.WS.HandleConnection)
	}
}
