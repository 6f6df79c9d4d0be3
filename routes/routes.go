package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-learning-backend/controllers"
	"github.com/vnkhanh/e-learning-backend/middleware"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/ws"
)

type Deps struct {
	JWTSecret string
	Health    *controllers.HealthController
	Quiz      *controllers.QuizController
	AI        *controllers.AIController
	WS        *ws.Handler
}

func SetupRouter(r *gin.Engine, d Deps) *gin.Engine {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", d.Health.Check)

	api := r.Group("/api", middleware.AuthMiddleware(d.JWTSecret))
	authors := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	quizzes := api.Group("/quizzes")
	{
		quizzes.GET("", d.Quiz.List)
		quizzes.GET("/:id", d.Quiz.Get)
		quizzes.GET("/:id/attempt", d.Quiz.GetAttempt)
		quizzes.POST("/:id/submit", d.Quiz.Submit)
		quizzes.GET("/:id/submissions", d.Quiz.ListSubmissions)

		quizzes.POST("", authors, d.Quiz.Create)
		quizzes.PATCH("/:id", authors, d.Quiz.Update)
		quizzes.DELETE("/:id", authors, d.Quiz.Delete)
		quizzes.POST("/:id/questions", authors, d.Quiz.AddQuestion)
		quizzes.DELETE("/:id/questions/:questionId", authors, d.Quiz.DeleteQuestion)
		quizzes.POST("/:id/questions/reorder", authors, d.Quiz.ReorderQuestions)
	}

	ai := api.Group("/ai")
	{
		ai.POST("/chat", d.AI.Chat)
		ai.GET("/conversations/:id", d.AI.GetConversation)
		ai.POST("/index-lesson/:lessonId", authors, d.AI.IndexLesson)
	}

	r.GET("/ws/lessons/:id/index-status", d.WS.LessonIndexStatus)

	return r
}
