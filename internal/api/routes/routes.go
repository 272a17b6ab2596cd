package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/mockinterview/config"
	"github.com/yoockh/mockinterview/internal/api/handlers"
	"github.com/yoockh/mockinterview/internal/api/middleware"
)

type Deps struct {
	Auth      config.AuthConfig
	Interview *handlers.InterviewHandler
	WS        *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.Auth))

	auth.POST("/interview/start", d.Interview.Start)
	auth.GET("/interview/:session_id", d.Interview.Get)
	auth.POST("/interview/:session_id/answer", d.Interview.SubmitAnswer)
	auth.POST("/interview/:session_id/end", d.Interview.End)
	auth.GET("/interview/:session_id/answers", d.Interview.ListAnswers)

	// WebSocket
	auth.GET("/ws/interview/:session_id", d.WS.FeedbackWS)
}
