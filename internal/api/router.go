package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requestLogger logs every request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// NewRouter registers all routes. staticDir, when set, is served for unmatched paths.
func NewRouter(h *Handler, staticDir string) *gin.Engine {
	engine := gin.New()
	engine.Use(requestLogger(h.logger), gin.Recovery())

	engine.GET("/healthz", h.Healthz)
	engine.POST("/chat", h.Chat)

	if h.auth != nil {
		authGroup := engine.Group("/api/auth")
		authGroup.POST("/sign-up/email", h.SignUp)
		authGroup.POST("/sign-in/email", h.SignIn)
		authGroup.POST("/sign-out", h.SignOut)
		authGroup.GET("/get-session", h.GetSession)
	}

	convos := engine.Group("/", h.RequireSession())
	convos.POST("/createconversation", h.CreateConversation)
	convos.GET("/getconversations", h.GetConversations)
	convos.GET("/conversation/:id", h.GetConversation)
	convos.GET("/conversation/:id/view", h.GetConversationView)
	convos.POST("/convos/:id/messages", h.AddMessage)

	if staticDir != "" {
		engine.NoRoute(gin.WrapH(http.FileServer(http.Dir(staticDir))))
	}

	return engine
}
