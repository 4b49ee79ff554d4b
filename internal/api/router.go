package api

import (
	"github.com/gin-gonic/gin"

	"ai-agent-gateway/internal/api/agent"
	"ai-agent-gateway/internal/api/middleware"
	"ai-agent-gateway/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	AllowOrigins []string
}

// SetupRouter sets up the Gin router
func SetupRouter(agentService *service.AgentService, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Agent API
	agentHandler := agent.NewHandler(agentService)
	agentGroup := r.Group("/api/agent")
	agentHandler.RegisterRoutes(agentGroup)

	return r
}
