package user

import (
	"github.com/georace/georace/internal/api"
	"github.com/georace/georace/internal/config"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewRouter creates and configures the user-facing Gin engine.
func NewRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, db)

	v1 := r.Group("/api/v1")
	{
		// Auth
		authGroup := v1.Group("/auth/local")
		{
			authGroup.POST("/register", h.localRegister)
			authGroup.POST("/login", h.localLogin)
		}

		// Websocket live race feed with token authorization
		v1.GET("/ws/races/:id", h.handleRaceWs)

		// Publicly accessible info
		v1.GET("/races", h.getAllRaces)
		v1.GET("/races/:id", h.getRace)
		v1.GET("/races/:id/leaderboard", h.getRaceLeaderboard)
		v1.GET("/races/:id/finish", h.getRaceFinishState)
		v1.GET("/leaderboard", h.getGlobalLeaderboard)
		v1.GET("/users/:id/stats", h.getUserStats)

		// Authenticated routes
		authed := v1.Group("/")
		authed.Use(api.AuthMiddleware(cfg.Auth.JWT.Secret))
		{
			profile := authed.Group("/user")
			{
				profile.GET("/profile", h.getUserProfile)
				profile.PATCH("/profile", h.updateUserProfile)
			}

			authed.POST("/races", h.createRace)
			authed.POST("/races/:id/join", h.joinRace)
			authed.POST("/races/:id/withdraw", h.withdrawFromRace)

			authed.POST("/sync", h.submitSyncBatch)
		}
	}

	return r
}
