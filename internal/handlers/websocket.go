package handlers

import (
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler upgrades the connection of an authenticated user.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		services.ServeWebSocket(hub, c.Writer, c.Request, c.GetUint("userId"), models.UserType(c.GetString("userType")))
	}
}
