package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rowanvale/questboard/internal/notify"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, gdb *gorm.DB, resolver TokenResolver, hub *notify.Hub, gateway notify.Gateway) {
	h := &handlers{db: gdb, gateway: gateway}

	router.GET("/ws", handleWS(resolver, hub))

	api := router.Group("/", requireIdentity(resolver))

	api.POST("/tasks", h.create)
	api.GET("/tasks", h.list)

	// Projected views. Registered before the :id routes purely for
	// readability; gin resolves static segments ahead of params either way.
	api.GET("/tasks/mission", h.mission)
	api.GET("/tasks/collaboration", h.collaboration)
	api.GET("/tasks/archive", h.archive)

	api.GET("/tasks/:id", h.get)
	api.DELETE("/tasks/:id", h.delete)
	api.PATCH("/tasks/:id/assign", h.assign)
	api.PATCH("/tasks/:id/progress", h.progress)
	api.PATCH("/tasks/:id/submit-review", h.submitReview)
	api.PATCH("/tasks/:id/complete", h.complete)
	api.PATCH("/tasks/:id/abandon", h.abandon)
	api.PATCH("/tasks/:id/close", h.close)
	api.POST("/tasks/:id/rework", h.rework)
	api.POST("/tasks/:id/accept-rework", h.acceptRework)
	api.POST("/tasks/:id/reject-rework", h.rejectRework)
	api.POST("/tasks/:id/cancel-rework", h.cancelRework)
	api.POST("/tasks/:id/restart", h.restart)
}
