package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homecore/internal/models"
	"homecore/internal/web/middleware"
	webmodels "homecore/internal/web/models"
)

func RegisterCommandRoutes(router *gin.Engine, mw *middleware.MiddlewareManager, deps Dependencies) {
	group := router.Group("/")
	group.Use(mw.RequireAuth())

	group.POST("/commands", func(c *gin.Context) {
		var req webmodels.CommandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}
		writeResult(c, deps.Dispatcher.Execute(c.Request.Context(), req.Command()))
	})

	group.POST("/devices/:id/toggle", func(c *gin.Context) {
		cmd := models.PendingCommand{Kind: models.CommandToggleDevice, DeviceID: c.Param("id")}
		writeResult(c, deps.Dispatcher.Execute(c.Request.Context(), cmd))
	})

	group.POST("/scenes/:id/execute", func(c *gin.Context) {
		cmd := models.PendingCommand{Kind: models.CommandExecuteScene, SceneID: c.Param("id")}
		writeResult(c, deps.Dispatcher.Execute(c.Request.Context(), cmd))
	})

	group.GET("/status", func(c *gin.Context) {
		resp := webmodels.StatusResponse{
			Online:        deps.Dispatcher.Online(),
			CurrentRate:   deps.Dispatcher.CurrentRate(),
			Pending:       len(deps.Dispatcher.Pending()),
			StatusMessage: deps.Dispatcher.StatusMessage(),
		}
		if deps.Notifications != nil {
			resp.Unread = deps.Notifications.UnreadCount()
		}
		c.JSON(http.StatusOK, resp)
	})

	group.GET("/accessories", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Dispatcher.Accessories())
	})

	group.GET("/accessories/:id", func(c *gin.Context) {
		acc, ok := deps.Dispatcher.Accessory(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Accessory not found"})
			return
		}
		c.JSON(http.StatusOK, acc)
	})

	group.GET("/queue", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Dispatcher.Pending())
	})

	group.DELETE("/queue/:id", func(c *gin.Context) {
		removed, err := deps.Queue.Remove(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist queue"})
			return
		}
		if !removed {
			c.JSON(http.StatusNotFound, gin.H{"error": "Command not found"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	group.DELETE("/queue", func(c *gin.Context) {
		if err := deps.Queue.Clear(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist queue"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	if deps.CommandLog != nil {
		group.GET("/commands/log", func(c *gin.Context) {
			records, err := deps.CommandLog.RecentCommands(c.Request.Context(), queryInt(c, "limit", 50))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read command log"})
				return
			}
			c.JSON(http.StatusOK, records)
		})
	}
}
