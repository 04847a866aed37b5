package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"homecore/internal/notify"
	"homecore/internal/web/middleware"
	webmodels "homecore/internal/web/models"
)

func ruleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notify.ErrRuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
	case errors.Is(err, notify.ErrInvalidRule):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save rules"})
	}
}

func historyError(c *gin.Context, err error) {
	if errors.Is(err, notify.ErrNotificationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save history"})
}

func RegisterNotificationRoutes(router *gin.Engine, mw *middleware.MiddlewareManager, deps Dependencies) {
	engine := deps.Notifications
	group := router.Group("/notifications")
	group.Use(mw.RequireAuth())

	rules := group.Group("/rules")
	rules.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, engine.Rules())
	})

	rules.GET("/:id", func(c *gin.Context) {
		rule, err := engine.Rule(c.Param("id"))
		if err != nil {
			ruleError(c, err)
			return
		}
		c.JSON(http.StatusOK, rule)
	})

	rules.POST("", func(c *gin.Context) {
		var req webmodels.AddRuleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}
		rule, err := engine.AddRule(c.Request.Context(), req.Rule())
		if err != nil {
			ruleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, rule)
	})

	rules.PATCH("/:id", func(c *gin.Context) {
		var req webmodels.UpdateRuleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}
		rule, err := engine.Rule(c.Param("id"))
		if err != nil {
			ruleError(c, err)
			return
		}
		req.Apply(&rule)
		rule, err = engine.UpdateRule(c.Request.Context(), rule)
		if err != nil {
			ruleError(c, err)
			return
		}
		c.JSON(http.StatusOK, rule)
	})

	rules.POST("/:id/enable", func(c *gin.Context) {
		if err := engine.SetEnabled(c.Request.Context(), c.Param("id"), true); err != nil {
			ruleError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rules.POST("/:id/disable", func(c *gin.Context) {
		if err := engine.SetEnabled(c.Request.Context(), c.Param("id"), false); err != nil {
			ruleError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rules.DELETE("/:id", func(c *gin.Context) {
		if err := engine.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
			ruleError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	group.GET("/history", func(c *gin.Context) {
		c.JSON(http.StatusOK, engine.History())
	})

	group.DELETE("/history", func(c *gin.Context) {
		if err := engine.ClearHistory(c.Request.Context()); err != nil {
			historyError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	group.POST("/history/:id/read", func(c *gin.Context) {
		if err := engine.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
			historyError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	group.POST("/history/:id/actioned", func(c *gin.Context) {
		if err := engine.MarkActioned(c.Request.Context(), c.Param("id")); err != nil {
			historyError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	group.POST("/read-all", func(c *gin.Context) {
		if err := engine.MarkAllRead(c.Request.Context()); err != nil {
			historyError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	group.GET("/unread", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"unread": engine.UnreadCount()})
	})
}
