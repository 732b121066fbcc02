package handlers

import (
	"net/http"

	"apnsd/hub"

	"github.com/gin-gonic/gin"
)

func SendHandler(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var msg hub.Message
		if err := c.ShouldBindJSON(&msg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		if msg.Title == "" && msg.Body == "" && !msg.Background && len(msg.Data) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message has no content"})
			return
		}

		report, err := h.Push(c.Request.Context(), msg)
		if err == hub.ErrDeviceNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send"})
			return
		}

		c.JSON(http.StatusOK, report)
	}
}

func StatsHandler(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := h.GetStats()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"devices":   stats.Devices,
			"delivered": stats.Delivered,
			"failed":    stats.Failed,
			"pending":   stats.Pending,
		})
	}
}
