package handlers

import (
	"net/http"

	"apnsd/hub"

	"github.com/gin-gonic/gin"
)

func RegisterDeviceHandler(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Token string `json:"token" binding:"required"`
			Name  string `json:"name"`
			Topic string `json:"topic"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		if err := h.RegisterDevice(req.Token, req.Name, req.Topic); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register device"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Device registered", "token": req.Token})
	}
}

func UnregisterDeviceHandler(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Device token required"})
			return
		}

		if err := h.RemoveDevice(token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove device"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Device removed"})
	}
}

func ListDevicesHandler(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		activeOnly := c.Query("all") == ""

		devices, err := h.ListDevices(activeOnly)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list devices"})
			return
		}

		type DeviceResponse struct {
			Token  string `json:"token"`
			Name   string `json:"name,omitempty"`
			Topic  string `json:"topic,omitempty"`
			Active bool   `json:"active"`
		}

		resp := make([]DeviceResponse, 0, len(devices))
		for _, d := range devices {
			resp = append(resp, DeviceResponse{Token: d.Token, Name: d.Name, Topic: d.Topic, Active: d.Active})
		}

		c.JSON(http.StatusOK, resp)
	}
}
