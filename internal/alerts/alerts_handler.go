package alerts

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
	"github.com/jason-KITIO/k.kits-sub004/pkg/security"
)

type AlertHandler struct {
	Service *AlertService
}

func NewAlertHandler(s *AlertService) *AlertHandler {
	return &AlertHandler{Service: s}
}

func (h *AlertHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/alerts", security.Authorize("user"), h.ListAlerts)
	router.POST("/alerts/read", security.Authorize("user"), h.MarkRead)
	router.POST("/alerts/read-all", security.Authorize("user"), h.MarkAllRead)
}

// ListAlerts recomputes alerts from live stock. Optional location_kind and
// location_id query params narrow the scan to one location.
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	var loc *models.LocationRef
	if rawKind := c.Query("location_kind"); rawKind != "" {
		kind, err := models.NewLocationKind(rawKind)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		locationID, err := strconv.Atoi(c.Query("location_id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid location_id parameter, must be an integer"})
			return
		}
		loc = &models.LocationRef{Kind: kind, ID: locationID}
	}

	alerts, err := h.Service.Evaluate(security.CurrentOrganizationID(c), loc)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to evaluate stock alerts"})
		return
	}

	c.JSON(http.StatusOK, alerts)
}

func (h *AlertHandler) MarkRead(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	if err := h.Service.MarkRead(req.IDs); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to mark alerts read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alerts marked as read"})
}

func (h *AlertHandler) MarkAllRead(c *gin.Context) {
	if err := h.Service.MarkAllRead(security.CurrentOrganizationID(c)); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to mark alerts read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All alerts marked as read"})
}
