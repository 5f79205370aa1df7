package counts

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
	"github.com/jason-KITIO/k.kits-sub004/pkg/security"
)

type CountHandler struct {
	Service *CountService
}

func NewCountHandler(s *CountService) *CountHandler {
	return &CountHandler{Service: s}
}

func (h *CountHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/inventory-counts", security.Authorize("user"), h.ScheduleCount)
	router.GET("/inventory-counts", security.Authorize("user"), h.ListCounts)
	router.GET("/inventory-counts/:id", security.Authorize("user"), h.GetCount)
	router.POST("/inventory-counts/:id/complete", security.Authorize("user"), h.CompleteCount)
	router.POST("/inventory-counts/:id/cancel", security.Authorize("user"), h.CancelCount)
}

type ScheduleCountRequest struct {
	ProductID     int                `json:"product_id" binding:"required"`
	Location      models.LocationRef `json:"location" binding:"required"`
	ScheduledDate time.Time          `json:"scheduled_date" binding:"required"`
}

func (h *CountHandler) ScheduleCount(c *gin.Context) {
	var req ScheduleCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	count, err := h.Service.Schedule(req.ProductID, req.Location, req.ScheduledDate, security.CurrentUserID(c))
	if err != nil {
		writeCountError(c, err)
		return
	}

	c.JSON(http.StatusCreated, count)
}

func (h *CountHandler) ListCounts(c *gin.Context) {
	var status *models.CountStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.NewCountStatus(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status = &parsed
	}

	rows, err := h.Service.ListCounts(status)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to list inventory counts"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

func (h *CountHandler) GetCount(c *gin.Context) {
	countID, ok := countIDParam(c)
	if !ok {
		return
	}

	count, err := h.Service.GetCount(countID)
	if err != nil {
		writeCountError(c, err)
		return
	}

	c.JSON(http.StatusOK, count)
}

func (h *CountHandler) CompleteCount(c *gin.Context) {
	countID, ok := countIDParam(c)
	if !ok {
		return
	}

	var req struct {
		ActualQty *int `json:"actual_qty" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	count, err := h.Service.Complete(countID, *req.ActualQty, security.CurrentUserID(c))
	if err != nil {
		writeCountError(c, err)
		return
	}

	c.JSON(http.StatusOK, count)
}

func (h *CountHandler) CancelCount(c *gin.Context) {
	countID, ok := countIDParam(c)
	if !ok {
		return
	}

	count, err := h.Service.Cancel(countID)
	if errors.Is(err, custom_error.ErrAlreadyTerminal) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Inventory count already in a terminal state, nothing to cancel",
			"count":   count,
		})
		return
	}
	if err != nil {
		writeCountError(c, err)
		return
	}

	c.JSON(http.StatusOK, count)
}

func countIDParam(c *gin.Context) (int, bool) {
	countID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid count ID parameter, must be an integer"})
		return 0, false
	}
	return countID, true
}

func writeCountError(c *gin.Context, err error) {
	var (
		notFound   *custom_error.NotFoundError
		invalid    *custom_error.InvalidTransitionError
		stale      *custom_error.StaleStateError
		validation *custom_error.ValidationError
		violation  *custom_error.InvariantViolationError
	)

	switch {
	case errors.As(err, &notFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &invalid):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": invalid.Error()})
	case errors.As(err, &stale):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": stale.Error()})
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &violation):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal invariant violation, operators have been notified"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to process inventory count"})
	}
}
