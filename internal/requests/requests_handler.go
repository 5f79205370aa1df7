package requests

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
	"github.com/jason-KITIO/k.kits-sub004/pkg/security"
)

type RequestHandler struct {
	Service *RequestService
}

func NewRequestHandler(s *RequestService) *RequestHandler {
	return &RequestHandler{Service: s}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/movement-requests", security.Authorize("user"), h.CreateRequest)
	router.GET("/movement-requests", security.Authorize("user"), h.ListRequests)
	router.GET("/movement-requests/:id", security.Authorize("user"), h.GetRequest)
	router.POST("/movement-requests/:id/approve", security.Authorize("moderator"), h.ApproveRequest)
	router.POST("/movement-requests/:id/reject", security.Authorize("moderator"), h.RejectRequest)
}

type CreateMovementRequest struct {
	ProductID int                `json:"product_id" binding:"required"`
	Quantity  int                `json:"quantity" binding:"required,gte=1"`
	From      models.LocationRef `json:"from" binding:"required"`
	To        models.LocationRef `json:"to" binding:"required"`
	Notes     *string            `json:"notes"`
}

func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req CreateMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	request, err := h.Service.CreateRequest(req.ProductID, req.From, req.To,
		req.Quantity, security.CurrentUserID(c), req.Notes)
	if err != nil {
		writeRequestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

func (h *RequestHandler) ListRequests(c *gin.Context) {
	var status *models.TransferStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.NewTransferStatus(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status = &parsed
	}

	rows, err := h.Service.ListRequests(status)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to list movement requests"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

func (h *RequestHandler) GetRequest(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}

	request, err := h.Service.GetRequest(requestID)
	if err != nil {
		writeRequestError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}

	request, err := h.Service.Approve(requestID, security.CurrentUserID(c))
	if err != nil {
		writeRequestError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func (h *RequestHandler) RejectRequest(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	request, err := h.Service.Reject(requestID, req.Reason)
	if err != nil {
		writeRequestError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func requestIDParam(c *gin.Context) (int, bool) {
	requestID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID parameter, must be an integer"})
		return 0, false
	}
	return requestID, true
}

func writeRequestError(c *gin.Context, err error) {
	var (
		notFound   *custom_error.NotFoundError
		invalid    *custom_error.InvalidTransitionError
		stale      *custom_error.StaleStateError
		validation *custom_error.ValidationError
	)

	switch {
	case errors.Is(err, custom_error.ErrInsufficientStock):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Not enough stock to approve"})
	case errors.As(err, &notFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &invalid):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": invalid.Error()})
	case errors.As(err, &stale):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": stale.Error()})
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to process movement request"})
	}
}
