package transfers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
	"github.com/jason-KITIO/k.kits-sub004/pkg/security"
)

type TransferHandler struct {
	Service *TransferService
}

func NewTransferHandler(s *TransferService) *TransferHandler {
	return &TransferHandler{Service: s}
}

func (h *TransferHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/transfers", security.Authorize("user"), h.CreateTransfer)
	router.GET("/transfers", security.Authorize("user"), h.ListTransfers)
	router.GET("/transfers/:id", security.Authorize("user"), h.GetTransfer)
	router.GET("/transfers/:id/movements", security.Authorize("user"), h.GetTransferMovements)
	router.POST("/transfers/:id/approve", security.Authorize("moderator"), h.ApproveTransfer)
	router.POST("/transfers/:id/complete", security.Authorize("moderator"), h.CompleteTransfer)
	router.POST("/transfers/:id/cancel", security.Authorize("user"), h.CancelTransfer)
	router.POST("/transfers/:id/reject", security.Authorize("moderator"), h.RejectTransfer)
}

type CreateTransferRequest struct {
	ProductID   int                `json:"product_id" binding:"required"`
	Quantity    int                `json:"quantity" binding:"required,gte=1"`
	Source      models.LocationRef `json:"source" binding:"required"`
	Destination models.LocationRef `json:"destination" binding:"required"`
	Notes       *string            `json:"notes"`
}

func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	transfer, err := h.Service.RequestTransfer(req.ProductID, req.Source, req.Destination,
		req.Quantity, security.CurrentUserID(c), req.Notes)
	if err != nil {
		writeTransferError(c, err)
		return
	}

	c.JSON(http.StatusCreated, transfer)
}

func (h *TransferHandler) ListTransfers(c *gin.Context) {
	var status *models.TransferStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.NewTransferStatus(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status = &parsed
	}

	transfers, err := h.Service.ListTransfers(status)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to list transfers"})
		return
	}

	c.JSON(http.StatusOK, transfers)
}

func (h *TransferHandler) GetTransfer(c *gin.Context) {
	transferID, ok := transferIDParam(c)
	if !ok {
		return
	}

	transfer, err := h.Service.GetTransfer(transferID)
	if err != nil {
		writeTransferError(c, err)
		return
	}

	c.JSON(http.StatusOK, transfer)
}

func (h *TransferHandler) GetTransferMovements(c *gin.Context) {
	transferID, ok := transferIDParam(c)
	if !ok {
		return
	}

	records, err := h.Service.GetTransferMovements(transferID)
	if err != nil {
		writeTransferError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *TransferHandler) ApproveTransfer(c *gin.Context) {
	transferID, ok := transferIDParam(c)
	if !ok {
		return
	}

	transfer, err := h.Service.Approve(transferID, security.CurrentUserID(c))
	if err != nil {
		writeTransferError(c, err)
		return
	}

	c.JSON(http.StatusOK, transfer)
}

func (h *TransferHandler) CompleteTransfer(c *gin.Context) {
	transferID, ok := transferIDParam(c)
	if !ok {
		return
	}

	transfer, err := h.Service.Complete(transferID, security.CurrentUserID(c))
	if err != nil {
		writeTransferError(c, err)
		return
	}

	c.JSON(http.StatusOK, transfer)
}

func (h *TransferHandler) CancelTransfer(c *gin.Context) {
	transferID, ok := transferIDParam(c)
	if !ok {
		return
	}

	transfer, err := h.Service.Cancel(transferID)
	if errors.Is(err, custom_error.ErrAlreadyTerminal) {
		c.JSON(http.StatusOK, gin.H{
			"message":  "Transfer already in a terminal state, nothing to cancel",
			"transfer": transfer,
		})
		return
	}
	if err != nil {
		writeTransferError(c, err)
		return
	}

	c.JSON(http.StatusOK, transfer)
}

func (h *TransferHandler) RejectTransfer(c *gin.Context) {
	transferID, ok := transferIDParam(c)
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

	transfer, err := h.Service.Reject(transferID, req.Reason)
	if err != nil {
		writeTransferError(c, err)
		return
	}

	c.JSON(http.StatusOK, transfer)
}

func transferIDParam(c *gin.Context) (int, bool) {
	transferID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid transfer ID parameter, must be an integer"})
		return 0, false
	}
	return transferID, true
}

func writeTransferError(c *gin.Context, err error) {
	var (
		notFound   *custom_error.NotFoundError
		invalid    *custom_error.InvalidTransitionError
		stale      *custom_error.StaleStateError
		validation *custom_error.ValidationError
		violation  *custom_error.InvariantViolationError
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
	case errors.As(err, &violation):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal invariant violation, operators have been notified"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to process transfer"})
	}
}
