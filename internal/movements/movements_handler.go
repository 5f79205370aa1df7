package movements

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
	"github.com/jason-KITIO/k.kits-sub004/pkg/security"
)

const defaultHistoryLimit = 100

type MovementHandler struct {
	Recorder *Recorder
}

func NewMovementHandler(r *Recorder) *MovementHandler {
	return &MovementHandler{Recorder: r}
}

func (h *MovementHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/movements", security.Authorize("user"), h.ListMovements)
}

// ListMovements returns the movement history for one ledger key, newest
// first.
func (h *MovementHandler) ListMovements(c *gin.Context) {
	productID, err := strconv.Atoi(c.Query("product_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid product_id parameter, must be an integer"})
		return
	}

	kind, err := models.NewLocationKind(c.Query("location_kind"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	locationID, err := strconv.Atoi(c.Query("location_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid location_id parameter, must be an integer"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter, must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := h.Recorder.ListByKey(productID, models.LocationRef{Kind: kind, ID: locationID}, limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to list movements"})
		return
	}

	c.JSON(http.StatusOK, records)
}
