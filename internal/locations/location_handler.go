package locations

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jason-KITIO/k.kits-sub004/internal/ledger"
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
	"github.com/jason-KITIO/k.kits-sub004/pkg/security"
)

type LocationHandler struct {
	Repository *LocationRepository
	Ledger     *ledger.Service
}

type CreateLocationRequest struct {
	Kind    string  `json:"kind" binding:"required"`
	Name    string  `json:"name" binding:"required"`
	StoreID *int    `json:"store_id"`
	Details *string `json:"details"`
}

type UpdateLocationRequest struct {
	Name    *string `json:"name"`
	Details *string `json:"details"`
}

func NewLocationHandler(r *LocationRepository, l *ledger.Service) *LocationHandler {
	return &LocationHandler{Repository: r, Ledger: l}
}

func (h *LocationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/locations", security.Authorize("user"), h.GetLocations)
	router.GET("/locations/:id", security.Authorize("user"), h.GetLocation)
	router.GET("/locations/:id/stock", security.Authorize("user"), h.GetLocationStock)
	router.POST("/locations", security.Authorize("moderator"), h.CreateLocation)
	router.PATCH("/locations/:id", security.Authorize("moderator"), h.UpdateLocation)
	router.DELETE("/locations/:id", security.Authorize("admin"), h.DeactivateLocation)
}

func (h *LocationHandler) GetLocations(c *gin.Context) {
	organizationID := security.CurrentOrganizationID(c)

	locations, err := h.Repository.GetLocations(organizationID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to list locations"})
		return
	}

	c.JSON(http.StatusOK, locations)
}

func (h *LocationHandler) GetLocation(c *gin.Context) {
	locationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID parameter, must be an integer"})
		return
	}

	location, err := h.Repository.GetLocation(locationID)
	if err != nil {
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch location"})
		return
	}

	c.JSON(http.StatusOK, location)
}

// GetLocationStock lists every stock entry held at a location: the batch read
// of the ledger query surface.
func (h *LocationHandler) GetLocationStock(c *gin.Context) {
	locationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID parameter, must be an integer"})
		return
	}

	location, err := h.Repository.GetLocation(locationID)
	if err != nil {
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch location"})
		return
	}

	entries, err := h.Ledger.ListByLocation(location.Ref())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to list stock entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"location": location, "stock": entries})
}

func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	kind, err := models.NewLocationKind(req.Kind)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if kind == models.LocationEmployee && req.StoreID == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Employee locations require a store_id"})
		return
	}

	location := models.Location{
		OrganizationID: security.CurrentOrganizationID(c),
		Kind:           kind,
		Name:           req.Name,
		StoreID:        req.StoreID,
		Details:        req.Details,
	}

	if err := h.Repository.PersistLocation(&location); err != nil {
		var unique *custom_error.UniqueViolationError
		if errors.As(err, &unique) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Location with same data already registered"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not insert location"})
		return
	}

	c.JSON(http.StatusCreated, location)
}

func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	locationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID parameter, must be an integer"})
		return
	}

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	location, err := h.Repository.UpdateLocation(locationID, req)
	if err != nil {
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update location"})
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) DeactivateLocation(c *gin.Context) {
	locationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID parameter, must be an integer"})
		return
	}

	if err := h.Repository.DeactivateLocation(locationID); err != nil {
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate location"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Location deactivated", "location_id": locationID})
}
