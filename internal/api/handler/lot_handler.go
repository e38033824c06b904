package handler

import (
	"errors"
	"net/http"
	"strconv"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"
	"parking_billing/internal/service"

	"github.com/gin-gonic/gin"
)

type ParkingLotHandler struct {
	lotService *service.LotService
}

func NewParkingLotHandler(ls *service.LotService) *ParkingLotHandler {
	return &ParkingLotHandler{lotService: ls}
}

// POST /parking-lots
func (h *ParkingLotHandler) CreateParkingLot(c *gin.Context) {
	var dto domain.ParkingLotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}
	lot, err := h.lotService.CreateLot(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create parking lot", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// GET /parking-lots
func (h *ParkingLotHandler) GetAllParkingLots(c *gin.Context) {
	lots, err := h.lotService.GetAllLots(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list parking lots", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lots)
}

// GET /parking-lots/:id
func (h *ParkingLotHandler) GetParkingLotByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot id"})
		return
	}
	lot, err := h.lotService.GetLotByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "parking lot not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch parking lot", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, domain.LotAvailabilityDTO{
		LotID:       lot.ID,
		TotalSpaces: lot.TotalSpaces,
		FreeSpaces:  lot.FreeSpaces,
		UnitPrice:   lot.UnitPrice,
	})
}

// PUT /parking-lots/:id/config
func (h *ParkingLotHandler) UpdateParkingLotConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot id"})
		return
	}
	var dto domain.LotConfigDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}
	lot, err := h.lotService.UpdateConfig(c.Request.Context(), id, dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownLot), errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "parking lot not found"})
		case errors.Is(err, repository.ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, lot)
}

// DELETE /parking-lots/:id
func (h *ParkingLotHandler) DeleteParkingLot(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot id"})
		return
	}
	if err := h.lotService.DeleteLot(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "parking lot not found"})
		case errors.Is(err, repository.ErrDuplicateEntry):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete parking lot", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
