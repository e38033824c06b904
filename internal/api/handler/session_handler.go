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

type ParkingSessionHandler struct {
	sessions *service.SessionQueryService
}

func NewParkingSessionHandler(sessions *service.SessionQueryService) *ParkingSessionHandler {
	return &ParkingSessionHandler{sessions: sessions}
}

// GET /parking-sessions/:id
func (h *ParkingSessionHandler) GetSessionByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	session, err := h.sessions.GetSessionByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "parking session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch parking session", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

// GET /parking-lots/:id/active-sessions
func (h *ParkingSessionHandler) GetOpenSessionsByLot(c *gin.Context) {
	lotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot id"})
		return
	}
	sessions, err := h.sessions.GetOpenSessionsByLot(c.Request.Context(), lotID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list open sessions", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GET /parking-sessions
func (h *ParkingSessionHandler) FindSessions(c *gin.Context) {
	var filter domain.ParkingSessionFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter parameters: " + err.Error()})
		return
	}
	sessions, err := h.sessions.FindSessions(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not search parking sessions", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessions)
}
