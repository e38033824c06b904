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

type RecognitionEventHandler struct {
	intake *service.RecognitionIntake
}

func NewRecognitionEventHandler(intake *service.RecognitionIntake) *RecognitionEventHandler {
	return &RecognitionEventHandler{intake: intake}
}

// POST /parking-lots/:id/events
// One endpoint for both directions: the ledger decides entry vs. exit from
// whether the plate currently has an open session.
func (h *RecognitionEventHandler) SubmitEvent(c *gin.Context) {
	lotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("unknown_lot", "lot id must be an integer"))
		return
	}

	var dto domain.PlateObservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_plate", "invalid request body: "+err.Error()))
		return
	}

	result, err := h.intake.Submit(c.Request.Context(), lotID, dto)
	if err != nil {
		status, kind := classifyLedgerError(err)
		c.JSON(status, errorBody(kind, err.Error()))
		return
	}
	c.JSON(http.StatusOK, result)
}

func errorBody(kind, message string) gin.H {
	return gin.H{"error_kind": kind, "message": message}
}

// classifyLedgerError maps the ledger error taxonomy onto HTTP statuses. Every
// kind below is guaranteed to have left no partial state behind.
func classifyLedgerError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidPlate):
		return http.StatusBadRequest, "invalid_plate"
	case errors.Is(err, service.ErrInvalidObservedAt):
		return http.StatusBadRequest, "invalid_observed_at"
	case errors.Is(err, service.ErrUnknownLot):
		return http.StatusNotFound, "unknown_lot"
	case errors.Is(err, repository.ErrLotFull):
		return http.StatusConflict, "lot_full"
	case errors.Is(err, service.ErrClockOrdering):
		return http.StatusUnprocessableEntity, "clock_ordering_violation"
	case errors.Is(err, repository.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
