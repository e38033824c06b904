package handler

import (
	"encoding/base64"
	"net/http"
	"strings"

	"parking_billing/internal/domain"
	"parking_billing/internal/service"

	"github.com/gin-gonic/gin"
)

type LPRHandler struct {
	lprService *service.LPRService
	intake     *service.RecognitionIntake
}

func NewLPRHandler(lprService *service.LPRService, intake *service.RecognitionIntake) *LPRHandler {
	return &LPRHandler{lprService: lprService, intake: intake}
}

// POST /lpr/process-image
// Runs recognition on a base64 frame. With submit=true the recognized plate is
// fed straight through the intake, so one call covers camera-to-ledger.
func (h *LPRHandler) ProcessImage(c *gin.Context) {
	var dto domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	b64 := dto.ImageBase64
	if idx := strings.Index(b64, ","); idx != -1 && strings.HasPrefix(b64, "data:") {
		b64 = b64[idx+1:]
	}
	imageBytes, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_base64 is not valid base64"})
		return
	}

	plate, confidence, err := h.lprService.ProcessImageForLPR(c.Request.Context(), imageBytes)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, domain.LPRResponseDTO{ErrorMessage: err.Error()})
		return
	}

	resp := domain.LPRResponseDTO{DetectedPlate: plate, Confidence: confidence}
	if dto.Submit {
		result, err := h.intake.Submit(c.Request.Context(), dto.LotID, domain.PlateObservationDTO{
			Plate:      plate,
			Confidence: &confidence,
		})
		if err != nil {
			status, kind := classifyLedgerError(err)
			c.JSON(status, errorBody(kind, err.Error()))
			return
		}
		resp.Result = result
	}
	c.JSON(http.StatusOK, resp)
}
