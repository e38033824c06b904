package domain

// LPRRequestDTO carries a base64 encoded frame from the camera/UI layer.
type LPRRequestDTO struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
	// Submit feeds the recognized plate straight into the occupancy ledger
	// of the lot instead of just returning it.
	Submit bool `json:"submit"`
	LotID  int  `json:"lot_id" binding:"required_if=Submit true"`
}

type LPRResponseDTO struct {
	DetectedPlate string   `json:"detected_plate"`
	Confidence    float64  `json:"confidence,omitempty"`
	Result        any      `json:"result,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
	Candidates    []string `json:"candidates,omitempty"`
}
