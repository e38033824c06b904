package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// LPRService is the external recognizer collaborator: image bytes in, a plate
// string with a confidence score out. The engine never does OCR itself; this
// wraps AWS Rekognition DetectText and picks the most plate-shaped line.
type LPRService struct {
	rekognitionClient *rekognition.Client
}

func NewLPRService(rekClient *rekognition.Client) *LPRService {
	return &LPRService{rekognitionClient: rekClient}
}

// plateRegex is intentionally loose: real format validation is not this
// system's job, the filter only discards obvious non-plate text lines.
var plateRegex = regexp.MustCompile(`^[A-Z0-9]{2,4}[- ]?[A-Z0-9]{2,6}$`)

func (s *LPRService) ProcessImageForLPR(ctx context.Context, imageBytes []byte) (string, float64, error) {
	if s.rekognitionClient == nil {
		return "", 0, fmt.Errorf("rekognition client is not configured")
	}

	input := &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: imageBytes},
	}
	result, err := s.rekognitionClient.DetectText(ctx, input)
	if err != nil {
		return "", 0, fmt.Errorf("rekognition DetectText: %w", err)
	}

	var bestPlate string
	var bestConfidence float32
	var seen []string

	for _, detection := range result.TextDetections {
		if detection.Type != types.TextTypesLine && detection.Type != types.TextTypesWord {
			continue
		}
		if detection.DetectedText == nil || detection.Confidence == nil {
			continue
		}
		txt := strings.ToUpper(strings.TrimSpace(*detection.DetectedText))
		seen = append(seen, fmt.Sprintf("%s (%.2f)", txt, *detection.Confidence))

		candidate := strings.ReplaceAll(txt, ".", "")
		if plateRegex.MatchString(candidate) && *detection.Confidence > bestConfidence {
			bestConfidence = *detection.Confidence
			bestPlate = strings.ReplaceAll(candidate, " ", "")
		}
	}

	if bestPlate == "" {
		log.Printf("LPRService: no plate-shaped text among %d detections: %s",
			len(result.TextDetections), strings.Join(seen, ", "))
		return "", 0, fmt.Errorf("no license plate recognized in image")
	}

	log.Printf("LPRService: picked plate '%s' with confidence %.2f", bestPlate, bestConfidence)
	return bestPlate, float64(bestConfidence), nil
}
