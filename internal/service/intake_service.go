package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

var ErrInvalidPlate = errors.New("license plate is empty or invalid")
var ErrInvalidObservedAt = errors.New("observed_at is not a valid RFC3339 timestamp")

// AvailabilityNotifier receives the fresh free-space figure after every
// processed event. Implemented by the WebSocket manager; may be nil.
type AvailabilityNotifier interface {
	BroadcastAvailability(availability domain.LotAvailabilityDTO)
}

// RecognitionIntake is the single entry point for plate sightings, whether
// they arrive over HTTP, from the SQS recognizer feed, or from the image
// pipeline. It validates the raw observation and hands a well-formed event to
// the ledger; invalid input is rejected before any state is touched.
type RecognitionIntake struct {
	lotRepo  repository.ParkingLotRepository
	ledger   *SessionLedger
	gates    *GateService         // optional
	notifier AvailabilityNotifier // optional
}

func NewRecognitionIntake(lotRepo repository.ParkingLotRepository, ledger *SessionLedger, gates *GateService, notifier AvailabilityNotifier) *RecognitionIntake {
	return &RecognitionIntake{
		lotRepo:  lotRepo,
		ledger:   ledger,
		gates:    gates,
		notifier: notifier,
	}
}

// Submit validates one observation and runs it through the ledger. ObservedAt
// defaults to the current server time when absent.
func (s *RecognitionIntake) Submit(ctx context.Context, lotID int, dto domain.PlateObservationDTO) (*domain.SessionResult, error) {
	plate := strings.ToUpper(strings.TrimSpace(dto.Plate))
	if plate == "" {
		return nil, ErrInvalidPlate
	}

	lot, err := s.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: lot %d", ErrUnknownLot, lotID)
		}
		return nil, fmt.Errorf("checking parking lot %d: %w", lotID, err)
	}

	observedAt := time.Now().UTC()
	if dto.ObservedAt != "" {
		parsed, err := time.Parse(time.RFC3339Nano, dto.ObservedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: '%s'", ErrInvalidObservedAt, dto.ObservedAt)
		}
		observedAt = parsed.UTC()
	}

	event := domain.RecognitionEvent{
		EventID:    uuid.NewString(),
		LotID:      lot.ID,
		Plate:      plate,
		ObservedAt: observedAt,
	}
	if dto.Confidence != nil {
		event.Confidence = null.FloatFrom(*dto.Confidence)
	}

	result, err := s.ledger.Process(ctx, event)
	if err != nil {
		return nil, err
	}

	s.afterProcess(ctx, lot, result)
	return result, nil
}

// afterProcess pushes side effects that must never fail the ledger operation:
// the availability broadcast and the gate-open command.
func (s *RecognitionIntake) afterProcess(ctx context.Context, lot *domain.ParkingLot, result *domain.SessionResult) {
	if s.notifier != nil {
		s.notifier.BroadcastAvailability(domain.LotAvailabilityDTO{
			LotID:       lot.ID,
			TotalSpaces: lot.TotalSpaces,
			FreeSpaces:  result.FreeSpaces,
			UnitPrice:   lot.UnitPrice,
		})
	}

	if s.gates != nil && lot.GateThingName != "" {
		if err := s.gates.OpenGate(ctx, lot.GateThingName, string(result.Type), result.Plate); err != nil {
			log.Printf("RecognitionIntake: gate command for lot %d failed: %v", lot.ID, err)
		}
	}
}
