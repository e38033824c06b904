package service

import (
	"context"
	"testing"
	"time"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	broadcasts []domain.LotAvailabilityDTO
}

func (n *recordingNotifier) BroadcastAvailability(availability domain.LotAvailabilityDTO) {
	n.broadcasts = append(n.broadcasts, availability)
}

func newTestIntake() (*memory.LedgerStore, *RecognitionIntake, *recordingNotifier) {
	store := memory.NewLedgerStore()
	capacity := NewCapacityManager(store)
	ledger := NewSessionLedger(store, capacity, 5*time.Second)
	notifier := &recordingNotifier{}
	intake := NewRecognitionIntake(memory.NewLotRepository(store), ledger, nil, notifier)
	return store, intake, notifier
}

func TestSubmitRejectsBlankPlate(t *testing.T) {
	store, intake, _ := newTestIntake()
	lot := store.AddLot("Central", 2, 4.0)

	for _, plate := range []string{"", "   ", "\t\n"} {
		_, err := intake.Submit(context.Background(), lot.ID, domain.PlateObservationDTO{Plate: plate})
		assert.ErrorIs(t, err, ErrInvalidPlate, "plate %q", plate)
	}
}

func TestSubmitRejectsUnknownLot(t *testing.T) {
	_, intake, _ := newTestIntake()
	_, err := intake.Submit(context.Background(), 42, domain.PlateObservationDTO{Plate: "AB-123"})
	assert.ErrorIs(t, err, ErrUnknownLot)
}

func TestSubmitNormalizesPlate(t *testing.T) {
	store, intake, _ := newTestIntake()
	lot := store.AddLot("Central", 2, 4.0)

	result, err := intake.Submit(context.Background(), lot.ID, domain.PlateObservationDTO{Plate: "  ab-123 "})
	require.NoError(t, err)
	assert.Equal(t, "AB-123", result.Plate)

	// The follow-up sighting of the same physical plate, differently
	// cased, must match the open session.
	result, err = intake.Submit(context.Background(), lot.ID, domain.PlateObservationDTO{Plate: "Ab-123"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultExit, result.Type)
}

func TestSubmitParsesObservedAt(t *testing.T) {
	store, intake, _ := newTestIntake()
	lot := store.AddLot("Central", 2, 4.0)

	observedAt := time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC)
	result, err := intake.Submit(context.Background(), lot.ID, domain.PlateObservationDTO{
		Plate:      "AB-123",
		ObservedAt: observedAt.Format(time.RFC3339Nano),
	})
	require.NoError(t, err)
	assert.Equal(t, observedAt, result.EntryTime)
}

func TestSubmitRejectsMalformedObservedAt(t *testing.T) {
	store, intake, _ := newTestIntake()
	lot := store.AddLot("Central", 2, 4.0)

	_, err := intake.Submit(context.Background(), lot.ID, domain.PlateObservationDTO{
		Plate:      "AB-123",
		ObservedAt: "yesterday afternoon",
	})
	assert.ErrorIs(t, err, ErrInvalidObservedAt)
}

func TestSubmitDefaultsObservedAtToNow(t *testing.T) {
	store, intake, _ := newTestIntake()
	lot := store.AddLot("Central", 2, 4.0)

	before := time.Now().UTC()
	result, err := intake.Submit(context.Background(), lot.ID, domain.PlateObservationDTO{Plate: "AB-123"})
	require.NoError(t, err)
	after := time.Now().UTC()

	assert.False(t, result.EntryTime.Before(before))
	assert.False(t, result.EntryTime.After(after))
}

func TestSubmitBroadcastsAvailability(t *testing.T) {
	store, intake, notifier := newTestIntake()
	lot := store.AddLot("Central", 3, 4.0)

	_, err := intake.Submit(context.Background(), lot.ID, domain.PlateObservationDTO{Plate: "AB-123"})
	require.NoError(t, err)

	require.Len(t, notifier.broadcasts, 1)
	assert.Equal(t, lot.ID, notifier.broadcasts[0].LotID)
	assert.Equal(t, 3, notifier.broadcasts[0].TotalSpaces)
	assert.Equal(t, 2, notifier.broadcasts[0].FreeSpaces)
}

func TestSubmitRejectedEventDoesNotBroadcast(t *testing.T) {
	store, intake, notifier := newTestIntake()
	lot := store.AddLot("Tiny", 1, 4.0)

	_, err := intake.Submit(context.Background(), lot.ID, domain.PlateObservationDTO{Plate: "AA-111"})
	require.NoError(t, err)
	_, err = intake.Submit(context.Background(), lot.ID, domain.PlateObservationDTO{Plate: "BB-222"})
	require.Error(t, err)

	assert.Len(t, notifier.broadcasts, 1)
}
