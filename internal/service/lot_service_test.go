package service

import (
	"context"
	"testing"
	"time"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"
	"parking_billing/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLotService() (*memory.LedgerStore, *LotService, *SessionLedger) {
	store := memory.NewLedgerStore()
	capacity := NewCapacityManager(store)
	ledger := NewSessionLedger(store, capacity, 5*time.Second)
	svc := NewLotService(memory.NewLotRepository(store), memory.NewSessionRepository(store), store, capacity)
	return store, svc, ledger
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestUpdateConfigChangesPriceAndCapacity(t *testing.T) {
	store, svc, ledger := newTestLotService()
	lot := store.AddLot("Central", 5, 4.0)
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	_, err := ledger.Process(context.Background(), plateEvent(lot.ID, "AA-111", t0))
	require.NoError(t, err)
	_, err = ledger.Process(context.Background(), plateEvent(lot.ID, "BB-222", t0))
	require.NoError(t, err)

	updated, err := svc.UpdateConfig(context.Background(), lot.ID, domain.LotConfigDTO{
		TotalSpaces: intPtr(3),
		UnitPrice:   floatPtr(6.5),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.TotalSpaces)
	assert.Equal(t, 1, updated.FreeSpaces)
	assert.InDelta(t, 6.5, updated.UnitPrice, 1e-9)

	// The new price applies to exits billed after the change.
	result, err := ledger.Process(context.Background(), plateEvent(lot.ID, "AA-111", t0.Add(time.Hour)))
	require.NoError(t, err)
	assert.InDelta(t, 6.5, result.Fee.Float64, 1e-9)
}

// priceFailStore wraps the memory store so SetUnitPrice fails inside the
// transaction, after a capacity change has already been staged.
type priceFailStore struct {
	*memory.LedgerStore
}

func (s *priceFailStore) WithinLotTx(ctx context.Context, lotID int, fn func(tx repository.LedgerTx) error) error {
	return s.LedgerStore.WithinLotTx(ctx, lotID, func(tx repository.LedgerTx) error {
		return fn(&priceFailTx{LedgerTx: tx})
	})
}

type priceFailTx struct {
	repository.LedgerTx
}

func (t *priceFailTx) SetUnitPrice(ctx context.Context, lotID int, unitPrice float64) error {
	return repository.ErrStorageUnavailable
}

func TestUpdateConfigIsAtomic(t *testing.T) {
	store := memory.NewLedgerStore()
	capacity := NewCapacityManager(store)
	svc := NewLotService(memory.NewLotRepository(store), memory.NewSessionRepository(store),
		&priceFailStore{LedgerStore: store}, capacity)
	lot := store.AddLot("Central", 5, 4.0)

	_, err := svc.UpdateConfig(context.Background(), lot.ID, domain.LotConfigDTO{
		TotalSpaces: intPtr(3),
		UnitPrice:   floatPtr(9.0),
	})
	require.ErrorIs(t, err, repository.ErrStorageUnavailable)

	// The failed price write must take the capacity change down with it.
	fresh, err := store.FindLotByID(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.TotalSpaces)
	assert.Equal(t, 5, fresh.FreeSpaces)
	assert.InDelta(t, 4.0, fresh.UnitPrice, 1e-9)
}

func TestUpdateConfigRejectsEmptyPayload(t *testing.T) {
	store, svc, _ := newTestLotService()
	lot := store.AddLot("Central", 5, 4.0)

	_, err := svc.UpdateConfig(context.Background(), lot.ID, domain.LotConfigDTO{})
	assert.Error(t, err)
}

func TestUpdateConfigUnknownLot(t *testing.T) {
	_, svc, _ := newTestLotService()

	_, err := svc.UpdateConfig(context.Background(), 42, domain.LotConfigDTO{TotalSpaces: intPtr(3)})
	assert.ErrorIs(t, err, ErrUnknownLot)
	_, err = svc.UpdateConfig(context.Background(), 42, domain.LotConfigDTO{UnitPrice: floatPtr(2.0)})
	assert.ErrorIs(t, err, ErrUnknownLot)
}

func TestDeleteLotRefusesWithSessionHistory(t *testing.T) {
	store, svc, ledger := newTestLotService()
	lot := store.AddLot("Central", 5, 4.0)
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	_, err := ledger.Process(context.Background(), plateEvent(lot.ID, "AA-111", t0))
	require.NoError(t, err)
	_, err = ledger.Process(context.Background(), plateEvent(lot.ID, "AA-111", t0.Add(time.Hour)))
	require.NoError(t, err)

	// Even closed sessions block deletion; billing history must survive.
	err = svc.DeleteLot(context.Background(), lot.ID)
	assert.Error(t, err)

	empty := store.AddLot("Unused", 2, 3.0)
	assert.NoError(t, svc.DeleteLot(context.Background(), empty.ID))
}
