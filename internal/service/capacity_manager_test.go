package service

import (
	"context"
	"testing"
	"time"

	"parking_billing/internal/repository"
	"parking_billing/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveFailsWhenNoSpacesLeft(t *testing.T) {
	store := memory.NewLedgerStore()
	capacity := NewCapacityManager(store)
	lot := store.AddLot("Tiny", 1, 4.0)

	err := store.WithinLotTx(context.Background(), lot.ID, func(tx repository.LedgerTx) error {
		free, err := capacity.Reserve(context.Background(), tx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, free)

		_, err = capacity.Reserve(context.Background(), tx, lot.ID)
		assert.ErrorIs(t, err, repository.ErrLotFull)
		return nil
	})
	require.NoError(t, err)
}

func TestReleaseClampsAtCapacity(t *testing.T) {
	store := memory.NewLedgerStore()
	capacity := NewCapacityManager(store)
	lot := store.AddLot("Central", 3, 4.0)

	// All spaces already free: an unpaired release must not push the
	// counter past total_spaces.
	err := store.WithinLotTx(context.Background(), lot.ID, func(tx repository.LedgerTx) error {
		free, err := capacity.Release(context.Background(), tx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, free)
		return nil
	})
	require.NoError(t, err)
}

func TestReleaseReachingCapacityIsNotClamped(t *testing.T) {
	store := memory.NewLedgerStore()
	capacity := NewCapacityManager(store)
	lot := store.AddLot("Central", 2, 4.0)

	err := store.WithinLotTx(context.Background(), lot.ID, func(tx repository.LedgerTx) error {
		_, err := capacity.Reserve(context.Background(), tx, lot.ID)
		require.NoError(t, err)
		free, err := capacity.Release(context.Background(), tx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, free)
		return nil
	})
	require.NoError(t, err)
}

func TestSetTotalSpacesRecomputesFromOpenSessions(t *testing.T) {
	store := memory.NewLedgerStore()
	capacity := NewCapacityManager(store)
	ledger := NewSessionLedger(store, capacity, 5*time.Second)
	lot := store.AddLot("Central", 5, 4.0)
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for _, plate := range []string{"AA-1", "BB-2", "CC-3"} {
		_, err := ledger.Process(context.Background(), plateEvent(lot.ID, plate, t0))
		require.NoError(t, err)
	}

	// Growing the lot adds the new spaces to the free pool.
	free, err := capacity.SetTotalSpaces(context.Background(), lot.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, free)

	// Shrinking below the parked count floors free at zero without
	// touching any session.
	free, err = capacity.SetTotalSpaces(context.Background(), lot.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, free)

	open, err := store.FindOpenSessionsByLot(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.Len(t, open, 3)
}

func TestSetTotalSpacesRejectsNonPositive(t *testing.T) {
	store := memory.NewLedgerStore()
	capacity := NewCapacityManager(store)
	lot := store.AddLot("Central", 5, 4.0)

	_, err := capacity.SetTotalSpaces(context.Background(), lot.ID, 0)
	assert.Error(t, err)
	_, err = capacity.SetTotalSpaces(context.Background(), lot.ID, -3)
	assert.Error(t, err)

	fresh, err := store.FindLotByID(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.TotalSpaces)
}

func TestSetTotalSpacesUnknownLot(t *testing.T) {
	store := memory.NewLedgerStore()
	capacity := NewCapacityManager(store)

	_, err := capacity.SetTotalSpaces(context.Background(), 42, 5)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
