package service

import (
	"context"
	"fmt"
	"log"

	"parking_billing/internal/repository"
)

// CapacityManager owns the free-space counter of a lot. Reserve and Release
// run inside a ledger transaction supplied by the caller so the counter can
// only change together with the session row that justifies the change.
type CapacityManager struct {
	store repository.LedgerStore
}

func NewCapacityManager(store repository.LedgerStore) *CapacityManager {
	return &CapacityManager{store: store}
}

// Reserve takes one space, failing with repository.ErrLotFull when none are
// free. Returns the free-space count after the decrement.
func (m *CapacityManager) Reserve(ctx context.Context, tx repository.LedgerTx, lotID int) (int, error) {
	freeSpaces, err := tx.ReserveSpace(ctx, lotID)
	if err != nil {
		return 0, err
	}
	return freeSpaces, nil
}

// Release returns one space. A release that finds the counter already at
// capacity has no paired reserve; that is an integrity violation, logged and
// clamped so the counter never exceeds total_spaces.
func (m *CapacityManager) Release(ctx context.Context, tx repository.LedgerTx, lotID int) (int, error) {
	freeSpaces, clamped, err := tx.ReleaseSpace(ctx, lotID)
	if err != nil {
		return 0, err
	}
	if clamped {
		log.Printf("CapacityManager: INTEGRITY VIOLATION: release for lot %d found the counter already at capacity (%d); clamped", lotID, freeSpaces)
	}
	return freeSpaces, nil
}

// Resize rewrites total_spaces and rederives free_spaces from the
// authoritative open-session count, floored at zero. Sessions are never
// altered. Runs inside the caller's transaction so it can commit together
// with other config changes.
func (m *CapacityManager) Resize(ctx context.Context, tx repository.LedgerTx, lotID int, newTotal int) (int, error) {
	if newTotal <= 0 {
		return 0, fmt.Errorf("total spaces must be positive, got %d", newTotal)
	}
	return tx.RecomputeFreeSpaces(ctx, lotID, newTotal)
}

// SetTotalSpaces is Resize in its own transaction.
func (m *CapacityManager) SetTotalSpaces(ctx context.Context, lotID int, newTotal int) (int, error) {
	var freeSpaces int
	err := m.store.WithinLotTx(ctx, lotID, func(tx repository.LedgerTx) error {
		var err error
		freeSpaces, err = m.Resize(ctx, tx, lotID, newTotal)
		return err
	})
	if err != nil {
		return 0, err
	}
	return freeSpaces, nil
}
