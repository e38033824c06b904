package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"

	"github.com/lib/pq"
)

type pgLedgerStore struct {
	db *sql.DB
}

func NewPgLedgerStore(db *sql.DB) repository.LedgerStore {
	return &pgLedgerStore{db: db}
}

// WithinLotTx opens one transaction for the given lot and locks its row up
// front, so the free-space counter and the session rows always change
// together. Concurrent callers for the same lot queue on the row lock;
// different lots proceed independently.
func (s *pgLedgerStore) WithinLotTx(ctx context.Context, lotID int, fn func(tx repository.LedgerTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return storageErr("LedgerStore.WithinLotTx (begin)", err)
	}

	ltx := &pgLedgerTx{tx: sqlTx}
	if _, err := ltx.LotForUpdate(ctx, lotID); err != nil {
		sqlTx.Rollback()
		return err
	}

	if err := fn(ltx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("LedgerStore: rollback failed for lot %d: %v", lotID, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return storageErr("LedgerStore.WithinLotTx (commit)", err)
	}
	return nil
}

type pgLedgerTx struct {
	tx *sql.Tx
}

func (t *pgLedgerTx) LotForUpdate(ctx context.Context, lotID int) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{}
	query := `SELECT id, name, address, total_spaces, free_spaces, unit_price, gate_thing_name, created_at, updated_at
	           FROM parking_lots WHERE id = $1 FOR UPDATE`
	err := t.tx.QueryRowContext(ctx, query, lotID).Scan(
		&lot.ID, &lot.Name, &lot.Address, &lot.TotalSpaces, &lot.FreeSpaces,
		&lot.UnitPrice, &lot.GateThingName, &lot.CreatedAt, &lot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, storageErr("LedgerTx.LotForUpdate", err)
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (t *pgLedgerTx) ReserveSpace(ctx context.Context, lotID int) (int, error) {
	var freeSpaces int
	query := `UPDATE parking_lots
	           SET free_spaces = free_spaces - 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $1 AND free_spaces > 0
	           RETURNING free_spaces`
	err := t.tx.QueryRowContext(ctx, query, lotID).Scan(&freeSpaces)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrLotFull
		}
		return 0, storageErr("LedgerTx.ReserveSpace", err)
	}
	return freeSpaces, nil
}

func (t *pgLedgerTx) ReleaseSpace(ctx context.Context, lotID int) (int, bool, error) {
	var freeSpaces int
	var clamped bool
	// The self-join exposes the pre-update counter: a release finding the lot
	// already at capacity had no paired reserve and must clamp.
	query := `UPDATE parking_lots l
	           SET free_spaces = LEAST(l.free_spaces + 1, l.total_spaces), updated_at = CURRENT_TIMESTAMP
	           FROM (SELECT free_spaces AS prev_free, total_spaces AS prev_total
	                 FROM parking_lots WHERE id = $1) prev
	           WHERE l.id = $1
	           RETURNING l.free_spaces, prev.prev_free >= prev.prev_total`
	err := t.tx.QueryRowContext(ctx, query, lotID).Scan(&freeSpaces, &clamped)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, repository.ErrNotFound
		}
		return 0, false, storageErr("LedgerTx.ReleaseSpace", err)
	}
	return freeSpaces, clamped, nil
}

func (t *pgLedgerTx) RecomputeFreeSpaces(ctx context.Context, lotID int, newTotal int) (int, error) {
	var freeSpaces int
	query := `UPDATE parking_lots
	           SET total_spaces = $2,
	               free_spaces = GREATEST($2 - (SELECT COUNT(*) FROM parking_sessions
	                                             WHERE lot_id = $1 AND status = $3), 0),
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = $1
	           RETURNING free_spaces`
	err := t.tx.QueryRowContext(ctx, query, lotID, newTotal, domain.SessionOpen).Scan(&freeSpaces)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, storageErr("LedgerTx.RecomputeFreeSpaces", err)
	}
	return freeSpaces, nil
}

func (t *pgLedgerTx) SetUnitPrice(ctx context.Context, lotID int, unitPrice float64) error {
	query := `UPDATE parking_lots SET unit_price = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	result, err := t.tx.ExecContext(ctx, query, lotID, unitPrice)
	if err != nil {
		return storageErr("LedgerTx.SetUnitPrice", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storageErr("LedgerTx.SetUnitPrice (checking rows affected)", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (t *pgLedgerTx) FindOpenSession(ctx context.Context, lotID int, plate string) (*domain.ParkingSession, error) {
	session := &domain.ParkingSession{}
	// The partial unique index on (lot_id, plate) WHERE status = 'open'
	// guarantees at most one row here.
	query := `SELECT ` + sessionColumns + `
	           FROM parking_sessions
	           WHERE lot_id = $1 AND plate = $2 AND status = $3`
	if err := scanSession(t.tx.QueryRowContext(ctx, query, lotID, plate, domain.SessionOpen), session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoOpenSession
		}
		return nil, storageErr("LedgerTx.FindOpenSession", err)
	}
	return session, nil
}

func (t *pgLedgerTx) CreateSession(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	query := `INSERT INTO parking_sessions (lot_id, plate, entry_time, status, entry_event_id)
	           VALUES ($1, $2, $3, $4, $5)
	           RETURNING id, created_at, updated_at`
	err := t.tx.QueryRowContext(ctx, query,
		session.LotID, session.Plate, session.EntryTime, session.Status, session.EntryEventID,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				return nil, fmt.Errorf("%w: open session for plate '%s' in lot %d", repository.ErrDuplicateEntry, session.Plate, session.LotID)
			}
		}
		return nil, storageErr("LedgerTx.CreateSession", err)
	}
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return session, nil
}

func (t *pgLedgerTx) CloseSession(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	query := `UPDATE parking_sessions
	           SET exit_time = $1, billed_hours = $2, fee = $3, status = $4, exit_event_id = $5,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = $6 AND status = $7
	           RETURNING updated_at`
	err := t.tx.QueryRowContext(ctx, query,
		session.ExitTime, session.BilledHours, session.Fee, domain.SessionClosed,
		session.ExitEventID, session.ID, domain.SessionOpen,
	).Scan(&session.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Closed already or never existed; closing is strictly once.
			return nil, repository.ErrNoOpenSession
		}
		return nil, storageErr("LedgerTx.CloseSession", err)
	}
	session.Status = domain.SessionClosed
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return session, nil
}

// storageErr tags driver and context failures as retryable storage errors so
// callers can match them with errors.Is(err, repository.ErrStorageUnavailable).
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, repository.ErrStorageUnavailable, err)
}
