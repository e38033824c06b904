package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"

	"gopkg.in/guregu/null.v4"
)

var ErrUnknownLot = errors.New("parking lot does not exist")
var ErrClockOrdering = errors.New("exit timestamp precedes the entry timestamp of the open session")

// SessionLedger owns the open-session set and decides entry vs. exit for each
// incoming plate event: a plate with an open session is leaving, any other
// plate is arriving. No direction flag is accepted from callers; the decision
// is purely a function of persisted state.
type SessionLedger struct {
	store          repository.LedgerStore
	capacity       *CapacityManager
	fees           FeeCalculator
	storageTimeout time.Duration

	lotLocks sync.Map // lotID -> *sync.Mutex
}

func NewSessionLedger(store repository.LedgerStore, capacity *CapacityManager, storageTimeout time.Duration) *SessionLedger {
	return &SessionLedger{
		store:          store,
		capacity:       capacity,
		storageTimeout: storageTimeout,
	}
}

// lotLock serializes ledger operations per lot. Operations on different lots
// never contend here.
func (l *SessionLedger) lotLock(lotID int) *sync.Mutex {
	mu, _ := l.lotLocks.LoadOrStore(lotID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Process applies one recognition event. Entry: reserve a space and create an
// open session, atomically. Exit: compute the fee, close the session and
// release the space, atomically. On any error nothing is left half-done.
func (l *SessionLedger) Process(ctx context.Context, event domain.RecognitionEvent) (*domain.SessionResult, error) {
	mu := l.lotLock(event.LotID)
	mu.Lock()
	defer mu.Unlock()

	if l.storageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.storageTimeout)
		defer cancel()
	}

	var result *domain.SessionResult
	err := l.store.WithinLotTx(ctx, event.LotID, func(tx repository.LedgerTx) error {
		lot, err := tx.LotForUpdate(ctx, event.LotID)
		if err != nil {
			return err
		}

		open, err := tx.FindOpenSession(ctx, lot.ID, event.Plate)
		switch {
		case errors.Is(err, repository.ErrNoOpenSession):
			result, err = l.processEntry(ctx, tx, lot, event)
			return err
		case err != nil:
			return err
		default:
			result, err = l.processExit(ctx, tx, lot, open, event)
			return err
		}
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownLot
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", repository.ErrStorageUnavailable, err)
		}
		return nil, err
	}
	return result, nil
}

func (l *SessionLedger) processEntry(ctx context.Context, tx repository.LedgerTx, lot *domain.ParkingLot, event domain.RecognitionEvent) (*domain.SessionResult, error) {
	freeSpaces, err := l.capacity.Reserve(ctx, tx, lot.ID)
	if err != nil {
		return nil, err
	}

	session := &domain.ParkingSession{
		LotID:        lot.ID,
		Plate:        event.Plate,
		EntryTime:    event.ObservedAt,
		Status:       domain.SessionOpen,
		EntryEventID: null.StringFrom(event.EventID),
	}
	created, err := tx.CreateSession(ctx, session)
	if err != nil {
		return nil, err
	}

	log.Printf("SessionLedger: entry for plate '%s' in lot %d (session %d, %d space(s) left)",
		created.Plate, lot.ID, created.ID, freeSpaces)
	return &domain.SessionResult{
		Type:       domain.ResultEntry,
		SessionID:  created.ID,
		LotID:      lot.ID,
		Plate:      created.Plate,
		EntryTime:  created.EntryTime,
		FreeSpaces: freeSpaces,
	}, nil
}

func (l *SessionLedger) processExit(ctx context.Context, tx repository.LedgerTx, lot *domain.ParkingLot, open *domain.ParkingSession, event domain.RecognitionEvent) (*domain.SessionResult, error) {
	if event.ObservedAt.Before(open.EntryTime) {
		return nil, fmt.Errorf("%w: exit at %v, entry at %v (session %d)",
			ErrClockOrdering, event.ObservedAt, open.EntryTime, open.ID)
	}

	billedHours, fee, err := l.fees.Compute(open.EntryTime, event.ObservedAt, lot.UnitPrice)
	if err != nil {
		return nil, err
	}

	open.ExitTime = null.TimeFrom(event.ObservedAt)
	open.BilledHours = null.IntFrom(int64(billedHours))
	open.Fee = null.FloatFrom(fee)
	open.ExitEventID = null.StringFrom(event.EventID)

	closed, err := tx.CloseSession(ctx, open)
	if err != nil {
		return nil, err
	}

	freeSpaces, err := l.capacity.Release(ctx, tx, lot.ID)
	if err != nil {
		return nil, err
	}

	log.Printf("SessionLedger: exit for plate '%s' in lot %d (session %d, %d billed hour(s), fee %.2f)",
		closed.Plate, lot.ID, closed.ID, billedHours, fee)
	return &domain.SessionResult{
		Type:        domain.ResultExit,
		SessionID:   closed.ID,
		LotID:       lot.ID,
		Plate:       closed.Plate,
		EntryTime:   closed.EntryTime,
		ExitTime:    closed.ExitTime,
		BilledHours: closed.BilledHours,
		Fee:         closed.Fee,
		FreeSpaces:  freeSpaces,
	}, nil
}
