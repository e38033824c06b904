package repository

import (
	"context"
	"errors"

	"parking_billing/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")
var ErrNoOpenSession = errors.New("no open parking session for the given plate")
var ErrLotFull = errors.New("parking lot has no free spaces")
var ErrStorageUnavailable = errors.New("storage unavailable")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type ParkingLotRepository interface {
	Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	FindAll(ctx context.Context) ([]domain.ParkingLot, error)
	Delete(ctx context.Context, id int) error
}

// ParkingSessionRepository is the read side of the ledger. All session writes
// go through LedgerStore so they commit together with the capacity counter.
type ParkingSessionRepository interface {
	FindByID(ctx context.Context, id int) (*domain.ParkingSession, error)
	FindOpenByLot(ctx context.Context, lotID int) ([]domain.ParkingSession, error)
	CountByLot(ctx context.Context, lotID int) (int, error)
	Find(ctx context.Context, filter domain.ParkingSessionFilterDTO) ([]domain.ParkingSession, error)
}

// LedgerTx is the set of operations available inside one lot-scoped
// transaction. The lot row is locked for the whole transaction, so for a given
// lot at most one LedgerTx is in flight at a time.
type LedgerTx interface {
	// LotForUpdate loads the lot row with an exclusive lock.
	LotForUpdate(ctx context.Context, lotID int) (*domain.ParkingLot, error)
	// ReserveSpace decrements free_spaces, failing with ErrLotFull at zero.
	ReserveSpace(ctx context.Context, lotID int) (int, error)
	// ReleaseSpace increments free_spaces, clamped at total_spaces. The
	// returned flag reports whether clamping was needed, which means a
	// release arrived without a paired reserve.
	ReleaseSpace(ctx context.Context, lotID int) (freeSpaces int, clamped bool, err error)
	// RecomputeFreeSpaces sets total_spaces and rederives free_spaces from
	// the open-session count, floored at zero.
	RecomputeFreeSpaces(ctx context.Context, lotID int, newTotal int) (int, error)
	SetUnitPrice(ctx context.Context, lotID int, unitPrice float64) error
	// FindOpenSession returns the single open session for (lot, plate) or
	// ErrNoOpenSession.
	FindOpenSession(ctx context.Context, lotID int, plate string) (*domain.ParkingSession, error)
	CreateSession(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
	CloseSession(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
}

// LedgerStore runs fn inside a single storage transaction scoped to one lot.
// If fn returns an error nothing is committed. Context deadline or connection
// failures surface as errors wrapping ErrStorageUnavailable.
type LedgerStore interface {
	WithinLotTx(ctx context.Context, lotID int, fn func(tx LedgerTx) error) error
}
