package memory

import (
	"context"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"
)

// LotRepository adapts LedgerStore's lot views to the repository interface.
type LotRepository struct {
	store *LedgerStore
}

func NewLotRepository(store *LedgerStore) repository.ParkingLotRepository {
	return &LotRepository{store: store}
}

func (r *LotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	return r.store.CreateLot(ctx, lot)
}

func (r *LotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return r.store.FindLotByID(ctx, id)
}

func (r *LotRepository) FindAll(ctx context.Context) ([]domain.ParkingLot, error) {
	return r.store.FindAllLots(ctx)
}

func (r *LotRepository) Delete(ctx context.Context, id int) error {
	return r.store.DeleteLot(ctx, id)
}

// SessionRepository adapts LedgerStore's session views to the repository
// interface.
type SessionRepository struct {
	store *LedgerStore
}

func NewSessionRepository(store *LedgerStore) repository.ParkingSessionRepository {
	return &SessionRepository{store: store}
}

func (r *SessionRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSession, error) {
	return r.store.FindSessionByID(ctx, id)
}

func (r *SessionRepository) FindOpenByLot(ctx context.Context, lotID int) ([]domain.ParkingSession, error) {
	return r.store.FindOpenSessionsByLot(ctx, lotID)
}

func (r *SessionRepository) CountByLot(ctx context.Context, lotID int) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, session := range r.store.sessions {
		if session.LotID == lotID {
			count++
		}
	}
	return count, nil
}

func (r *SessionRepository) Find(ctx context.Context, filter domain.ParkingSessionFilterDTO) ([]domain.ParkingSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.ParkingSession
	for _, session := range r.store.sessions {
		if filter.LotID != nil && session.LotID != *filter.LotID {
			continue
		}
		if filter.Plate != nil && session.Plate != *filter.Plate {
			continue
		}
		if filter.Status != nil && string(session.Status) != *filter.Status {
			continue
		}
		out = append(out, *copySession(session))
	}
	return out, nil
}
