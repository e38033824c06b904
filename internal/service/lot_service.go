package service

import (
	"context"
	"errors"
	"fmt"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"
)

// LotService covers lot administration: creation, lookup, config updates and
// deletion. Config updates that touch capacity go through the CapacityManager
// so free_spaces is rederived from the open-session count, never guessed.
type LotService struct {
	lotRepo     repository.ParkingLotRepository
	sessionRepo repository.ParkingSessionRepository
	store       repository.LedgerStore
	capacity    *CapacityManager
}

func NewLotService(
	lotRepo repository.ParkingLotRepository,
	sessionRepo repository.ParkingSessionRepository,
	store repository.LedgerStore,
	capacity *CapacityManager,
) *LotService {
	return &LotService{
		lotRepo:     lotRepo,
		sessionRepo: sessionRepo,
		store:       store,
		capacity:    capacity,
	}
}

func (s *LotService) CreateLot(ctx context.Context, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{
		Name:          dto.Name,
		Address:       dto.Address,
		TotalSpaces:   dto.TotalSpaces,
		FreeSpaces:    dto.TotalSpaces,
		UnitPrice:     dto.UnitPrice,
		GateThingName: dto.GateThingName,
	}
	return s.lotRepo.Create(ctx, lot)
}

func (s *LotService) GetLotByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return s.lotRepo.FindByID(ctx, id)
}

func (s *LotService) GetAllLots(ctx context.Context) ([]domain.ParkingLot, error) {
	return s.lotRepo.FindAll(ctx)
}

// UpdateConfig applies the admin config payload in one lot transaction:
// either every change in the payload lands or none does. Setting total spaces
// to the current value is a no-op for sessions; it only rederives the counter.
func (s *LotService) UpdateConfig(ctx context.Context, lotID int, dto domain.LotConfigDTO) (*domain.ParkingLot, error) {
	if dto.TotalSpaces == nil && dto.UnitPrice == nil {
		return nil, fmt.Errorf("config update for lot %d carries no changes", lotID)
	}

	err := s.store.WithinLotTx(ctx, lotID, func(tx repository.LedgerTx) error {
		if dto.TotalSpaces != nil {
			if _, err := s.capacity.Resize(ctx, tx, lotID, *dto.TotalSpaces); err != nil {
				return err
			}
		}
		if dto.UnitPrice != nil {
			return tx.SetUnitPrice(ctx, lotID, *dto.UnitPrice)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownLot
		}
		return nil, err
	}

	return s.lotRepo.FindByID(ctx, lotID)
}

// DeleteLot refuses while the lot still has session history; the ledger is
// append-only and deleting a lot must not orphan it.
func (s *LotService) DeleteLot(ctx context.Context, id int) error {
	count, err := s.sessionRepo.CountByLot(ctx, id)
	if err != nil {
		return fmt.Errorf("checking sessions for lot %d: %w", id, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: lot %d has %d recorded session(s)", repository.ErrDuplicateEntry, id, count)
	}
	return s.lotRepo.Delete(ctx, id)
}

// --- session reads ---

type SessionQueryService struct {
	sessionRepo repository.ParkingSessionRepository
}

func NewSessionQueryService(sessionRepo repository.ParkingSessionRepository) *SessionQueryService {
	return &SessionQueryService{sessionRepo: sessionRepo}
}

func (s *SessionQueryService) GetSessionByID(ctx context.Context, id int) (*domain.ParkingSession, error) {
	return s.sessionRepo.FindByID(ctx, id)
}

func (s *SessionQueryService) GetOpenSessionsByLot(ctx context.Context, lotID int) ([]domain.ParkingSession, error) {
	return s.sessionRepo.FindOpenByLot(ctx, lotID)
}

func (s *SessionQueryService) FindSessions(ctx context.Context, filter domain.ParkingSessionFilterDTO) ([]domain.ParkingSession, error) {
	return s.sessionRepo.Find(ctx, filter)
}
