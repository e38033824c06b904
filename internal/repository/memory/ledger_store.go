// Package memory holds in-memory implementations of the repository
// interfaces. They back the service tests and keep the transactional contract
// of the Postgres store: nothing written inside WithinLotTx is visible until
// the callback returns nil.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"
)

type LedgerStore struct {
	mu       sync.Mutex
	lots     map[int]*domain.ParkingLot
	sessions map[int]*domain.ParkingSession
	nextLot  int
	nextSess int
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		lots:     make(map[int]*domain.ParkingLot),
		sessions: make(map[int]*domain.ParkingSession),
		nextLot:  1,
		nextSess: 1,
	}
}

// AddLot seeds a lot and returns it. Free spaces start at total.
func (s *LedgerStore) AddLot(name string, totalSpaces int, unitPrice float64) *domain.ParkingLot {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	lot := &domain.ParkingLot{
		ID:          s.nextLot,
		Name:        name,
		TotalSpaces: totalSpaces,
		FreeSpaces:  totalSpaces,
		UnitPrice:   unitPrice,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextLot++
	s.lots[lot.ID] = lot
	return copyLot(lot)
}

func (s *LedgerStore) WithinLotTx(ctx context.Context, lotID int, fn func(tx repository.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return repository.ErrStorageUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lots[lotID]; !ok {
		return repository.ErrNotFound
	}

	tx := &memLedgerTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	// Commit: apply staged writes.
	for id, lot := range tx.stagedLots {
		s.lots[id] = lot
	}
	for id, session := range tx.stagedSessions {
		s.sessions[id] = session
	}
	return nil
}

type memLedgerTx struct {
	store          *LedgerStore
	stagedLots     map[int]*domain.ParkingLot
	stagedSessions map[int]*domain.ParkingSession
}

func (t *memLedgerTx) lot(lotID int) (*domain.ParkingLot, bool) {
	if t.stagedLots != nil {
		if lot, ok := t.stagedLots[lotID]; ok {
			return lot, true
		}
	}
	lot, ok := t.store.lots[lotID]
	if !ok {
		return nil, false
	}
	staged := copyLot(lot)
	if t.stagedLots == nil {
		t.stagedLots = make(map[int]*domain.ParkingLot)
	}
	t.stagedLots[lotID] = staged
	return staged, true
}

func (t *memLedgerTx) session(id int) (*domain.ParkingSession, bool) {
	if t.stagedSessions != nil {
		if session, ok := t.stagedSessions[id]; ok {
			return session, true
		}
	}
	session, ok := t.store.sessions[id]
	if !ok {
		return nil, false
	}
	staged := copySession(session)
	if t.stagedSessions == nil {
		t.stagedSessions = make(map[int]*domain.ParkingSession)
	}
	t.stagedSessions[id] = staged
	return staged, true
}

func (t *memLedgerTx) LotForUpdate(ctx context.Context, lotID int) (*domain.ParkingLot, error) {
	lot, ok := t.lot(lotID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyLot(lot), nil
}

func (t *memLedgerTx) ReserveSpace(ctx context.Context, lotID int) (int, error) {
	lot, ok := t.lot(lotID)
	if !ok {
		return 0, repository.ErrNotFound
	}
	if lot.FreeSpaces <= 0 {
		return 0, repository.ErrLotFull
	}
	lot.FreeSpaces--
	lot.UpdatedAt = time.Now().UTC()
	return lot.FreeSpaces, nil
}

func (t *memLedgerTx) ReleaseSpace(ctx context.Context, lotID int) (int, bool, error) {
	lot, ok := t.lot(lotID)
	if !ok {
		return 0, false, repository.ErrNotFound
	}
	clamped := lot.FreeSpaces >= lot.TotalSpaces
	if !clamped {
		lot.FreeSpaces++
	}
	lot.UpdatedAt = time.Now().UTC()
	return lot.FreeSpaces, clamped, nil
}

func (t *memLedgerTx) RecomputeFreeSpaces(ctx context.Context, lotID int, newTotal int) (int, error) {
	lot, ok := t.lot(lotID)
	if !ok {
		return 0, repository.ErrNotFound
	}
	open := 0
	for _, session := range t.allSessions() {
		if session.LotID == lotID && session.Status == domain.SessionOpen {
			open++
		}
	}
	lot.TotalSpaces = newTotal
	lot.FreeSpaces = newTotal - open
	if lot.FreeSpaces < 0 {
		lot.FreeSpaces = 0
	}
	lot.UpdatedAt = time.Now().UTC()
	return lot.FreeSpaces, nil
}

func (t *memLedgerTx) SetUnitPrice(ctx context.Context, lotID int, unitPrice float64) error {
	lot, ok := t.lot(lotID)
	if !ok {
		return repository.ErrNotFound
	}
	lot.UnitPrice = unitPrice
	lot.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *memLedgerTx) allSessions() []*domain.ParkingSession {
	var out []*domain.ParkingSession
	for id, session := range t.store.sessions {
		if t.stagedSessions != nil {
			if staged, ok := t.stagedSessions[id]; ok {
				out = append(out, staged)
				continue
			}
		}
		out = append(out, session)
	}
	if t.stagedSessions != nil {
		for id, staged := range t.stagedSessions {
			if _, ok := t.store.sessions[id]; !ok {
				out = append(out, staged)
			}
		}
	}
	return out
}

func (t *memLedgerTx) FindOpenSession(ctx context.Context, lotID int, plate string) (*domain.ParkingSession, error) {
	for _, session := range t.allSessions() {
		if session.LotID == lotID && session.Plate == plate && session.Status == domain.SessionOpen {
			return copySession(session), nil
		}
	}
	return nil, repository.ErrNoOpenSession
}

func (t *memLedgerTx) CreateSession(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	if _, err := t.FindOpenSession(ctx, session.LotID, session.Plate); err == nil {
		return nil, repository.ErrDuplicateEntry
	}
	now := time.Now().UTC()
	staged := copySession(session)
	staged.ID = t.store.nextSess
	t.store.nextSess++
	staged.CreatedAt = now
	staged.UpdatedAt = now
	if t.stagedSessions == nil {
		t.stagedSessions = make(map[int]*domain.ParkingSession)
	}
	t.stagedSessions[staged.ID] = staged
	return copySession(staged), nil
}

func (t *memLedgerTx) CloseSession(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	staged, ok := t.session(session.ID)
	if !ok || staged.Status != domain.SessionOpen {
		return nil, repository.ErrNoOpenSession
	}
	staged.ExitTime = session.ExitTime
	staged.BilledHours = session.BilledHours
	staged.Fee = session.Fee
	staged.ExitEventID = session.ExitEventID
	staged.Status = domain.SessionClosed
	staged.UpdatedAt = time.Now().UTC()
	return copySession(staged), nil
}

// --- read-side views, shared with handlers in tests ---

func (s *LedgerStore) FindLotByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyLot(lot), nil
}

func (s *LedgerStore) FindAllLots(ctx context.Context) ([]domain.ParkingLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lots []domain.ParkingLot
	for _, lot := range s.lots {
		lots = append(lots, *copyLot(lot))
	}
	sort.Slice(lots, func(i, j int) bool { return strings.Compare(lots[i].Name, lots[j].Name) < 0 })
	return lots, nil
}

func (s *LedgerStore) CreateLot(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	created := s.AddLot(lot.Name, lot.TotalSpaces, lot.UnitPrice)
	return created, nil
}

func (s *LedgerStore) DeleteLot(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lots[id]; !ok {
		return repository.ErrNotFound
	}
	for _, session := range s.sessions {
		if session.LotID == id {
			return repository.ErrDuplicateEntry
		}
	}
	delete(s.lots, id)
	return nil
}

func (s *LedgerStore) FindSessionByID(ctx context.Context, id int) (*domain.ParkingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copySession(session), nil
}

func (s *LedgerStore) FindOpenSessionsByLot(ctx context.Context, lotID int) ([]domain.ParkingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sessions []domain.ParkingSession
	for _, session := range s.sessions {
		if session.LotID == lotID && session.Status == domain.SessionOpen {
			sessions = append(sessions, *copySession(session))
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].EntryTime.After(sessions[j].EntryTime) })
	return sessions, nil
}

func copyLot(lot *domain.ParkingLot) *domain.ParkingLot {
	c := *lot
	return &c
}

func copySession(session *domain.ParkingSession) *domain.ParkingSession {
	c := *session
	return &c
}
