package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"
)

const sessionColumns = `id, lot_id, plate, entry_time, exit_time, billed_hours, fee, status,
	                 entry_event_id, exit_event_id, created_at, updated_at`

type pgParkingSessionRepository struct {
	db *sql.DB
}

func NewPgParkingSessionRepository(db *sql.DB) repository.ParkingSessionRepository {
	return &pgParkingSessionRepository{db: db}
}

func scanSession(row interface{ Scan(...any) error }, session *domain.ParkingSession) error {
	err := row.Scan(
		&session.ID, &session.LotID, &session.Plate, &session.EntryTime, &session.ExitTime,
		&session.BilledHours, &session.Fee, &session.Status,
		&session.EntryEventID, &session.ExitEventID, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return err
	}
	session.EntryTime = session.EntryTime.In(time.UTC)
	if session.ExitTime.Valid {
		session.ExitTime.Time = session.ExitTime.Time.In(time.UTC)
	}
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgParkingSessionRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSession, error) {
	session := &domain.ParkingSession{}
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`
	if err := scanSession(r.db.QueryRowContext(ctx, query, id), session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSessionRepository.FindByID: %w", err)
	}
	return session, nil
}

func (r *pgParkingSessionRepository) FindOpenByLot(ctx context.Context, lotID int) ([]domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + `
	           FROM parking_sessions
	           WHERE lot_id = $1 AND status = $2
	           ORDER BY entry_time DESC`
	rows, err := r.db.QueryContext(ctx, query, lotID, domain.SessionOpen)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.FindOpenByLot: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ParkingSession
	for rows.Next() {
		var session domain.ParkingSession
		if err := scanSession(rows, &session); err != nil {
			return nil, fmt.Errorf("ParkingSessionRepository.FindOpenByLot (scanning row): %w", err)
		}
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.FindOpenByLot (rows error): %w", err)
	}
	return sessions, nil
}

func (r *pgParkingSessionRepository) CountByLot(ctx context.Context, lotID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM parking_sessions WHERE lot_id = $1`
	if err := r.db.QueryRowContext(ctx, query, lotID).Scan(&count); err != nil {
		return 0, fmt.Errorf("ParkingSessionRepository.CountByLot: %w", err)
	}
	return count, nil
}

func (r *pgParkingSessionRepository) Find(ctx context.Context, filter domain.ParkingSessionFilterDTO) ([]domain.ParkingSession, error) {
	baseQuery := `SELECT ` + sessionColumns + ` FROM parking_sessions`

	var conditions []string
	var args []interface{}
	argID := 1

	if filter.LotID != nil {
		conditions = append(conditions, fmt.Sprintf("lot_id = $%d", argID))
		args = append(args, *filter.LotID)
		argID++
	}
	if filter.Plate != nil {
		conditions = append(conditions, fmt.Sprintf("plate = $%d", argID))
		args = append(args, *filter.Plate)
		argID++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}

	query := baseQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY entry_time DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Find: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ParkingSession
	for rows.Next() {
		var session domain.ParkingSession
		if err := scanSession(rows, &session); err != nil {
			return nil, fmt.Errorf("ParkingSessionRepository.Find (scanning row): %w", err)
		}
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Find (rows error): %w", err)
	}
	return sessions, nil
}
