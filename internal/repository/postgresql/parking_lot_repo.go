package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"

	"github.com/lib/pq"
)

type pgParkingLotRepository struct {
	db *sql.DB
}

func NewPgParkingLotRepository(db *sql.DB) repository.ParkingLotRepository {
	return &pgParkingLotRepository{db: db}
}

func (r *pgParkingLotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	// A new lot starts empty: free_spaces == total_spaces.
	query := `INSERT INTO parking_lots (name, address, total_spaces, free_spaces, unit_price, gate_thing_name)
	           VALUES ($1, $2, $3, $3, $4, $5)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		lot.Name, lot.Address, lot.TotalSpaces, lot.UnitPrice, lot.GateThingName,
	).Scan(&lot.ID, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				return nil, fmt.Errorf("%w: parking lot named '%s'", repository.ErrDuplicateEntry, lot.Name)
			}
		}
		return nil, fmt.Errorf("ParkingLotRepository.Create: %w", err)
	}
	lot.FreeSpaces = lot.TotalSpaces
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{}
	query := `SELECT id, name, address, total_spaces, free_spaces, unit_price, gate_thing_name, created_at, updated_at
	           FROM parking_lots WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lot.ID, &lot.Name, &lot.Address, &lot.TotalSpaces, &lot.FreeSpaces,
		&lot.UnitPrice, &lot.GateThingName, &lot.CreatedAt, &lot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.FindByID: %w", err)
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) FindAll(ctx context.Context) ([]domain.ParkingLot, error) {
	query := `SELECT id, name, address, total_spaces, free_spaces, unit_price, gate_thing_name, created_at, updated_at
	           FROM parking_lots ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var lots []domain.ParkingLot
	for rows.Next() {
		var lot domain.ParkingLot
		if err := rows.Scan(
			&lot.ID, &lot.Name, &lot.Address, &lot.TotalSpaces, &lot.FreeSpaces,
			&lot.UnitPrice, &lot.GateThingName, &lot.CreatedAt, &lot.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.FindAll (scanning row): %w", err)
		}
		lot.CreatedAt = lot.CreatedAt.In(time.UTC)
		lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
		lots = append(lots, lot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll (rows error): %w", err)
	}
	return lots, nil
}

func (r *pgParkingLotRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM parking_lots WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "foreign_key_violation" {
				return fmt.Errorf("%w: lot %d still has recorded sessions", repository.ErrDuplicateEntry, id)
			}
		}
		return fmt.Errorf("ParkingLotRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
