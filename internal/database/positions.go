package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-commander/internal/models"
)

// ErrPositionNotFound is returned when no position matches the given id.
var ErrPositionNotFound = errors.New("position not found")

// CreatePosition inserts a new position for a user.
func (db *DB) CreatePosition(p *models.Position) error {
	query := `
		INSERT INTO positions (user_id, symbol, shares, avg_price, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRow(query,
		p.UserID, p.Symbol, p.Shares, p.AvgPrice, p.Name, now, now,
	).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetPositionByID retrieves a position by ID.
func (db *DB) GetPositionByID(id int) (*models.Position, error) {
	query := `
		SELECT id, user_id, symbol, shares, avg_price, name, created_at, updated_at
		FROM positions
		WHERE id = $1
	`
	var p models.Position
	err := db.conn.QueryRow(query, id).Scan(
		&p.ID, &p.UserID, &p.Symbol, &p.Shares, &p.AvgPrice, &p.Name, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrPositionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &p, nil
}

// ListPositions retrieves all positions for a user, ordered by symbol.
func (db *DB) ListPositions(userID string) ([]*models.Position, error) {
	query := `
		SELECT id, user_id, symbol, shares, avg_price, name, created_at, updated_at
		FROM positions
		WHERE user_id = $1
		ORDER BY symbol ASC
	`
	rows, err := db.conn.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		var p models.Position
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Symbol, &p.Shares, &p.AvgPrice, &p.Name, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, &p)
	}

	return positions, nil
}

// UpdatePosition updates the mutable fields of a position. Symbol and ID are
// immutable after creation.
func (db *DB) UpdatePosition(id int, shares, avgPrice decimal.Decimal, name string) error {
	query := `
		UPDATE positions
		SET shares = $2, avg_price = $3, name = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := db.conn.Exec(query, id, shares, avgPrice, name, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrPositionNotFound, id)
	}
	return nil
}

// UpdatePositionName sets the display name for a position, used when a
// legacy row still carries its symbol as name.
func (db *DB) UpdatePositionName(id int, name string) error {
	query := `UPDATE positions SET name = $2, updated_at = $3 WHERE id = $1`
	result, err := db.conn.Exec(query, id, name, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update position name: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrPositionNotFound, id)
	}
	return nil
}

// DeletePosition removes a position by ID.
func (db *DB) DeletePosition(id int) error {
	query := `DELETE FROM positions WHERE id = $1`
	result, err := db.conn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrPositionNotFound, id)
	}
	return nil
}

// ReplaceAllPositions atomically replaces a user's position list with the
// supplied snapshot. Used by the Kafka positions consumer when a broker
// sync event arrives.
func (db *DB) ReplaceAllPositions(userID string, positions []*models.Position) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM positions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO positions (user_id, symbol, shares, avg_price, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range positions {
		_, err := stmt.Exec(userID, p.Symbol, p.Shares, p.AvgPrice, p.Name, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert position for %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
