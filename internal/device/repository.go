package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines appliance persistence.
type Repository interface {
	// GetByName retrieves an appliance by name.
	// Returns ErrDeviceNotFound if it does not exist.
	GetByName(ctx context.Context, name string) (*Appliance, error)

	// GetByID retrieves an appliance by handle.
	// Returns ErrDeviceNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Appliance, error)

	// List retrieves all appliances ordered by name.
	List(ctx context.Context) ([]Appliance, error)

	// Create inserts an appliance.
	// Returns ErrDeviceExists if the name or handle is taken.
	Create(ctx context.Context, a *Appliance) error

	// UpdateLastSeen records when an appliance was last seen.
	// Returns ErrDeviceNotFound if it does not exist.
	UpdateLastSeen(ctx context.Context, id string, seen time.Time) error

	// Delete removes an appliance by handle.
	// Returns ErrDeviceNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open SQLite connection
// whose schema includes the appliances table.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectAppliance = `SELECT id, name, first_seen, last_seen FROM appliances`

// GetByName retrieves an appliance by name.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Appliance, error) {
	row := r.db.QueryRowContext(ctx, selectAppliance+` WHERE name = ?`, name)
	a, err := scanAppliance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying appliance by name: %w", err)
	}
	return a, nil
}

// GetByID retrieves an appliance by handle.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Appliance, error) {
	row := r.db.QueryRowContext(ctx, selectAppliance+` WHERE id = ?`, id)
	a, err := scanAppliance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying appliance by id: %w", err)
	}
	return a, nil
}

// List retrieves all appliances ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Appliance, error) {
	rows, err := r.db.QueryContext(ctx, selectAppliance+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying appliances: %w", err)
	}
	defer rows.Close()

	var appliances []Appliance
	for rows.Next() {
		a, err := scanAppliance(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning appliance: %w", err)
		}
		appliances = append(appliances, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating appliances: %w", err)
	}
	return appliances, nil
}

// Create inserts an appliance. Zero timestamps are set to now.
func (r *SQLiteRepository) Create(ctx context.Context, a *Appliance) error {
	now := time.Now().UTC()
	if a.FirstSeen.IsZero() {
		a.FirstSeen = now
	}
	if a.LastSeen.IsZero() {
		a.LastSeen = a.FirstSeen
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO appliances (id, name, first_seen, last_seen) VALUES (?, ?, ?, ?)`,
		a.ID,
		a.Name,
		a.FirstSeen.UTC().Format(time.RFC3339Nano),
		a.LastSeen.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", ErrDeviceExists, a.Name)
		}
		return fmt.Errorf("inserting appliance: %w", err)
	}
	return nil
}

// UpdateLastSeen records when an appliance was last seen.
func (r *SQLiteRepository) UpdateLastSeen(ctx context.Context, id string, seen time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE appliances SET last_seen = ? WHERE id = ?`,
		seen.UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating last seen: %w", err)
	}
	return requireRow(result)
}

// Delete removes an appliance by handle.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appliances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting appliance: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppliance(scanner rowScanner) (*Appliance, error) {
	var a Appliance
	var firstSeen, lastSeen string
	if err := scanner.Scan(&a.ID, &a.Name, &firstSeen, &lastSeen); err != nil {
		return nil, err
	}

	var err error
	if a.FirstSeen, err = time.Parse(time.RFC3339Nano, firstSeen); err != nil {
		return nil, fmt.Errorf("parsing first_seen: %w", err)
	}
	if a.LastSeen, err = time.Parse(time.RFC3339Nano, lastSeen); err != nil {
		return nil, fmt.Errorf("parsing last_seen: %w", err)
	}
	return &a, nil
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
