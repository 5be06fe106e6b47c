package route

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository persists routes.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Route, error)
	List(ctx context.Context) ([]Route, error)
	Create(ctx context.Context, r *Route) error
	Update(ctx context.Context, r *Route) error
	Delete(ctx context.Context, id string) error
}

const routeColumns = `id, name, moves, created_at, updated_at`

// SQLiteRepository implements Repository on the routes table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID returns the route with id, or ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Route, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = ?`, id)
	rt, err := scanRoute(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying route by id: %w", err)
	}
	return rt, nil
}

// List returns all routes ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Route, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+routeColumns+` FROM routes ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying routes: %w", err)
	}
	defer rows.Close()

	var routes []Route
	for rows.Next() {
		rt, scanErr := scanRoute(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning route: %w", scanErr)
		}
		routes = append(routes, *rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating routes: %w", err)
	}
	return routes, nil
}

// Create inserts rt. CreatedAt is kept when already set (imports).
func (r *SQLiteRepository) Create(ctx context.Context, rt *Route) error {
	movesJSON, err := json.Marshal(rt.Moves)
	if err != nil {
		return fmt.Errorf("marshalling moves: %w", err)
	}

	now := time.Now().UTC()
	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = now
	}
	rt.UpdatedAt = now

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO routes (`+routeColumns+`) VALUES (?, ?, ?, ?, ?)`,
		rt.ID,
		rt.Name,
		string(movesJSON),
		rt.CreatedAt.UTC().Format(time.RFC3339),
		rt.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting route: %w", err)
	}
	return nil
}

// Update replaces the name and moves of an existing route.
func (r *SQLiteRepository) Update(ctx context.Context, rt *Route) error {
	movesJSON, err := json.Marshal(rt.Moves)
	if err != nil {
		return fmt.Errorf("marshalling moves: %w", err)
	}

	rt.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE routes SET name = ?, moves = ?, updated_at = ? WHERE id = ?`,
		rt.Name,
		string(movesJSON),
		rt.UpdatedAt.Format(time.RFC3339),
		rt.ID,
	)
	if err != nil {
		return fmt.Errorf("updating route: %w", err)
	}
	return expectOneRow(result)
}

// Delete removes a route by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM routes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting route: %w", err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(scanner rowScanner) (*Route, error) {
	var rt Route
	var movesJSON, createdAt, updatedAt string

	if err := scanner.Scan(&rt.ID, &rt.Name, &movesJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rt.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		rt.UpdatedAt = t
	}

	if movesJSON != "" {
		if err := json.Unmarshal([]byte(movesJSON), &rt.Moves); err != nil {
			return nil, fmt.Errorf("unmarshalling moves: %w", err)
		}
	}
	if rt.Moves == nil {
		rt.Moves = []Move{}
	}
	return &rt, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
