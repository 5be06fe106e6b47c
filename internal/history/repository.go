package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists runs.
type Repository interface {
	Create(ctx context.Context, r *Run) error
	Update(ctx context.Context, r *Run) error
	GetByID(ctx context.Context, id string) (*Run, error)
	ListByRoute(ctx context.Context, routeID string, limit int) ([]Run, error)
	AbortRunning(ctx context.Context, at time.Time) (int64, error)
}

const runColumns = `id, route_id, route_name, started_at, ended_at, status, moves_completed, user_pauses, detection_pauses`

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z"

// SQLiteRepository implements Repository on the runs table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed run repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts r.
func (s *SQLiteRepository) Create(ctx context.Context, r *Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.RouteID,
		r.RouteName,
		formatTime(r.StartedAt),
		formatOptionalTime(r.EndedAt),
		string(r.Status),
		r.MovesCompleted,
		r.UserPauses,
		r.DetectionPauses,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Update writes the counters, status and end time of r.
func (s *SQLiteRepository) Update(ctx context.Context, r *Run) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, status = ?, moves_completed = ?, user_pauses = ?, detection_pauses = ?
		 WHERE id = ?`,
		formatOptionalTime(r.EndedAt),
		string(r.Status),
		r.MovesCompleted,
		r.UserPauses,
		r.DetectionPauses,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns the run with id, or ErrNotFound.
func (s *SQLiteRepository) GetByID(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying run by id: %w", err)
	}
	return r, nil
}

// ListByRoute returns the most recent runs of a route, newest first.
func (s *SQLiteRepository) ListByRoute(ctx context.Context, routeID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE route_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`,
		routeID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning run: %w", scanErr)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// AbortRunning closes runs left open by a previous process.
func (s *SQLiteRepository) AbortRunning(ctx context.Context, at time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ? WHERE status = ?`,
		string(StatusAborted), formatTime(at), string(StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("aborting open runs: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*Run, error) {
	var r Run
	var startedAt, status string
	var endedAt sql.NullString

	if err := scanner.Scan(&r.ID, &r.RouteID, &r.RouteName, &startedAt, &endedAt, &status,
		&r.MovesCompleted, &r.UserPauses, &r.DetectionPauses); err != nil {
		return nil, err
	}

	r.Status = Status(status)
	if t, err := time.Parse(timeLayout, startedAt); err == nil {
		r.StartedAt = t
	}
	if endedAt.Valid {
		if t, err := time.Parse(timeLayout, endedAt.String); err == nil {
			r.EndedAt = &t
		}
	}
	return &r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
