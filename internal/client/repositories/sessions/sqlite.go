package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/dbx"
)

// SQLiteRepository implements Repository over a DBTX. Times are stored as
// unix nanoseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `SELECT id, profile_id, tag, start_time, end_time, break_start, break_end,
	force_started, duration_ns, sequence_number FROM sessions`

// Create inserts s. A second active session for the same profile violates
// the partial unique index and is reported as common.ErrAlreadyActive.
func (r *SQLiteRepository) Create(ctx context.Context, s *models.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, profile_id, tag, start_time, end_time, break_start, break_end,
			force_started, duration_ns, sequence_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProfileID, s.Tag, s.StartTime.UnixNano(), nullTime(s.EndTime),
		nullTime(s.BreakStart), nullTime(s.BreakEnd), s.ForceStarted, int64(s.Duration), s.SequenceNumber)
	if err != nil {
		if s.EndTime == nil && r.hasActive(ctx, s.ProfileID) {
			return fmt.Errorf("failed to create session: %w", common.ErrAlreadyActive)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) hasActive(ctx context.Context, profileID string) bool {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE profile_id = ? AND end_time IS NULL`, profileID).Scan(&n)
	return err == nil && n > 0
}

// Update rewrites the mutable fields of an existing session.
func (r *SQLiteRepository) Update(ctx context.Context, s *models.Session) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET tag = ?, end_time = ?, break_start = ?, break_end = ?,
			force_started = ?, duration_ns = ?, sequence_number = ?
		WHERE id = ?`,
		s.Tag, nullTime(s.EndTime), nullTime(s.BreakStart), nullTime(s.BreakEnd),
		s.ForceStarted, int64(s.Duration), s.SequenceNumber, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	ok, err := dbx.RowsAffectedOne(res)
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if !ok {
		return fmt.Errorf("update session %s: %w", s.ID, common.ErrorNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = ?`, id)
}

func (r *SQLiteRepository) GetActive(ctx context.Context, profileID string) (*models.Session, error) {
	return r.getOne(ctx, selectColumns+` WHERE profile_id = ? AND end_time IS NULL`, profileID)
}

func (r *SQLiteRepository) ListActive(ctx context.Context) ([]models.Session, error) {
	return r.list(ctx, selectColumns+` WHERE end_time IS NULL ORDER BY start_time`)
}

// ListRecent returns up to limit sessions of a profile, newest first.
func (r *SQLiteRepository) ListRecent(ctx context.Context, profileID string, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.list(ctx, selectColumns+` WHERE profile_id = ? ORDER BY start_time DESC LIMIT ?`, profileID, limit)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	var (
		s                         models.Session
		start, duration           int64
		end, breakStart, breakEnd sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.ProfileID, &s.Tag, &start, &end, &breakStart, &breakEnd,
		&s.ForceStarted, &duration, &s.SequenceNumber); err != nil {
		return nil, err
	}
	s.StartTime = time.Unix(0, start).UTC()
	s.EndTime = timePtr(end)
	s.BreakStart = timePtr(breakStart)
	s.BreakEnd = timePtr(breakEnd)
	s.Duration = time.Duration(duration)
	return &s, nil
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, args ...any) (*models.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
