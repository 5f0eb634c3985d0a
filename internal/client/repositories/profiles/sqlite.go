package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/dbx"
)

// SQLiteRepository stores profiles with their trigger sets, app lists and
// schedule encoded as JSON columns.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type row struct {
	apps, domains, start, stop []byte
	schedule                   []byte
}

func encode(p *models.Profile) (row, error) {
	var (
		r   row
		err error
	)
	if r.apps, err = json.Marshal(nonNil(p.Apps)); err != nil {
		return r, err
	}
	if r.domains, err = json.Marshal(nonNil(p.Domains)); err != nil {
		return r, err
	}
	if r.start, err = json.Marshal(p.StartTriggers); err != nil {
		return r, err
	}
	if r.stop, err = json.Marshal(p.StopConditions); err != nil {
		return r, err
	}
	if p.Schedule != nil {
		if r.schedule, err = json.Marshal(p.Schedule); err != nil {
			return r, err
		}
	}
	return r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *SQLiteRepository) Save(ctx context.Context, p *models.Profile) error {
	enc, err := encode(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	var schedule any
	if enc.schedule != nil {
		schedule = string(enc.schedule)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, strategy_id, apps, domains, start_triggers, stop_conditions,
			pinned_token, breaks_enabled, break_duration_ns, timer_duration_ns, schedule,
			schedule_updated_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			strategy_id = excluded.strategy_id,
			apps = excluded.apps,
			domains = excluded.domains,
			start_triggers = excluded.start_triggers,
			stop_conditions = excluded.stop_conditions,
			pinned_token = excluded.pinned_token,
			breaks_enabled = excluded.breaks_enabled,
			break_duration_ns = excluded.break_duration_ns,
			timer_duration_ns = excluded.timer_duration_ns,
			schedule = excluded.schedule,
			schedule_updated_at = excluded.schedule_updated_at,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.StrategyID, string(enc.apps), string(enc.domains), string(enc.start), string(enc.stop),
		p.PinnedToken, p.BreaksEnabled, int64(p.BreakDuration), int64(p.TimerDuration), schedule,
		unixNano(p.ScheduleUpdatedAt), unixNano(p.CreatedAt), unixNano(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, name, strategy_id, apps, domains, start_triggers, stop_conditions,
	pinned_token, breaks_enabled, break_duration_ns, timer_duration_ns, schedule,
	schedule_updated_at, created_at, updated_at FROM profiles`

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (*models.Profile, error) {
	var (
		p                                 models.Profile
		apps, domains, start, stop        string
		schedule                          sql.NullString
		breakNs, timerNs                  int64
		scheduleUpdated, created, updated int64
	)
	if err := s.Scan(&p.ID, &p.Name, &p.StrategyID, &apps, &domains, &start, &stop,
		&p.PinnedToken, &p.BreaksEnabled, &breakNs, &timerNs, &schedule,
		&scheduleUpdated, &created, &updated); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(apps), &p.Apps); err != nil {
		return nil, fmt.Errorf("decode apps: %w", err)
	}
	if err := json.Unmarshal([]byte(domains), &p.Domains); err != nil {
		return nil, fmt.Errorf("decode domains: %w", err)
	}
	if err := json.Unmarshal([]byte(start), &p.StartTriggers); err != nil {
		return nil, fmt.Errorf("decode start triggers: %w", err)
	}
	if err := json.Unmarshal([]byte(stop), &p.StopConditions); err != nil {
		return nil, fmt.Errorf("decode stop conditions: %w", err)
	}
	if schedule.Valid && schedule.String != "" {
		p.Schedule = &models.Schedule{}
		if err := json.Unmarshal([]byte(schedule.String), p.Schedule); err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
	}

	p.BreakDuration = time.Duration(breakNs)
	p.TimerDuration = time.Duration(timerNs)
	p.ScheduleUpdatedAt = fromUnixNano(scheduleUpdated)
	p.CreatedAt = fromUnixNano(created)
	p.UpdatedAt = fromUnixNano(updated)
	return &p, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select profiles: %w", err)
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	ok, err := dbx.RowsAffectedOne(res)
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if !ok {
		return fmt.Errorf("delete profile %s: %w", id, common.ErrorNotFound)
	}
	return nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
