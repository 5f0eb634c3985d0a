package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/dbx"
	"github.com/dmitrijs2005/gophfocus/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, familyID, profileID string) (*models.SessionRecord, error) {
	query := `
		SELECT is_active, sequence_number, device_id, start_time, end_time, updated_at
		FROM session_records
		WHERE family_id = $1 AND profile_id = $2
	`
	rec := &models.SessionRecord{FamilyID: familyID, ProfileID: profileID}
	var start, end sql.NullTime
	err := r.db.QueryRowContext(ctx, query, familyID, profileID).
		Scan(&rec.IsActive, &rec.SequenceNumber, &rec.DeviceID, &start, &end, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if start.Valid {
		rec.StartTime = &start.Time
	}
	if end.Valid {
		rec.EndTime = &end.Time
	}
	return rec, nil
}

func (r *PostgresRepository) Put(ctx context.Context, rec *models.SessionRecord) error {
	query := `
		INSERT INTO session_records (family_id, profile_id, is_active, sequence_number, device_id, start_time, end_time, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (family_id, profile_id)
		DO UPDATE SET
			is_active = EXCLUDED.is_active,
			sequence_number = EXCLUDED.sequence_number,
			device_id = EXCLUDED.device_id,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			updated_at = EXCLUDED.updated_at;
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.FamilyID, rec.ProfileID, rec.IsActive, rec.SequenceNumber, rec.DeviceID,
		nullTime(rec.StartTime), nullTime(rec.EndTime))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.RowsAffectedOne(res)
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if !ok {
		return fmt.Errorf("upsert session record %s: no row written", rec.ProfileID)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
