package families

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/dbx"
	"github.com/dmitrijs2005/gophfocus/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, family *models.Family) (*models.Family, error) {
	query :=
		`INSERT INTO families (name, salt, verifier)
         VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		family.Name, family.Salt, family.Verifier).Scan(&family.ID, &family.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return family, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.Family, error) {
	query :=
		`SELECT id, name, salt, verifier, created_at FROM families
		 WHERE name = $1
		 `

	f := &models.Family{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&f.ID, &f.Name, &f.Salt, &f.Verifier, &f.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return f, nil
}
