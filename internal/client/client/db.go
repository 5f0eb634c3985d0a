package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophfocus/internal/client/migrations"
	"github.com/dmitrijs2005/gophfocus/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophfocus/internal/client/repositories/profiles"
	"github.com/dmitrijs2005/gophfocus/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/gophfocus/internal/filex"
	_ "modernc.org/sqlite"
)

type Repositories struct {
	DB       *sql.DB
	Metadata *metadata.SQLiteRepository
	Profiles *profiles.SQLiteRepository
	Sessions *sessions.SQLiteRepository
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}

// InitDatabase opens (creating if needed) the device database at dsn and
// brings its schema up to date.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	if _, err := filex.EnsureParentDir(dsn); err != nil {
		return nil, fmt.Errorf("prepare database dir: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := migrations.Up(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		DB:       db,
		Metadata: metadata.NewSQLiteRepository(db),
		Profiles: profiles.NewSQLiteRepository(db),
		Sessions: sessions.NewSQLiteRepository(db),
	}, nil
}
