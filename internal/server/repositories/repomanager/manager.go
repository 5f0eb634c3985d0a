package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophfocus/internal/dbx"
	"github.com/dmitrijs2005/gophfocus/internal/server/repositories/families"
	"github.com/dmitrijs2005/gophfocus/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophfocus/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Families(db dbx.DBTX) families.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
