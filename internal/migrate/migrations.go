package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed sql/client/*.sql sql/sandbox/*.sql
var migrationsFS embed.FS

// Schema names one of the embedded migration sets.
type Schema string

const (
	Client  Schema = "client"
	Sandbox Schema = "sandbox"
)

// Migrate applies the embedded migrations of schema in order.
func Migrate(ctx context.Context, db *sql.DB, schema Schema) error {
	sub, err := fs.Sub(migrationsFS, "sql/"+string(schema))
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("%s migrations: %w", schema, err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("%s migrations: %w", schema, err)
	}
	return nil
}
