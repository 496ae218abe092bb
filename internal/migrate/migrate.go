// Package migrate applies embedded SQL migrations for the database-backed slot stores.
package migrate

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/and161185/capture-queue/migrations"
)

func prepare(dialect string) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	return goose.SetDialect(dialect)
}

// Up runs all pending Postgres migrations for dsn.
func Up(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := prepare("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "postgres")
}

// UpSQLite runs all pending SQLite migrations on an open database.
func UpSQLite(ctx context.Context, db *sql.DB) error {
	if err := prepare("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "sqlite")
}
