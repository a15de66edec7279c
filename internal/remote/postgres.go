package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akarpov87/storysync/internal/common"
	"github.com/akarpov87/storysync/internal/dbx"
	"github.com/akarpov87/storysync/internal/remote/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresStore implements Store over a documents table.
type PostgresStore struct {
	db dbx.DBTX
}

// NewPostgresStore returns a store bound to the given DBTX.
func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects to dsn, runs the embedded migrations and returns a
// ready store together with the owned *sql.DB handle.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, *sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migration error: %w", err)
	}

	return NewPostgresStore(db), db, nil
}

// GetDocument returns the document by id, or common.ErrNotFound.
func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	query := `SELECT id, payload, updated_at FROM documents WHERE id = $1`

	var doc Document
	err := s.db.QueryRowContext(ctx, query, id).Scan(&doc.ID, &doc.Payload, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select document: %w", err)
	}
	return &doc, nil
}

// SetDocument upserts the document, replacing the full payload.
func (s *PostgresStore) SetDocument(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (id, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at;
	`
	if _, err := s.db.ExecContext(ctx, query, doc.ID, doc.Payload, doc.UpdatedAt); err != nil {
		return fmt.Errorf("%w: %v", common.ErrRemoteWrite, err)
	}
	return nil
}
