package database

import (
	"context"
	"fmt"

	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

// SchemaSQL returns the embedded DDL. The statements are idempotent
// (CREATE TABLE IF NOT EXISTS), so re-application is safe.
func SchemaSQL() string {
	return schemaSQL
}

// EnsureSchema applies the embedded schema through the pool.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	if _, err := p.inner.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
