package db

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExecer struct {
	statements []string
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	return pgconn.CommandTag{}, nil
}

func TestMigrate_AppliesEmbeddedFilesInOrder(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("expected at least one embedded migration")
	}

	rec := &recordingExecer{}
	if err := Migrate(context.Background(), rec); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(rec.statements) != len(names) {
		t.Fatalf("expected %d statements, got %d", len(names), len(rec.statements))
	}
	if !strings.Contains(rec.statements[0], "CREATE TABLE IF NOT EXISTS cache_slots") {
		t.Fatalf("first migration should create cache_slots, got %q", rec.statements[0])
	}
}

func TestNewPool_EmptyConnString(t *testing.T) {
	if _, err := NewPool(context.Background(), "", PoolOptions{}); err == nil {
		t.Fatal("expected error for empty connection string")
	}
}
