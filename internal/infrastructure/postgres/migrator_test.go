package postgres

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
)

func TestMigratorMissingSource(t *testing.T) {
	m := NewMigrator("postgres://localhost:1/none?sslmode=disable", t.TempDir()+"/missing", zerolog.New(io.Discard))

	if err := m.Up(); err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}
	if err := m.Down(); err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}
}
