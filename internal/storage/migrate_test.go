package storage

import (
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/terra-clan/academy-engine/migrations"
)

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.sql":     {Data: []byte("SELECT 2")},
		"001_a.sql":     {Data: []byte("SELECT 1")},
		"README.md":     {Data: []byte("docs")},
		"010_c.sql":     {Data: []byte("SELECT 3")},
		"old/000_x.sql": {Data: []byte("SELECT 0")},
	}

	got, err := ListMigrations(fsys)
	if err != nil {
		t.Fatalf("ListMigrations failed: %v", err)
	}
	if diff := cmp.Diff([]string{"001_a.sql", "002_b.sql", "010_c.sql"}, got); diff != "" {
		t.Errorf("migrations mismatch (-want +got):\n%s", diff)
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []string{"001_a.sql", "002_b.sql", "003_c.sql"}
	got := PendingMigrations(all, map[string]bool{"002_b.sql": true})
	if diff := cmp.Diff([]string{"001_a.sql", "003_c.sql"}, got); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
	if got := PendingMigrations(all, map[string]bool{"001_a.sql": true, "002_b.sql": true, "003_c.sql": true}); len(got) != 0 {
		t.Errorf("expected nothing pending, got %v", got)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	if err != nil {
		t.Fatalf("ListMigrations failed: %v", err)
	}
	if len(names) < 2 || names[0] != "001_initial.sql" {
		t.Errorf("unexpected embedded migrations: %v", names)
	}
}
