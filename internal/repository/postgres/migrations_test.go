package postgres

import (
	"io/fs"
	"strings"
	"testing"
)

func TestSchemaMigrationContainsConstraints(t *testing.T) {
	matches, err := fs.Glob(migrations, "migrations/*_replenishment_schema.sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no schema migration embedded")
	}

	data, err := fs.ReadFile(migrations, matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"UNIQUE (precodice, code)",
		"REFERENCES items (id)",
		"CHECK (min_order_qty >= 1)",
		"CHECK (reserved_qty >= 0)",
		"ON policies (is_active) WHERE is_active",
		"DROP TABLE IF EXISTS archived_proposal_lines",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
