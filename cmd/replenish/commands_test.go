package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"code": "A-1", "precodice": "P", "qty_sold_365": 12, "value_sold_365": 40.5, "last_sale_date": "2025-05-01"},
		{"code": "B-2", "qty_sold_365": -3}
	]`), 0o600))

	rows, err := readImportFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A-1", rows[0].Code)
	assert.Equal(t, "P", rows[0].Precodice)
	assert.Equal(t, 40.5, rows[0].ValueSold365)
	assert.Equal(t, "2025-05-01", rows[0].LastSaleDate)
	assert.Equal(t, -3.0, rows[1].QtySold365)
}

func TestReadImportFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"code": "A"}`), 0o600))

	_, err := readImportFile(path)
	assert.Error(t, err)

	_, err = readImportFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestAppCommands(t *testing.T) {
	app := newApp()
	names := map[string]bool{}
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	assert.True(t, names["migrate"])
	assert.True(t, names["import"])
	assert.True(t, names["policy"])
	assert.True(t, names["archive"])
}
