package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/proposal"
)

func openWorkbook(t *testing.T, blob []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "ACME", SheetName(" ACME "))
	assert.Equal(t, "A_B_C", SheetName("A/B:C"))
	assert.Equal(t, proposal.UnknownSupplier, SheetName(""))

	long := strings.Repeat("x", 40)
	assert.Len(t, SheetName(long), MaxSheetNameLength)
	assert.Equal(t, MaxSheetNameLength, len([]rune(SheetName(strings.Repeat("è", 40)))))
}

func TestSheetNameNeverEndsWithApostrophe(t *testing.T) {
	tests := []struct {
		supplier string
		want     string
	}{
		{supplier: "'Quoted'", want: "Quoted"},
		{supplier: "Fratelli Rossi Ricambi Auto Sr's Depot", want: "Fratelli Rossi Ricambi Auto Sr"},
		{supplier: strings.Repeat("'", 40), want: proposal.UnknownSupplier},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SheetName(tt.supplier), tt.supplier)
	}

	blob, err := Build([]Row{{Supplier: "Fratelli Rossi Ricambi Auto Sr's Depot", Code: "A", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fratelli Rossi Ricambi Auto Sr"}, openWorkbook(t, blob).GetSheetList())
}

func TestBuildOneSheetPerSupplier(t *testing.T) {
	rows := []Row{
		{Supplier: "Zeta", Code: "A", Description: "first", Quantity: 5},
		{Supplier: "Alpha", Precodice: "P", Code: "B", Quantity: 0},
		{Supplier: "Zeta", Code: "C", Quantity: 2},
	}

	blob, err := Build(rows)
	require.NoError(t, err)

	f := openWorkbook(t, blob)
	assert.Equal(t, []string{"Zeta", "Alpha"}, f.GetSheetList())

	zeta, err := f.GetRows("Zeta")
	require.NoError(t, err)
	require.Len(t, zeta, 3)
	assert.Equal(t, []string{"Supplier", "Precodice", "Code", "Description", "Quantity"}, zeta[0])
	assert.Equal(t, []string{"Zeta", "", "A", "first", "5"}, zeta[1])
	assert.Equal(t, "C", zeta[2][2])

	alpha, err := f.GetRows("Alpha")
	require.NoError(t, err)
	require.Len(t, alpha, 2)
	assert.Equal(t, "0", alpha[1][4])
}

func TestBuildCollidingTruncatedNamesShareSheet(t *testing.T) {
	prefix := strings.Repeat("S", MaxSheetNameLength)
	rows := []Row{
		{Supplier: prefix + "-north", Code: "A", Quantity: 1},
		{Supplier: prefix + "-south", Code: "B", Quantity: 1},
	}

	blob, err := Build(rows)
	require.NoError(t, err)

	f := openWorkbook(t, blob)
	require.Equal(t, []string{prefix}, f.GetSheetList())

	got, err := f.GetRows(prefix)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, prefix+"-north", got[1][0])
	assert.Equal(t, prefix+"-south", got[2][0])
}

func TestBuildEmptyWritesHeaderOnly(t *testing.T) {
	blob, err := Build(nil)
	require.NoError(t, err)

	f := openWorkbook(t, blob)
	assert.Equal(t, []string{"Proposal"}, f.GetSheetList())
}

func TestRowsFromLinesAndArchive(t *testing.T) {
	desc := "bolt"
	lines := []proposal.Line{{
		ItemID:      "i1",
		Item:        domain.FullItemData{Item: domain.Item{ID: "i1", Code: "B-1", Precodice: "P", Description: &desc}},
		ModifiedQty: 8,
	}}

	rows := RowsFromLines(lines)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{Supplier: proposal.UnknownSupplier, Precodice: "P", Code: "B-1", Description: "bolt", Quantity: 8}, rows[0])

	supplier := "ACME"
	archived := RowsFromArchive(domain.ArchivedProposal{Lines: []domain.ArchivedProposalLine{{Code: "B-1", Supplier: &supplier, OrderedQty: 3}}})
	require.Len(t, archived, 1)
	assert.Equal(t, "ACME", archived[0].Supplier)
	assert.Equal(t, 3, archived[0].Quantity)
}

func TestEverySheetHasStyledHeaderAndWidths(t *testing.T) {
	blob, err := Build([]Row{
		{Supplier: "ACME", Code: "A", Quantity: 1},
		{Supplier: "Bolts & Co", Code: "B", Quantity: 2},
	})
	require.NoError(t, err)
	f := openWorkbook(t, blob)

	require.Equal(t, []string{"ACME", "Bolts & Co"}, f.GetSheetList())
	for _, sheet := range f.GetSheetList() {
		first, err := f.GetCellStyle(sheet, "A1")
		require.NoError(t, err)
		assert.NotZero(t, first, sheet)
		last, err := f.GetCellStyle(sheet, "E1")
		require.NoError(t, err)
		assert.Equal(t, first, last, sheet)

		width, err := f.GetColWidth(sheet, "B")
		require.NoError(t, err)
		assert.Equal(t, 18.0, width, sheet)
		width, err = f.GetColWidth(sheet, "D")
		require.NoError(t, err)
		assert.Equal(t, 48.0, width, sheet)
	}
}
