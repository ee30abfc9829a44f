package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fish_data.txt")
	require.NoError(t, os.WriteFile(path, []byte("length,weight\n1,2\n"), 0o600))

	table, err := LoadSampleTable(path)

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, ".txt", formatErr.Ext)
	require.NotNil(t, table)
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Columns())
}

func TestLoadMissingFileYieldsEmptyTable(t *testing.T) {
	table, err := LoadSampleTable(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.NotNil(t, table)
	assert.Equal(t, 0, table.Len())
}

func TestLoadShippedSamples(t *testing.T) {
	tests := []struct {
		path    string
		columns []string
		first   map[string]float64
	}{
		{
			path:    "../data/fish_data.csv",
			columns: []string{"species", "length", "weight", "w_l_ratio"},
			first:   map[string]float64{"length": 10.66, "weight": 3.45, "w_l_ratio": 0.32},
		},
		{
			path:    "../data/fruit.xlsx",
			columns: []string{"name", "diameter", "weight", "red", "green", "blue"},
			first:   map[string]float64{"diameter": 2.96, "weight": 86.76, "red": 172, "green": 85, "blue": 2},
		},
		{
			path: "../data/Pumpkin_Seeds_Dataset.xlsx",
			columns: []string{"Area", "Perimeter", "Major_Axis_Length", "Minor_Axis_Length",
				"Convex_Area", "Equiv_Diameter", "Eccentricity", "Solidity", "Extent",
				"Roundness", "Aspect_Ration", "Compactness", "Class"},
			first: map[string]float64{"Area": 56276, "Aspect_Ration": 1.4809},
		},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			table, err := LoadSampleTable(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.columns, table.Columns())
			assert.Greater(t, table.Len(), 1)
			for column, want := range tt.first {
				got, err := table.Float(0, column)
				require.NoError(t, err, column)
				assert.InDelta(t, want, got, 1e-9, column)
			}
		})
	}
}

func TestShippedPumpkinLabelsAreNFC(t *testing.T) {
	table, err := LoadSampleTable("../data/Pumpkin_Seeds_Dataset.xlsx")
	require.NoError(t, err)
	class, ok := table.Value(0, "Class")
	require.True(t, ok)
	assert.Equal(t, "Çerçevelik", class)
}

func TestReadCSVStripsBOM(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("\xEF\xBB\xBFlength, weight\n1.5,2\n"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"length", "weight"}, table.Columns())

	v, err := table.Float(0, "weight")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestReadCSVDecodesCharset(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("name,value\n\xDCrg\xFCp,1\n"), "windows-1254")
	require.NoError(t, err)
	v, ok := table.Value(0, "name")
	require.True(t, ok)
	assert.Equal(t, "Ürgüp", v)

	_, err = ReadCSV(strings.NewReader("a\n1\n"), "no-such-charset")
	assert.Error(t, err)
}

func TestLoaderUsesEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.CSV")
	require.NoError(t, os.WriteFile(path, []byte("\xC7e\xFEit\n1\n"), 0o600))

	table, err := Loader{Encoding: "windows-1254"}.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Çeşit"}, table.Columns())
}

func TestLoadXLSXFirstSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"diameter", "weight", "name"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{9.5, 120, "orange"}))
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Other", "A1", &[]interface{}{"ignored"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := LoadSampleTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"diameter", "weight", "name"}, table.Columns())
	require.Equal(t, 1, table.Len())

	v, err := table.Float(0, "weight")
	require.NoError(t, err)
	assert.Equal(t, 120.0, v)
}

func TestLoadCorruptXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o600))

	table, err := LoadSampleTable(path)
	require.Error(t, err)
	var formatErr *FormatError
	assert.NotErrorAs(t, err, &formatErr)
	assert.Equal(t, 0, table.Len())
}
