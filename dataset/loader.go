package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FormatError reports a sample file whose extension has no reader.
type FormatError struct {
	Path string
	Ext  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported sample data format %q: %s", e.Ext, e.Path)
}

// CellError reports a lookup outside the table.
type CellError struct {
	Row    int
	Column string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("no cell at row %d column %q", e.Row, e.Column)
}

// Loader reads sample tables. Encoding names the charset of CSV files
// (any WHATWG label, e.g. "windows-1254"); empty means UTF-8.
type Loader struct {
	Encoding string
}

// LoadSampleTable reads path with a UTF-8 Loader.
func LoadSampleTable(path string) (*Table, error) {
	return Loader{}.Load(path)
}

// Load dispatches on the file extension: .csv or .xlsx. On any error the
// returned table is the empty table, never nil.
func (l Loader) Load(path string) (*Table, error) {
	var (
		table *Table
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		table, err = l.loadCSV(path)
	case ".xlsx":
		table, err = loadXLSX(path)
	default:
		return Empty(), &FormatError{Path: path, Ext: ext}
	}
	if err != nil {
		return Empty(), fmt.Errorf("read sample data %s: %w", path, err)
	}
	return table, nil
}

func (l Loader) loadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCSV(file, l.Encoding)
}

// ReadCSV parses delimited text whose first record is the header. A byte
// order mark overrides encoding.
func ReadCSV(r io.Reader, encoding string) (*Table, error) {
	fallback := unicode.UTF8.NewDecoder()
	if encoding != "" && !strings.EqualFold(encoding, "utf-8") && !strings.EqualFold(encoding, "utf8") {
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", encoding, err)
		}
		fallback = enc.NewDecoder()
	}

	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(fallback)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return fromRecords(records), nil
}

func loadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	return fromRecords(rows), nil
}

func fromRecords(records [][]string) *Table {
	if len(records) == 0 {
		return Empty()
	}
	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = norm.NFC.String(strings.TrimSpace(name))
	}
	rows := records[1:]
	for _, row := range rows {
		for i, cell := range row {
			row[i] = norm.NFC.String(cell)
		}
	}
	return NewTable(header, rows)
}
