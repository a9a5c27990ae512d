package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/sdtmcheck/internal/types"
)

// Supported dataset file extensions, keyed to their loaders.
var loaders = map[string]func(path, domain string) (*Table, error){
	".csv":     LoadCSV,
	".xlsx":    LoadXLSX,
	".arrow":   LoadArrow,
	".feather": LoadArrow,
	".ipc":     LoadArrow,
}

// DomainFromPath derives the domain code from a file name: dm.csv -> DM.
func DomainFromPath(path string) string {
	base := filepath.Base(path)
	return NormalizeName(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Supported reports whether path has a loader.
func Supported(path string) bool {
	_, ok := loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// LoadFile loads one dataset file, naming the domain after the file stem.
func LoadFile(path string) (*Table, error) {
	load, ok := loaders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedFormat, path)
	}
	return load(path, DomainFromPath(path))
}

// LoadFiles loads each path; a later file for the same domain replaces an
// earlier one.
func LoadFiles(paths []string) (map[string]*Table, error) {
	tables := make(map[string]*Table, len(paths))
	for _, p := range paths {
		t, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		tables[t.Domain()] = t
	}
	return tables, nil
}

// LoadDir loads every supported file directly inside dir, in name order.
func LoadDir(dir string) (map[string]*Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return LoadFiles(paths)
}

// LoadCSV reads a header-first CSV file.
func LoadCSV(path, domain string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, domain)
}

// ReadCSV parses CSV from r. Blank cells are missing; a column whose every
// non-blank cell parses as a number is loaded as numeric. Empty lines are
// skipped rather than loaded as rows; a row of only delimiters is kept.
func ReadCSV(r io.Reader, domain string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV for %s has no header row", domain)
	}
	return FromStrings(domain, rows[0], rows[1:])
}

// FromStrings builds a table from a header and string rows, as produced by
// CSV and spreadsheet readers. Short rows are padded with missing cells.
func FromStrings(domain string, header []string, rows [][]string) (*Table, error) {
	columns := make([]*Column, len(header))
	for j, name := range header {
		cells := make([]string, len(rows))
		for i, row := range rows {
			if j < len(row) {
				cells[i] = row[j]
			}
		}
		columns[j] = inferColumn(name, cells)
	}
	return NewTable(domain, columns...)
}

// inferColumn types a column of raw strings.
func inferColumn(name string, cells []string) *Column {
	numeric := true
	nums := make([]float64, len(cells))
	for i, s := range cells {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = f
	}

	values := make([]Value, len(cells))
	for i, s := range cells {
		switch {
		case strings.TrimSpace(s) == "":
			values[i] = Missing()
		case numeric:
			values[i] = Number(nums[i])
		default:
			values[i] = Text(s)
		}
	}
	if numeric {
		return NewColumn(name, values...)
	}
	return NewTextColumn(name, values...)
}
