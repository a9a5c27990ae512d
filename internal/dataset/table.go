package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solatis/sdtmcheck/internal/types"
)

// ColumnType is the representation a column was loaded with. It decides the
// missing-value test: text columns also treat blank strings as missing.
type ColumnType int

const (
	ColumnNumeric ColumnType = iota
	ColumnText
)

// String returns the lowercase type name.
func (t ColumnType) String() string {
	if t == ColumnNumeric {
		return "numeric"
	}
	return "text"
}

// Column is a named, uppercase-normalized sequence of cells.
type Column struct {
	name   string
	typ    ColumnType
	values []Value
}

// NewColumn builds a column, inferring its type: numeric when every
// non-missing cell is a Number (including the all-missing case), text otherwise.
func NewColumn(name string, values ...Value) *Column {
	typ := ColumnNumeric
	for _, v := range values {
		if v.kind == KindText {
			typ = ColumnText
			break
		}
	}
	return &Column{name: NormalizeName(name), typ: typ, values: values}
}

// NewTextColumn builds a text column regardless of cell contents.
func NewTextColumn(name string, values ...Value) *Column {
	return &Column{name: NormalizeName(name), typ: ColumnText, values: values}
}

// Name returns the uppercased column name.
func (c *Column) Name() string { return c.name }

// Type returns the column representation.
func (c *Column) Type() ColumnType { return c.typ }

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.values) }

// Value returns the cell at 0-based row i.
func (c *Column) Value(i int) Value { return c.values[i] }

// IsMissing applies the missing-value definition to row i: the null
// sentinel always, plus blank-after-trim text for text columns.
func (c *Column) IsMissing(i int) bool {
	v := c.values[i]
	if v.kind == KindMissing {
		return true
	}
	if c.typ == ColumnText && v.kind == KindText {
		return strings.TrimSpace(v.text) == ""
	}
	return false
}

// Table is one domain's dataset: ordered columns of equal length.
type Table struct {
	domain  string
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable assembles columns into a table for domain (uppercased).
// Returns ErrDuplicateColumn or ErrColumnLength for inconsistent input.
func NewTable(domain string, columns ...*Column) (*Table, error) {
	t := &Table{
		domain:  NormalizeName(domain),
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.index[c.name]; dup {
			return nil, fmt.Errorf("%w: %s in %s", types.ErrDuplicateColumn, c.name, t.domain)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: %s has %d rows, expected %d", types.ErrColumnLength, c.name, c.Len(), t.rows)
		}
		t.index[c.name] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustNewTable is NewTable for fixtures; panics on error.
func MustNewTable(domain string, columns ...*Column) *Table {
	t, err := NewTable(domain, columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Domain returns the uppercased domain code.
func (t *Table) Domain() string { return t.domain }

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// Columns returns column names in insertion order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// Column looks up a column by name (case-insensitive).
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[NormalizeName(name)]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[NormalizeName(name)]
	return ok
}

// Value returns the cell at 0-based row for column; ok is false when the
// column is absent or the row is out of range.
func (t *Table) Value(row int, column string) (Value, bool) {
	c, ok := t.Column(column)
	if !ok || row < 0 || row >= t.rows {
		return Value{}, false
	}
	return c.values[row], true
}

// IsMissing reports whether the cell at 0-based row is missing. Absent
// columns count as missing.
func (t *Table) IsMissing(row int, column string) bool {
	c, ok := t.Column(column)
	if !ok || row < 0 || row >= t.rows {
		return true
	}
	return c.IsMissing(row)
}

// Summary describes a loaded table for listings.
type Summary struct {
	Domain    string
	Records   int
	Variables []string
}

// Summarize lists tables sorted by domain.
func Summarize(tables map[string]*Table) []Summary {
	out := make([]Summary, 0, len(tables))
	for domain, t := range tables {
		out = append(out, Summary{Domain: domain, Records: t.NumRows(), Variables: t.Columns()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

// NormalizeName trims and uppercases a domain or column name.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
