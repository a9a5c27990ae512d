package dataset

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// LoadArrow reads an Arrow IPC file (Feather v2) produced by an upstream
// dataset decoder. All record batches are concatenated in file order.
func LoadArrow(path, domain string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Arrow file: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to read Arrow file %s: %w", path, err)
	}
	defer r.Close()

	records := make([]arrow.Record, 0, r.NumRecords())
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", i, err)
		}
		rec.Retain()
		defer rec.Release()
		records = append(records, rec)
	}
	return FromRecords(domain, r.Schema(), records)
}

// FromRecord converts a single Arrow record batch into a Table.
func FromRecord(domain string, rec arrow.Record) (*Table, error) {
	return FromRecords(domain, rec.Schema(), []arrow.Record{rec})
}

// FromRecords converts record batches sharing schema into a Table. Integer
// and floating columns become numeric; everything else is rendered through
// the array's string form. Arrow nulls become Missing.
func FromRecords(domain string, schema *arrow.Schema, records []arrow.Record) (*Table, error) {
	fields := schema.Fields()
	columns := make([]*Column, len(fields))
	for j, field := range fields {
		numeric := isNumericType(field.Type)
		var values []Value
		for _, rec := range records {
			arr := rec.Column(j)
			for i := 0; i < arr.Len(); i++ {
				values = append(values, cellValue(arr, i, numeric))
			}
		}
		if numeric {
			columns[j] = NewColumn(field.Name, values...)
		} else {
			columns[j] = NewTextColumn(field.Name, values...)
		}
	}
	return NewTable(domain, columns...)
}

func isNumericType(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return true
	default:
		return false
	}
}

func cellValue(arr arrow.Array, i int, numeric bool) Value {
	if arr.IsNull(i) {
		return Missing()
	}
	if !numeric {
		return Text(arr.ValueStr(i))
	}
	switch a := arr.(type) {
	case *array.Int8:
		return Number(float64(a.Value(i)))
	case *array.Int16:
		return Number(float64(a.Value(i)))
	case *array.Int32:
		return Number(float64(a.Value(i)))
	case *array.Int64:
		return Number(float64(a.Value(i)))
	case *array.Uint8:
		return Number(float64(a.Value(i)))
	case *array.Uint16:
		return Number(float64(a.Value(i)))
	case *array.Uint32:
		return Number(float64(a.Value(i)))
	case *array.Uint64:
		return Number(float64(a.Value(i)))
	case *array.Float32:
		return Number(float64(a.Value(i)))
	case *array.Float64:
		return Number(a.Value(i))
	default:
		return Text(arr.ValueStr(i))
	}
}
