// Package dataset loads the static table of road records with their precomputed accident risk.
package dataset

import (
	"encoding/csv"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/myrjola/saferroad/internal/errors"
	"github.com/myrjola/saferroad/internal/models"
)

const (
	ColumnCurvature  = "curvature"
	ColumnSpeedLimit = "speed_limit"
	ColumnRisk       = "predicted_accident_risk"
)

// RequiredColumns must be present in the header of every dataset.
var RequiredColumns = []string{ColumnCurvature, ColumnSpeedLimit, ColumnRisk} //nolint:gochecknoglobals // constant

var (
	ErrMissingColumn = errors.NewSentinel("missing required column")
	ErrInvalidValue  = errors.NewSentinel("invalid numeric value")
	ErrEmpty         = errors.NewSentinel("dataset has no records")
)

// Table is the immutable in-memory dataset. It is safe for concurrent use.
type Table struct {
	records []models.RoadRecord
}

// NewTable creates a table from records. It returns ErrEmpty if there are none.
func NewTable(records []models.RoadRecord) (*Table, error) {
	if len(records) == 0 {
		return nil, errors.Wrap(ErrEmpty, "new table")
	}
	return &Table{records: slices.Clone(records)}, nil
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// Record returns the record at index i. It panics if i is out of range.
func (t *Table) Record(i int) models.RoadRecord {
	return t.records[i]
}

// Contains reports whether i is a valid record index.
func (t *Table) Contains(i int) bool {
	return i >= 0 && i < len(t.records)
}

// Records returns a copy of all records.
func (t *Table) Records() []models.RoadRecord {
	return slices.Clone(t.records)
}

// Load reads the CSV dataset at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open dataset", slog.String("path", path))
	}
	defer func() {
		_ = f.Close()
	}()

	var table *Table
	if table, err = Parse(f); err != nil {
		return nil, errors.Wrap(err, "parse dataset", slog.String("path", path))
	}
	return table, nil
}

// Parse reads a CSV dataset with a header row.
//
// The columns in [RequiredColumns] must be present. Every other column is treated as a one-hot flag that is set when
// its cell reads as 1 or true. Columns missing from the header read as unset flags.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.Wrap(ErrEmpty, "read header")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	columns := normaliseHeader(header)

	index := make(map[string]int, len(columns))
	for i, column := range columns {
		index[column] = i
	}
	var missing []string
	for _, column := range RequiredColumns {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Wrap(ErrMissingColumn, "validate header",
			slog.String("missing", strings.Join(missing, ",")))
	}

	var records []models.RoadRecord
	for row := 1; ; row++ {
		var cells []string
		cells, err = reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read row", slog.Int("row", row))
		}

		var record models.RoadRecord
		if record, err = parseRecord(columns, index, cells); err != nil {
			return nil, errors.Wrap(err, "parse row", slog.Int("row", row))
		}
		records = append(records, record)
	}

	return NewTable(records)
}

func normaliseHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, column := range header {
		if i == 0 {
			column = strings.TrimPrefix(column, "\ufeff")
		}
		columns[i] = strings.TrimSpace(column)
	}
	return columns
}

func parseRecord(columns []string, index map[string]int, cells []string) (models.RoadRecord, error) {
	numbers := make(map[string]float64, len(RequiredColumns))
	for _, column := range RequiredColumns {
		cell := strings.TrimSpace(cells[index[column]])
		n, err := strconv.ParseFloat(cell, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return models.RoadRecord{}, errors.Wrap(ErrInvalidValue, "parse float",
				slog.String("column", column), slog.String("value", cell))
		}
		numbers[column] = n
	}

	flags := make(map[string]bool)
	for i, column := range columns {
		if slices.Contains(RequiredColumns, column) {
			continue
		}
		if isSet(cells[i]) {
			flags[column] = true
		}
	}

	return models.RoadRecord{
		Curvature:  numbers[ColumnCurvature],
		SpeedLimit: numbers[ColumnSpeedLimit],
		Flags:      flags,
		Risk:       numbers[ColumnRisk],
	}, nil
}

// isSet interprets a one-hot cell. Pandas writes dummies either as 0/1, 0.0/1.0 or False/True.
func isSet(cell string) bool {
	cell = strings.TrimSpace(cell)
	if b, err := strconv.ParseBool(cell); err == nil {
		return b
	}
	if n, err := strconv.ParseFloat(cell, 64); err == nil {
		return n == 1
	}
	return false
}
