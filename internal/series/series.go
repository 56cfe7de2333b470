package series

import (
	"fmt"
	"sort"
)

// YearColumn is the header every input table must carry.
const YearColumn = "Year"

// YearSeries is an immutable table of per-year numeric records for one entity.
type YearSeries struct {
	name    string
	columns []string
	years   []int
	rows    map[int]map[string]float64
}

// New builds a series from in-memory records. Every record must carry exactly
// the given columns; years come out sorted ascending.
func New(name string, columns []string, rows map[int]map[string]float64) (*YearSeries, error) {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		if known[c] {
			return nil, fmt.Errorf("%w: duplicate column %q in %s", ErrDataFormat, c, name)
		}
		known[c] = true
	}

	s := &YearSeries{
		name:    name,
		columns: append([]string(nil), columns...),
		years:   make([]int, 0, len(rows)),
		rows:    make(map[int]map[string]float64, len(rows)),
	}

	for year, record := range rows {
		if len(record) != len(columns) {
			return nil, fmt.Errorf("%w: %s year %d has %d columns, want %d", ErrDataFormat, name, year, len(record), len(columns))
		}
		copied := make(map[string]float64, len(record))
		for c, v := range record {
			if !known[c] {
				return nil, fmt.Errorf("%w: %s year %d has undeclared column %q", ErrDataFormat, name, year, c)
			}
			copied[c] = v
		}
		s.rows[year] = copied
		s.years = append(s.years, year)
	}
	sort.Ints(s.years)

	return s, nil
}

func (s *YearSeries) Name() string { return s.name }

// Years returns the years in ascending order.
func (s *YearSeries) Years() []int { return append([]int(nil), s.years...) }

// Columns returns the metric columns in header order.
func (s *YearSeries) Columns() []string { return append([]string(nil), s.columns...) }

func (s *YearSeries) Len() int { return len(s.years) }

func (s *YearSeries) HasYear(year int) bool {
	_, ok := s.rows[year]
	return ok
}

func (s *YearSeries) HasColumn(column string) bool {
	for _, c := range s.columns {
		if c == column {
			return true
		}
	}
	return false
}

// ValueAt returns the value of column at year.
func (s *YearSeries) ValueAt(year int, column string) (float64, error) {
	record, ok := s.rows[year]
	if !ok {
		return 0, fmt.Errorf("%w: %s has no year %d", ErrInsufficientData, s.name, year)
	}
	v, ok := record[column]
	if !ok {
		return 0, fmt.Errorf("%w: %s has no column %q", ErrInsufficientData, s.name, column)
	}
	return v, nil
}

// Column returns the values of column in year order.
func (s *YearSeries) Column(column string) ([]float64, error) {
	if !s.HasColumn(column) {
		return nil, fmt.Errorf("%w: %s has no column %q", ErrInsufficientData, s.name, column)
	}
	values := make([]float64, len(s.years))
	for i, year := range s.years {
		values[i] = s.rows[year][column]
	}
	return values, nil
}

// Rename returns a copy whose columns are renamed through mapping
// (source name -> new name). Columns absent from mapping keep their name.
func (s *YearSeries) Rename(mapping map[string]string) (*YearSeries, error) {
	columns := make([]string, len(s.columns))
	for i, c := range s.columns {
		if to, ok := mapping[c]; ok {
			columns[i] = to
		} else {
			columns[i] = c
		}
	}

	rows := make(map[int]map[string]float64, len(s.rows))
	for year, record := range s.rows {
		renamed := make(map[string]float64, len(record))
		for i, c := range s.columns {
			renamed[columns[i]] = record[c]
		}
		rows[year] = renamed
	}
	return New(s.name, columns, rows)
}

// Scale returns a copy with every value multiplied by factor.
func (s *YearSeries) Scale(factor float64) *YearSeries {
	scaled := &YearSeries{
		name:    s.name,
		columns: append([]string(nil), s.columns...),
		years:   append([]int(nil), s.years...),
		rows:    make(map[int]map[string]float64, len(s.rows)),
	}
	for year, record := range s.rows {
		r := make(map[string]float64, len(record))
		for c, v := range record {
			r[c] = v * factor
		}
		scaled.rows[year] = r
	}
	return scaled
}
