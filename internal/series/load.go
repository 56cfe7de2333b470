package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Load reads a yearly table from path. Files ending in .xlsx are read from
// their first sheet; anything else is parsed as CSV. Every name in required
// must appear in the header, otherwise nothing is returned.
func Load(path string, required []string) (*YearSeries, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadWorkbook(path, required)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	return parse(path, seriesName(path), file, required)
}

// Parse reads a CSV table from r. name identifies the series in errors.
func Parse(name string, r io.Reader, required []string) (*YearSeries, error) {
	return parse(name, name, r, required)
}

func parse(source, name string, r io.Reader, required []string) (*YearSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataFormat, source, err)
	}
	return buildSeries(source, name, records, required)
}

func loadWorkbook(path string, required []string) (*YearSeries, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataFormat, path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s has no sheets", ErrDataFormat, path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataFormat, path, err)
	}

	// GetRows drops trailing empty cells.
	if len(rows) > 0 {
		width := len(rows[0])
		for i, row := range rows {
			for len(row) < width {
				row = append(row, "")
			}
			rows[i] = row
		}
	}
	return buildSeries(path, seriesName(path), rows, required)
}

type badCell struct {
	line  int
	value string
}

func buildSeries(source, name string, records [][]string, required []string) (*YearSeries, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrDataFormat, source)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	yearIdx := -1
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if seen[h] {
			return nil, fmt.Errorf("%w: %s has duplicate column %q", ErrDataFormat, source, h)
		}
		seen[h] = true
		if strings.EqualFold(h, YearColumn) && yearIdx < 0 {
			yearIdx = i
		}
	}

	var missing []string
	if yearIdx < 0 {
		missing = append(missing, YearColumn)
	}
	for _, c := range required {
		if strings.EqualFold(c, YearColumn) {
			continue
		}
		if !seen[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s is missing required columns %s", ErrDataFormat, source, strings.Join(quoteAll(missing), ", "))
	}

	bad := make(map[int]badCell)
	rows := make(map[int]map[string]float64, len(records)-1)

	for i, record := range records[1:] {
		line := i + 2
		if isBlank(record) {
			continue
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("%w: %s line %d has %d fields, want %d", ErrDataFormat, source, line, len(record), len(header))
		}

		year, err := strconv.Atoi(strings.TrimSpace(record[yearIdx]))
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: invalid year %q", ErrDataFormat, source, line, record[yearIdx])
		}
		if _, dup := rows[year]; dup {
			return nil, fmt.Errorf("%w: %s line %d: duplicate year %d", ErrDataFormat, source, line, year)
		}

		values := make(map[string]float64, len(header)-1)
		for j, cell := range record {
			if j == yearIdx {
				continue
			}
			v, err := parseNumber(cell)
			if err != nil {
				if _, noted := bad[j]; !noted {
					bad[j] = badCell{line: line, value: cell}
				}
				continue
			}
			values[header[j]] = v
		}
		rows[year] = values
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", ErrDataFormat, source)
	}

	requiredSet := make(map[string]bool, len(required))
	for _, c := range required {
		requiredSet[c] = true
	}

	var columns []string
	for j, h := range header {
		if j == yearIdx {
			continue
		}
		if cell, isBad := bad[j]; isBad {
			if requiredSet[h] {
				return nil, fmt.Errorf("%w: %s line %d: column %q has non-numeric value %q", ErrDataFormat, source, cell.line, h, cell.value)
			}
			for _, values := range rows {
				delete(values, h)
			}
			continue
		}
		columns = append(columns, h)
	}

	return New(name, columns, rows)
}

func parseNumber(cell string) (float64, error) {
	cell = strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if cell == "" {
		return 0, errors.New("empty cell")
	}
	return strconv.ParseFloat(cell, 64)
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func seriesName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func quoteAll(names []string) []string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	return quoted
}
