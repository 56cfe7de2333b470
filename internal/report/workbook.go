package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"techrace/internal/compare"
	"techrace/internal/series"
)

const summarySheet = "Summary"

// WorkbookRenderer exports the comparison and both raw tables to an .xlsx file.
type WorkbookRenderer struct {
	path string
	cmp  compare.Comparison
	a, b Entity
}

func NewWorkbookRenderer(path string, cmp compare.Comparison, a, b Entity) *WorkbookRenderer {
	return &WorkbookRenderer{path: path, cmp: cmp, a: a, b: b}
}

func (r *WorkbookRenderer) Name() string { return r.path }

func (r *WorkbookRenderer) Render(a, b *series.YearSeries, res compare.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"Metric", r.a.Label, r.b.Label},
		{fmt.Sprintf("CAGR %s %d-%d", r.cmp.Column, r.cmp.StartYear, r.cmp.EndYear), res.CAGRA, res.CAGRB},
		{fmt.Sprintf("Ratio %s (%s / %s)", r.cmp.Column, r.a.Short, r.b.Short), res.RatioAtYear},
	}
	for i, c := range r.cmp.BreakdownA {
		summary = append(summary, []interface{}{fmt.Sprintf("%s breakdown: %s", r.a.Short, c), res.BreakdownA[i]})
	}
	for i, c := range r.cmp.BreakdownB {
		summary = append(summary, []interface{}{fmt.Sprintf("%s breakdown: %s", r.b.Short, c), nil, res.BreakdownB[i]})
	}
	for _, m := range res.Metrics {
		summary = append(summary, []interface{}{m.Key, m.Value})
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	for _, side := range []struct {
		entity Entity
		s      *series.YearSeries
	}{{r.a, a}, {r.b, b}} {
		sheet := sheetName(side.entity.Label)
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		if err := writeRows(f, sheet, seriesRows(side.s)); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet("Cumulative"); err != nil {
		return nil, err
	}
	cumulative := [][]interface{}{{series.YearColumn, r.a.Label, r.b.Label}}
	for _, year := range unionYears(a.Years(), b.Years()) {
		row := []interface{}{year, nil, nil}
		if v, ok := cumulativeAt(a.Years(), res.CumulativeA, year); ok {
			row[1] = v
		}
		if v, ok := cumulativeAt(b.Years(), res.CumulativeB, year); ok {
			row[2] = v
		}
		cumulative = append(cumulative, row)
	}
	if err := writeRows(f, "Cumulative", cumulative); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *WorkbookRenderer) Emit(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}

func (r *WorkbookRenderer) Discard() error { return removeFile(r.path) }

// removeFile deletes an emitted artifact; a file that was never written is fine.
func removeFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}
	return os.Remove(path)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		last, err := excelize.ColumnNumberToName(len(rows[0]))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", last, 24); err != nil {
			return err
		}
	}
	return nil
}

func seriesRows(s *series.YearSeries) [][]interface{} {
	columns := s.Columns()
	header := []interface{}{series.YearColumn}
	for _, c := range columns {
		header = append(header, c)
	}

	rows := [][]interface{}{header}
	for _, year := range s.Years() {
		row := []interface{}{year}
		for _, c := range columns {
			v, _ := s.ValueAt(year, c)
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows
}

func unionYears(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var years []int
	for _, y := range append(append([]int(nil), a...), b...) {
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

func cumulativeAt(years []int, values []float64, year int) (float64, bool) {
	for i, y := range years {
		if y == year {
			return values[i], true
		}
	}
	return 0, false
}

// sheetName strips characters Excel refuses and caps the length at 31.
func sheetName(label string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, label)
	if len([]rune(name)) > 31 {
		name = string([]rune(name)[:31])
	}
	if name == "" || strings.EqualFold(name, summarySheet) || strings.EqualFold(name, "Cumulative") {
		name = "Data " + name
	}
	return name
}
