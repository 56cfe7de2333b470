package metrics

import (
	"errors"
	"fmt"
	"math"

	"techrace/internal/series"
)

// ErrDivisionByZero is returned when a denominator is zero.
var ErrDivisionByZero = errors.New("division by zero")

// CAGR returns the compound annual growth rate of column between start and end:
// (end/start)^(1/(endYear-startYear)) - 1. A reversed period is allowed.
func CAGR(s *series.YearSeries, column string, startYear, endYear int) (float64, error) {
	if endYear == startYear {
		return 0, fmt.Errorf("%w: %s growth period %d-%d is empty", series.ErrInsufficientData, s.Name(), startYear, endYear)
	}

	start, err := s.ValueAt(startYear, column)
	if err != nil {
		return 0, err
	}
	end, err := s.ValueAt(endYear, column)
	if err != nil {
		return 0, err
	}

	if start == 0 {
		return 0, fmt.Errorf("%w: %s %q is zero in %d", series.ErrInsufficientData, s.Name(), column, startYear)
	}
	growth := end / start
	if growth < 0 {
		return 0, fmt.Errorf("%w: %s %q changes sign between %d and %d", series.ErrInsufficientData, s.Name(), column, startYear, endYear)
	}

	return math.Pow(growth, 1/float64(endYear-startYear)) - 1, nil
}

// Ratio returns a's value of column at year divided by b's.
func Ratio(a, b *series.YearSeries, column string, year int) (float64, error) {
	num, err := a.ValueAt(year, column)
	if err != nil {
		return 0, err
	}
	den, err := b.ValueAt(year, column)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, fmt.Errorf("%w: %s %q is zero in %d", ErrDivisionByZero, b.Name(), column, year)
	}
	return num / den, nil
}

// Breakdown returns the values of columns at year, in the order given.
func Breakdown(s *series.YearSeries, year int, columns []string) ([]float64, error) {
	if !s.HasYear(year) {
		return nil, fmt.Errorf("%w: %s has no year %d", series.ErrInsufficientData, s.Name(), year)
	}

	values := make([]float64, len(columns))
	for i, c := range columns {
		v, err := s.ValueAt(year, c)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// Cumulative returns the running sum of column over the years in ascending order.
func Cumulative(s *series.YearSeries, column string) ([]float64, error) {
	values, err := s.Column(column)
	if err != nil {
		return nil, err
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		values[i] = sum
	}
	return values, nil
}

// Total sums column over every year.
func Total(s *series.YearSeries, column string) (float64, error) {
	values, err := s.Column(column)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for _, v := range values {
		total += v
	}
	return total, nil
}

// Sum adds up columns at year.
func Sum(s *series.YearSeries, year int, columns []string) (float64, error) {
	values, err := Breakdown(s, year, columns)
	if err != nil {
		return 0, err
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum, nil
}

// Shares returns each value as a fraction of their sum.
func Shares(values []float64) ([]float64, error) {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	if sum == 0 {
		return nil, fmt.Errorf("%w: shares of a zero total", ErrDivisionByZero)
	}

	shares := make([]float64, len(values))
	for i, v := range values {
		shares[i] = v / sum
	}
	return shares, nil
}

// GrowthRates returns the year-over-year growth of column as fractions, one
// per consecutive pair of years.
func GrowthRates(s *series.YearSeries, column string) ([]float64, error) {
	values, err := s.Column(column)
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: %s needs at least two years for growth rates", series.ErrInsufficientData, s.Name())
	}

	years := s.Years()
	rates := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			return nil, fmt.Errorf("%w: %s %q is zero in %d", ErrDivisionByZero, s.Name(), column, years[i-1])
		}
		rates = append(rates, (values[i]-values[i-1])/values[i-1])
	}
	return rates, nil
}

// Volatility is the population standard deviation of rates.
func Volatility(rates []float64) float64 {
	if len(rates) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range rates {
		mean += r
	}
	mean /= float64(len(rates))

	variance := 0.0
	for _, r := range rates {
		variance += math.Pow(r-mean, 2)
	}
	return math.Sqrt(variance / float64(len(rates)))
}
