package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techrace/internal/series"
)

func mustSeries(t *testing.T, name string, columns []string, rows map[int]map[string]float64) *series.YearSeries {
	t.Helper()
	s, err := series.New(name, columns, rows)
	require.NoError(t, err)
	return s
}

func endToEndPair(t *testing.T) (*series.YearSeries, *series.YearSeries) {
	a := mustSeries(t, "A", []string{"Total"}, map[int]map[string]float64{
		2015: {"Total": 100},
		2025: {"Total": 900},
	})
	b := mustSeries(t, "B", []string{"Total"}, map[int]map[string]float64{
		2015: {"Total": 900},
		2025: {"Total": 8100},
	})
	return a, b
}

func TestEndToEnd_CAGRAndRatio(t *testing.T) {
	a, b := endToEndPair(t)

	cagr, err := CAGR(a, "Total", 2015, 2025)
	require.NoError(t, err)
	assert.InDelta(t, math.Pow(9, 0.1)-1, cagr, 1e-12)
	assert.InDelta(t, 0.2451, cagr, 1e-3)

	ratio, err := Ratio(a, b, "Total", 2025)
	require.NoError(t, err)
	assert.InDelta(t, 900.0/8100.0, ratio, 1e-12)
	assert.InDelta(t, 0.1111, ratio, 1e-4)
}

func TestEndToEnd_Breakdown(t *testing.T) {
	a, _ := endToEndPair(t)

	values, err := Breakdown(a, 2025, []string{"Total"})
	require.NoError(t, err)
	assert.Equal(t, []float64{900}, values)

	_, err = Breakdown(a, 2025, []string{"Total", "Nope"})
	assert.ErrorIs(t, err, series.ErrInsufficientData)
}

func TestCAGR_ScaleInvariant(t *testing.T) {
	base := map[int]map[string]float64{
		2015: {"Total": 37},
		2020: {"Total": 120},
	}
	want, err := CAGR(mustSeries(t, "base", []string{"Total"}, base), "Total", 2015, 2020)
	require.NoError(t, err)

	for _, k := range []float64{0.001, 3, 1e6} {
		scaled := mustSeries(t, "base", []string{"Total"}, base).Scale(k)
		got, err := CAGR(scaled, "Total", 2015, 2020)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-9, "factor %v", k)
	}
}

func TestCAGR_Errors(t *testing.T) {
	s := mustSeries(t, "s", []string{"Total", "Signed"}, map[int]map[string]float64{
		2015: {"Total": 0, "Signed": -5},
		2020: {"Total": 10, "Signed": 5},
	})

	tests := []struct {
		name       string
		column     string
		start, end int
	}{
		{name: "zero start value", column: "Total", start: 2015, end: 2020},
		{name: "missing start year", column: "Total", start: 2014, end: 2020},
		{name: "missing end year", column: "Total", start: 2015, end: 2025},
		{name: "missing column", column: "Other", start: 2015, end: 2020},
		{name: "empty period", column: "Total", start: 2020, end: 2020},
		{name: "sign change", column: "Signed", start: 2015, end: 2020},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CAGR(s, tt.column, tt.start, tt.end)
			assert.ErrorIs(t, err, series.ErrInsufficientData)
		})
	}
}

func TestCAGR_ReversedPeriod(t *testing.T) {
	a, _ := endToEndPair(t)

	forward, err := CAGR(a, "Total", 2015, 2025)
	require.NoError(t, err)
	backward, err := CAGR(a, "Total", 2025, 2015)
	require.NoError(t, err)

	// (100/900)^(1/-10) - 1 == 9^(1/10) - 1
	assert.InDelta(t, forward, backward, 1e-12)
}

func TestRatio_ZeroDenominator(t *testing.T) {
	b := mustSeries(t, "b", []string{"Total"}, map[int]map[string]float64{2025: {"Total": 0}})

	for _, v := range []float64{0, 1, -3, 1e9} {
		a := mustSeries(t, "a", []string{"Total"}, map[int]map[string]float64{2025: {"Total": v}})
		_, err := Ratio(a, b, "Total", 2025)
		assert.ErrorIs(t, err, ErrDivisionByZero, "numerator %v", v)
	}
}

func TestRatio_MissingYear(t *testing.T) {
	a := mustSeries(t, "a", []string{"Total"}, map[int]map[string]float64{2025: {"Total": 1}})
	b := mustSeries(t, "b", []string{"Total"}, map[int]map[string]float64{2024: {"Total": 1}})

	_, err := Ratio(a, b, "Total", 2025)
	assert.ErrorIs(t, err, series.ErrInsufficientData)

	_, err = Ratio(b, a, "Total", 2025)
	assert.ErrorIs(t, err, series.ErrInsufficientData)
}

func TestCumulative(t *testing.T) {
	s := mustSeries(t, "s", []string{"Total"}, map[int]map[string]float64{
		2017: {"Total": 4},
		2015: {"Total": 1.5},
		2016: {"Total": 2.5},
	})

	got, err := Cumulative(s, "Total")
	require.NoError(t, err)
	require.Len(t, got, s.Len())

	first, err := s.ValueAt(s.Years()[0], "Total")
	require.NoError(t, err)
	assert.Equal(t, first, got[0])

	total, err := Total(s, "Total")
	require.NoError(t, err)
	assert.Equal(t, total, got[len(got)-1])
	assert.Equal(t, []float64{1.5, 4, 8}, got)

	_, err = Cumulative(s, "Other")
	assert.ErrorIs(t, err, series.ErrInsufficientData)
}

func TestSumAndShares(t *testing.T) {
	s := mustSeries(t, "us", []string{"DoD", "DARPA", "Private"}, map[int]map[string]float64{
		2025: {"DoD": 3, "DARPA": 1, "Private": 4},
	})

	sum, err := Sum(s, 2025, []string{"DoD", "DARPA"})
	require.NoError(t, err)
	assert.Equal(t, 4.0, sum)

	_, err = Sum(s, 2024, []string{"DoD"})
	assert.ErrorIs(t, err, series.ErrInsufficientData)

	shares, err := Shares([]float64{3, 1, 4})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.375, 0.125, 0.5}, shares, 1e-12)

	_, err = Shares([]float64{0, 0})
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestGrowthRates(t *testing.T) {
	s := mustSeries(t, "US", []string{"Total"}, map[int]map[string]float64{
		2023: {"Total": 100},
		2024: {"Total": 150},
		2025: {"Total": 120},
	})

	rates, err := GrowthRates(s, "Total")
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.InDelta(t, 0.5, rates[0], 1e-12)
	assert.InDelta(t, -0.2, rates[1], 1e-12)

	assert.InDelta(t, 0.35, Volatility(rates), 1e-12)
	assert.Zero(t, Volatility(nil))
}

func TestGrowthRates_Errors(t *testing.T) {
	single := mustSeries(t, "US", []string{"Total"}, map[int]map[string]float64{2025: {"Total": 1}})
	_, err := GrowthRates(single, "Total")
	assert.True(t, errors.Is(err, series.ErrInsufficientData))

	zero := mustSeries(t, "US", []string{"Total"}, map[int]map[string]float64{
		2024: {"Total": 0},
		2025: {"Total": 10},
	})
	_, err = GrowthRates(zero, "Total")
	assert.True(t, errors.Is(err, ErrDivisionByZero))

	_, err = GrowthRates(zero, "Other")
	assert.True(t, errors.Is(err, series.ErrInsufficientData))
}
