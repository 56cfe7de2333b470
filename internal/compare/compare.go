package compare

import (
	"fmt"

	"techrace/internal/metrics"
	"techrace/internal/series"
)

type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

type MetricKind string

const (
	KindValue      MetricKind = "value"
	KindRatio      MetricKind = "ratio"
	KindCAGR       MetricKind = "cagr"
	KindTotal      MetricKind = "total"
	KindSum        MetricKind = "sum"
	KindVolatility MetricKind = "volatility" // std dev of year-over-year growth
)

// Metric names one extra figure the text report needs. For ratios Side is
// the numerator.
type Metric struct {
	Key       string     `mapstructure:"key"`
	Kind      MetricKind `mapstructure:"kind"`
	Side      Side       `mapstructure:"side"`
	Column    string     `mapstructure:"column"`
	Columns   []string   `mapstructure:"columns"`
	Year      int        `mapstructure:"year"`
	StartYear int        `mapstructure:"start_year"`
	EndYear   int        `mapstructure:"end_year"`
}

// Comparison describes which columns and years two series are compared on.
type Comparison struct {
	Column        string   `mapstructure:"column"`
	StartYear     int      `mapstructure:"start_year"`
	EndYear       int      `mapstructure:"end_year"`
	RatioYear     int      `mapstructure:"ratio_year"`
	BreakdownYear int      `mapstructure:"breakdown_year"`
	BreakdownA    []string `mapstructure:"breakdown_a"`
	BreakdownB    []string `mapstructure:"breakdown_b"`
	Metrics       []Metric `mapstructure:"metrics"`
}

// NamedValue is one computed Metric.
type NamedValue struct {
	Key   string
	Value float64
}

// Result holds everything derived from one comparison run.
type Result struct {
	CAGRA       float64
	CAGRB       float64
	RatioAtYear float64
	BreakdownA  []float64
	BreakdownB  []float64
	CumulativeA []float64
	CumulativeB []float64
	Metrics     []NamedValue
}

// Metric looks up a named metric.
func (r Result) Metric(key string) (float64, bool) {
	for _, m := range r.Metrics {
		if m.Key == key {
			return m.Value, true
		}
	}
	return 0, false
}

func (c Comparison) Validate() error {
	if c.Column == "" {
		return fmt.Errorf("comparison column is required")
	}
	if c.EndYear <= c.StartYear {
		return fmt.Errorf("comparison end_year %d must be after start_year %d", c.EndYear, c.StartYear)
	}

	seen := make(map[string]bool, len(c.Metrics))
	for i, m := range c.Metrics {
		if m.Key == "" {
			return fmt.Errorf("metric %d has no key", i)
		}
		if seen[m.Key] {
			return fmt.Errorf("metric %q is defined twice", m.Key)
		}
		seen[m.Key] = true

		if m.Side != SideA && m.Side != SideB {
			return fmt.Errorf("metric %q: side must be %q or %q, got %q", m.Key, SideA, SideB, m.Side)
		}
		switch m.Kind {
		case KindValue, KindRatio, KindCAGR, KindTotal, KindVolatility:
			if m.Column == "" {
				return fmt.Errorf("metric %q: column is required", m.Key)
			}
		case KindSum:
			if len(m.Columns) == 0 {
				return fmt.Errorf("metric %q: columns are required", m.Key)
			}
		default:
			return fmt.Errorf("metric %q: unknown kind %q", m.Key, m.Kind)
		}
	}
	return nil
}

// Columns lists every column the comparison reads from the given side.
func (c Comparison) Columns(side Side) []string {
	cols := []string{c.Column}
	if side == SideA {
		cols = append(cols, c.BreakdownA...)
	} else {
		cols = append(cols, c.BreakdownB...)
	}

	for _, m := range c.Metrics {
		if m.Side != side && m.Kind != KindRatio {
			continue
		}
		if m.Column != "" {
			cols = append(cols, m.Column)
		}
		cols = append(cols, m.Columns...)
	}
	return cols
}

// Compute derives a Result from a and b. Nothing is returned on failure.
func Compute(a, b *series.YearSeries, c Comparison) (Result, error) {
	var (
		res Result
		err error
	)

	if res.CAGRA, err = metrics.CAGR(a, c.Column, c.StartYear, c.EndYear); err != nil {
		return Result{}, err
	}
	if res.CAGRB, err = metrics.CAGR(b, c.Column, c.StartYear, c.EndYear); err != nil {
		return Result{}, err
	}
	if res.RatioAtYear, err = metrics.Ratio(a, b, c.Column, c.ratioYear()); err != nil {
		return Result{}, err
	}
	if res.BreakdownA, err = metrics.Breakdown(a, c.breakdownYear(), c.BreakdownA); err != nil {
		return Result{}, err
	}
	if res.BreakdownB, err = metrics.Breakdown(b, c.breakdownYear(), c.BreakdownB); err != nil {
		return Result{}, err
	}
	if res.CumulativeA, err = metrics.Cumulative(a, c.Column); err != nil {
		return Result{}, err
	}
	if res.CumulativeB, err = metrics.Cumulative(b, c.Column); err != nil {
		return Result{}, err
	}

	for _, m := range c.Metrics {
		v, err := c.evaluate(a, b, m)
		if err != nil {
			return Result{}, fmt.Errorf("metric %q: %w", m.Key, err)
		}
		res.Metrics = append(res.Metrics, NamedValue{Key: m.Key, Value: v})
	}

	return res, nil
}

func (c Comparison) evaluate(a, b *series.YearSeries, m Metric) (float64, error) {
	own, other := a, b
	if m.Side == SideB {
		own, other = b, a
	}

	year := m.Year
	if year == 0 {
		year = c.ratioYear()
	}

	switch m.Kind {
	case KindValue:
		return own.ValueAt(year, m.Column)
	case KindRatio:
		return metrics.Ratio(own, other, m.Column, year)
	case KindCAGR:
		start, end := m.StartYear, m.EndYear
		if start == 0 {
			start = c.StartYear
		}
		if end == 0 {
			end = c.EndYear
		}
		return metrics.CAGR(own, m.Column, start, end)
	case KindTotal:
		return metrics.Total(own, m.Column)
	case KindSum:
		return metrics.Sum(own, year, m.Columns)
	case KindVolatility:
		rates, err := metrics.GrowthRates(own, m.Column)
		if err != nil {
			return 0, err
		}
		return metrics.Volatility(rates), nil
	}
	return 0, fmt.Errorf("unknown metric kind %q", m.Kind)
}

func (c Comparison) ratioYear() int {
	if c.RatioYear == 0 {
		return c.EndYear
	}
	return c.RatioYear
}

func (c Comparison) breakdownYear() int {
	if c.BreakdownYear == 0 {
		return c.EndYear
	}
	return c.BreakdownYear
}
