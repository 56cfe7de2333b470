package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"techrace/internal/compare"
	"techrace/internal/metrics"
	"techrace/internal/series"
)

// Entity is how one side of the comparison is presented.
type Entity struct {
	Label string `mapstructure:"label"`
	Short string `mapstructure:"short"`
}

var printer = message.NewPrinter(language.English)

var funcMap = template.FuncMap{
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v*100)
	},
	"num": func(v float64) string {
		return printer.Sprintf("%d", int64(math.Round(v)))
	},
	"fixed": func(prec int, v float64) string {
		return fmt.Sprintf("%.*f", prec, v)
	},
	"div": func(num, den float64) (float64, error) {
		if den == 0 {
			return 0, fmt.Errorf("%w: %v / 0", metrics.ErrDivisionByZero, num)
		}
		return num / den, nil
	},
	"rule": func(n int) string {
		return strings.Repeat("=", n)
	},
	"compact": compact,
}

// compact shortens large figures to K/M/B, e.g. 72640 -> "72.6K".
func compact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	}
	return fmt.Sprintf("%.0f", v)
}

// TextRenderer writes the console summary of a comparison.
type TextRenderer struct {
	tmpl *template.Template
	cmp  compare.Comparison
	a, b Entity
	out  io.Writer
}

func NewTextRenderer(source string, cmp compare.Comparison, a, b Entity, out io.Writer) (*TextRenderer, error) {
	tmpl, err := template.New("summary").Funcs(funcMap).Option("missingkey=error").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse summary template: %w", err)
	}
	if out == nil {
		out = os.Stdout
	}
	return &TextRenderer{tmpl: tmpl, cmp: cmp, a: a, b: b, out: out}, nil
}

func (r *TextRenderer) Name() string { return "summary" }

func (r *TextRenderer) Render(a, b *series.YearSeries, res compare.Result) ([]byte, error) {
	var buf bytes.Buffer
	data := summaryData{
		A:          r.a,
		B:          r.b,
		Comparison: r.cmp,
		Result:     res,
		seriesA:    a,
		seriesB:    b,
	}
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *TextRenderer) Emit(data []byte) error {
	_, err := r.out.Write(data)
	return err
}

type summaryData struct {
	A, B       Entity
	Comparison compare.Comparison
	Result     compare.Result

	seriesA, seriesB *series.YearSeries
}

// Metric is callable from templates as {{.Metric "key"}}.
func (d summaryData) Metric(key string) (float64, error) {
	v, ok := d.Result.Metric(key)
	if !ok {
		return 0, fmt.Errorf("no metric %q", key)
	}
	return v, nil
}

// Years is the number of years in each series, as {{.Years "a"}}.
func (d summaryData) Years(side string) (int, error) {
	switch compare.Side(side) {
	case compare.SideA:
		return d.seriesA.Len(), nil
	case compare.SideB:
		return d.seriesB.Len(), nil
	}
	return 0, fmt.Errorf("unknown side %q", side)
}
