package analysis

import (
	"context"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"

	"techrace/internal/compare"
	"techrace/internal/report"
	"techrace/internal/series"
)

// Options carries the per-run paths and switches.
type Options struct {
	DataDir  string
	OutDir   string
	Workbook bool
	DPI      int
	Out      io.Writer
}

// Run loads both entities, computes the comparison and writes the chart,
// the optional workbook and the console summary.
func Run(ctx context.Context, def *Definition, opts Options) (compare.Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("analysis", def.Name).Logger()

	a, err := loadSource(def, compare.SideA, opts.DataDir)
	if err != nil {
		return compare.Result{}, err
	}
	logger.Info().Str("entity", def.A.Label).Int("years", a.Len()).Msg("series loaded")

	b, err := loadSource(def, compare.SideB, opts.DataDir)
	if err != nil {
		return compare.Result{}, err
	}
	logger.Info().Str("entity", def.B.Label).Int("years", b.Len()).Msg("series loaded")

	chart := def.Chart
	chart.File = resolve(opts.OutDir, chart.File)
	if opts.DPI > 0 {
		chart.DPI = opts.DPI
	}
	renderers := []compare.Renderer{report.NewChartRenderer(chart, def.A.Entity, def.B.Entity)}

	if opts.Workbook {
		path := def.Workbook
		if path == "" {
			path = def.Name + ".xlsx"
		}
		renderers = append(renderers, report.NewWorkbookRenderer(resolve(opts.OutDir, path), def.Comparison, def.A.Entity, def.B.Entity))
	}

	text, err := report.NewTextRenderer(def.Summary, def.Comparison, def.A.Entity, def.B.Entity, opts.Out)
	if err != nil {
		return compare.Result{}, err
	}
	renderers = append(renderers, text)

	res, err := compare.Run(a, b, def.Comparison, renderers...)
	if err != nil {
		return compare.Result{}, err
	}

	for _, r := range renderers[:len(renderers)-1] {
		logger.Info().Str("file", r.Name()).Msg("artifact written")
	}
	logger.Debug().
		Float64("cagr_a", res.CAGRA).
		Float64("cagr_b", res.CAGRB).
		Float64("ratio", res.RatioAtYear).
		Msg("comparison complete")

	return res, nil
}

func loadSource(def *Definition, side compare.Side, dataDir string) (*series.YearSeries, error) {
	src := def.source(side)

	s, err := series.Load(resolve(dataDir, src.Path), def.Required(side))
	if err != nil {
		return nil, err
	}

	if len(src.Rename) > 0 {
		mapping := make(map[string]string, len(src.Rename))
		for _, r := range src.Rename {
			mapping[r.From] = r.To
		}
		if s, err = s.Rename(mapping); err != nil {
			return nil, err
		}
	}

	if src.Scale != 0 && src.Scale != 1 {
		s = s.Scale(src.Scale)
	}
	return s, nil
}

func resolve(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
