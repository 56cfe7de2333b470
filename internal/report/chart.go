package report

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"techrace/internal/compare"
	"techrace/internal/metrics"
	"techrace/internal/series"
)

type PanelKind string

const (
	PanelLine       PanelKind = "line"
	PanelCumulative PanelKind = "cumulative"
	PanelBreakdown  PanelKind = "breakdown"
	PanelBreakdownA PanelKind = "breakdown_a"
	PanelBreakdownB PanelKind = "breakdown_b"
)

// Panel is one tile of the chart grid.
type Panel struct {
	Kind     PanelKind `mapstructure:"kind"`
	Title    string    `mapstructure:"title"`
	XLabel   string    `mapstructure:"x_label"`
	YLabel   string    `mapstructure:"y_label"`
	Column   string    `mapstructure:"column"`
	LogScale bool      `mapstructure:"log_scale"`
	Labels   []string  `mapstructure:"labels"`
}

// ChartLayout describes the figure written by ChartRenderer.
type ChartLayout struct {
	Title   string  `mapstructure:"title"`
	Footer  string  `mapstructure:"footer"`
	File    string  `mapstructure:"file"`
	Width   float64 `mapstructure:"width"`
	Height  float64 `mapstructure:"height"`
	DPI     int     `mapstructure:"dpi"`
	Columns int     `mapstructure:"columns"`
	Panels  []Panel `mapstructure:"panels"`
}

var (
	steelBlue = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	crimson   = color.RGBA{R: 220, G: 20, B: 60, A: 255}
)

// Validate checks the layout against the comparison it will draw.
func (l ChartLayout) Validate(c compare.Comparison) error {
	if l.File == "" {
		return fmt.Errorf("chart file is required")
	}
	if len(l.Panels) == 0 {
		return fmt.Errorf("chart has no panels")
	}
	for i, p := range l.Panels {
		switch p.Kind {
		case PanelLine:
			if p.Column == "" {
				return fmt.Errorf("panel %d (%s): column is required", i, p.Title)
			}
		case PanelCumulative:
		case PanelBreakdown:
			if len(c.BreakdownA) != len(c.BreakdownB) {
				return fmt.Errorf("panel %d (%s): breakdowns have %d and %d columns", i, p.Title, len(c.BreakdownA), len(c.BreakdownB))
			}
			if len(p.Labels) != len(c.BreakdownA) {
				return fmt.Errorf("panel %d (%s): %d labels for %d categories", i, p.Title, len(p.Labels), len(c.BreakdownA))
			}
		case PanelBreakdownA:
			if len(p.Labels) != len(c.BreakdownA) {
				return fmt.Errorf("panel %d (%s): %d labels for %d categories", i, p.Title, len(p.Labels), len(c.BreakdownA))
			}
		case PanelBreakdownB:
			if len(p.Labels) != len(c.BreakdownB) {
				return fmt.Errorf("panel %d (%s): %d labels for %d categories", i, p.Title, len(p.Labels), len(c.BreakdownB))
			}
		default:
			return fmt.Errorf("panel %d: unknown kind %q", i, p.Kind)
		}
	}
	return nil
}

// LineColumns lists the series columns the line panels read directly.
func (l ChartLayout) LineColumns() []string {
	var cols []string
	for _, p := range l.Panels {
		if p.Kind == PanelLine {
			cols = append(cols, p.Column)
		}
	}
	return cols
}

// ChartRenderer draws a grid of comparison panels into a PNG file.
type ChartRenderer struct {
	layout ChartLayout
	a, b   Entity
}

func NewChartRenderer(layout ChartLayout, a, b Entity) *ChartRenderer {
	if layout.Width <= 0 {
		layout.Width = 16
	}
	if layout.Height <= 0 {
		layout.Height = 12
	}
	if layout.DPI <= 0 {
		layout.DPI = 150
	}
	if layout.Columns <= 0 {
		layout.Columns = 2
	}
	return &ChartRenderer{layout: layout, a: a, b: b}
}

func (r *ChartRenderer) Name() string { return r.layout.File }

func (r *ChartRenderer) Render(a, b *series.YearSeries, res compare.Result) ([]byte, error) {
	cols := r.layout.Columns
	rows := (len(r.layout.Panels) + cols - 1) / cols

	plots := make([][]*plot.Plot, rows)
	for j := range plots {
		plots[j] = make([]*plot.Plot, cols)
	}
	for i, panel := range r.layout.Panels {
		p, err := r.panel(panel, a, b, res)
		if err != nil {
			return nil, fmt.Errorf("panel %q: %w", panel.Title, err)
		}
		plots[i/cols][i%cols] = p
	}

	img := vgimg.NewWith(
		vgimg.UseWH(vg.Length(r.layout.Width)*vg.Inch, vg.Length(r.layout.Height)*vg.Inch),
		vgimg.UseDPI(r.layout.DPI),
	)
	dc := draw.New(img)

	header := vg.Length(0)
	if r.layout.Title != "" {
		header = 0.6 * vg.Inch
		sty := plot.New().Title.TextStyle
		sty.Font.Size = vg.Points(16)
		sty.XAlign = draw.XCenter
		sty.YAlign = draw.YTop
		dc.FillText(sty, vg.Point{X: dc.Center().X, Y: dc.Max.Y - 0.2*vg.Inch}, r.layout.Title)
	}
	footer := vg.Length(0)
	if r.layout.Footer != "" {
		footer = 0.4 * vg.Inch
		sty := plot.New().Title.TextStyle
		sty.Font.Size = vg.Points(10)
		sty.XAlign = draw.XCenter
		sty.YAlign = draw.YBottom
		dc.FillText(sty, vg.Point{X: dc.Center().X, Y: dc.Min.Y + 0.1*vg.Inch}, r.layout.Footer)
	}

	grid := draw.Crop(dc, 0, 0, footer, -header)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 8,
		PadY:      vg.Millimeter * 8,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 4,
		PadLeft:   vg.Millimeter * 4,
		PadRight:  vg.Millimeter * 4,
	}

	canvases := plot.Align(plots, tiles, grid)
	for j := range plots {
		for i, p := range plots[j] {
			if p != nil {
				p.Draw(canvases[j][i])
			}
		}
	}

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *ChartRenderer) Emit(data []byte) error {
	if dir := filepath.Dir(r.layout.File); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(r.layout.File, data, 0o644)
}

func (r *ChartRenderer) Discard() error { return removeFile(r.layout.File) }

func (r *ChartRenderer) panel(panel Panel, a, b *series.YearSeries, res compare.Result) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = panel.Title
	p.X.Label.Text = panel.XLabel
	p.Y.Label.Text = panel.YLabel

	switch panel.Kind {
	case PanelLine:
		valuesA, err := a.Column(panel.Column)
		if err != nil {
			return nil, err
		}
		valuesB, err := b.Column(panel.Column)
		if err != nil {
			return nil, err
		}
		if err := r.addLines(p, a.Years(), valuesA, b.Years(), valuesB); err != nil {
			return nil, err
		}
		if panel.LogScale && allPositive(valuesA) && allPositive(valuesB) {
			p.Y.Scale = plot.LogScale{}
			p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
		}

	case PanelCumulative:
		if err := r.addLines(p, a.Years(), res.CumulativeA, b.Years(), res.CumulativeB); err != nil {
			return nil, err
		}

	case PanelBreakdown:
		w := vg.Points(18)
		barsA, err := plotter.NewBarChart(plotter.Values(res.BreakdownA), w)
		if err != nil {
			return nil, err
		}
		barsA.Color = steelBlue
		barsA.LineStyle.Width = vg.Length(0)
		barsA.Offset = -w / 2

		barsB, err := plotter.NewBarChart(plotter.Values(res.BreakdownB), w)
		if err != nil {
			return nil, err
		}
		barsB.Color = crimson
		barsB.LineStyle.Width = vg.Length(0)
		barsB.Offset = w / 2

		p.Add(plotter.NewGrid(), barsA, barsB)
		p.Legend.Add(r.a.Label, barsA)
		p.Legend.Add(r.b.Label, barsB)
		p.Legend.Top = true
		p.NominalX(panel.Labels...)

	case PanelBreakdownA, PanelBreakdownB:
		values, fill := res.BreakdownA, steelBlue
		if panel.Kind == PanelBreakdownB {
			values, fill = res.BreakdownB, crimson
		}
		if err := addShareBars(p, values, panel.Labels, fill); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown panel kind %q", panel.Kind)
	}

	return p, nil
}

func (r *ChartRenderer) addLines(p *plot.Plot, yearsA []int, valuesA []float64, yearsB []int, valuesB []float64) error {
	lineA, pointsA, err := plotter.NewLinePoints(yearPoints(yearsA, valuesA))
	if err != nil {
		return err
	}
	lineA.Color = steelBlue
	lineA.Width = vg.Points(2)
	pointsA.Color = steelBlue
	pointsA.Shape = draw.CircleGlyph{}

	lineB, pointsB, err := plotter.NewLinePoints(yearPoints(yearsB, valuesB))
	if err != nil {
		return err
	}
	lineB.Color = crimson
	lineB.Width = vg.Points(2)
	pointsB.Color = crimson
	pointsB.Shape = draw.BoxGlyph{}

	p.Add(plotter.NewGrid(), lineA, pointsA, lineB, pointsB)
	p.Legend.Add(r.a.Label, lineA, pointsA)
	p.Legend.Add(r.b.Label, lineB, pointsB)
	p.Legend.Top = true
	p.Legend.Left = true
	p.X.Tick.Marker = yearTicks(append(append([]int(nil), yearsA...), yearsB...))
	return nil
}

func addShareBars(p *plot.Plot, values []float64, labels []string, fill color.Color) error {
	shares, err := metrics.Shares(values)
	if err != nil {
		return err
	}

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(30))
	if err != nil {
		return err
	}
	bars.Color = fill
	bars.LineStyle.Width = vg.Length(0)
	p.Add(plotter.NewGrid(), bars)
	p.NominalX(labels...)

	maxValue := 0.0
	for _, v := range values {
		if v > maxValue {
			maxValue = v
		}
	}

	xys := make([]plotter.XY, len(values))
	text := make([]string, len(values))
	for i, v := range values {
		xys[i] = plotter.XY{X: float64(i), Y: v + maxValue*0.02}
		text[i] = fmt.Sprintf("%.1f%%", shares[i]*100)
	}
	shareLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: text})
	if err != nil {
		return err
	}
	p.Add(shareLabels)
	p.Y.Max = maxValue * 1.15
	return nil
}

func yearPoints(years []int, values []float64) plotter.XYs {
	points := make(plotter.XYs, len(years))
	for i, year := range years {
		points[i].X = float64(year)
		points[i].Y = values[i]
	}
	return points
}

func yearTicks(years []int) plot.Ticker {
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		seen := make(map[int]bool, len(years))
		var ticks []plot.Tick
		for _, y := range years {
			if seen[y] || float64(y) < min || float64(y) > max {
				continue
			}
			seen[y] = true
			ticks = append(ticks, plot.Tick{Value: float64(y), Label: strconv.Itoa(y)})
		}
		return ticks
	})
}

func allPositive(values []float64) bool {
	for _, v := range values {
		if v <= 0 {
			return false
		}
	}
	return true
}
