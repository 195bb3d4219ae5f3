package agent

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pplcc/plotext"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// EquityChart plots the portfolio value and the number of holdings of every
// simulated day, one above the other on a shared time axis.
type EquityChart struct {
	values   plotter.XYs
	holdings plotter.XYs
	w        int
	h        int
	mu       sync.Mutex
}

func NewEquityChart(w, h int) *EquityChart {
	return &EquityChart{w: w, h: h}
}

func (c *EquityChart) ObserveDay(r DayResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	x := float64(r.Day.Unix())
	c.values = append(c.values, plotter.XY{X: x, Y: r.Value.InexactFloat64()})
	c.holdings = append(c.holdings, plotter.XY{X: x, Y: float64(len(r.Plan))})
	return nil
}

func (c *EquityChart) Write(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.values) == 0 {
		return errors.New("nothing to plot")
	}

	value, err := linePlot("Portfolio value", "$", c.values, color.RGBA{B: 200, A: 255})
	if err != nil {
		return err
	}

	holdings, err := linePlot("Holdings", "symbols", c.holdings, color.RGBA{R: 200, G: 120, A: 255})
	if err != nil {
		return err
	}

	plots := []*plot.Plot{value, holdings}
	heights := []float64{0.7, 0.3}
	plotext.UniteAxisRanges([]*plot.Axis{&value.X, &holdings.X})

	tbl := plotext.Table{
		RowHeights: heights,
		ColWidths:  []float64{1},
	}

	img := vgimg.New(vg.Points(float64(c.w)), vg.Points(float64(c.h)))
	dc := draw.New(img)

	canvases := tbl.Align([][]*plot.Plot{{value}, {holdings}}, dc)
	for i, p := range plots {
		p.Draw(canvases[i][0])
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}

	return nil
}

func (c *EquityChart) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close chart file: %w", cerr))
		}
	}()

	return c.Write(f)
}

func linePlot(title, unit string, xys plotter.XYs, clr color.Color) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = unit
	p.X.Tick.Marker = plot.TimeTicks{Format: time.DateOnly}
	p.Add(plotter.NewGrid())

	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, fmt.Errorf("failed to plot %s: %w", title, err)
	}
	line.LineStyle.Color = clr
	points.GlyphStyle.Color = clr
	points.GlyphStyle.Shape = draw.CircleGlyph{}

	p.Add(line, points)
	return p, nil
}
