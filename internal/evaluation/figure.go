package evaluation

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"bczsl/internal/artifact"
)

// FigureWriter renders a confusion matrix to path.
type FigureWriter interface {
	WriteConfusion(path string, cm [][]int, names []string) error
}

// PlotWriter draws a heat map PNG.
type PlotWriter struct {
	Width, Height vg.Length
}

// TextWriter dumps the matrix as a bordered text table.
type TextWriter struct{}

type confusionGrid struct {
	cm [][]int
}

func (g confusionGrid) Dims() (c, r int) { return len(g.cm), len(g.cm) }

// Row 0 is drawn at the top.
func (g confusionGrid) Z(c, r int) float64 { return float64(g.cm[len(g.cm)-1-r][c]) }
func (g confusionGrid) X(c int) float64    { return float64(c) }
func (g confusionGrid) Y(r int) float64    { return float64(r) }

// WriteConfusion implements FigureWriter.
func (w PlotWriter) WriteConfusion(path string, cm [][]int, names []string) (err error) {
	if len(cm) == 0 {
		return fmt.Errorf("figure: empty confusion matrix")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("figure: plot: %v", r)
		}
	}()
	width, height := w.Width, w.Height
	if width == 0 {
		width = 5 * vg.Inch
	}
	if height == 0 {
		height = 5 * vg.Inch
	}

	p := plot.New()
	p.Title.Text = "Confusion matrix"
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "True"

	grid := confusionGrid{cm: cm}
	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	n := len(cm)
	var xys plotter.XYs
	var texts []string
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(n - 1 - r)})
			texts = append(texts, strconv.Itoa(cm[r][c]))
		}
	}
	lbls, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return fmt.Errorf("figure: labels: %w", err)
	}
	p.Add(lbls)

	axis := axisNames(names, n)
	p.NominalX(axis...)
	reversed := make([]string, n)
	for i, s := range axis {
		reversed[n-1-i] = s
	}
	p.NominalY(reversed...)

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("figure: canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("figure: encode png: %w", err)
	}
	return artifact.WriteFile(path, buf.Bytes())
}

// WriteConfusion implements FigureWriter.
func (TextWriter) WriteConfusion(path string, cm [][]int, names []string) error {
	return artifact.WriteFile(path, []byte(RenderConfusion(cm, names)+"\n"))
}

// RenderConfusion renders cm with true labels as rows and predicted labels as
// columns.
func RenderConfusion(cm [][]int, names []string) string {
	axis := axisNames(names, len(cm))
	headers := append([]string{"true \\ pred"}, axis...)
	rows := make([][]string, len(cm))
	for i, row := range cm {
		cells := []string{axis[i]}
		for _, v := range row {
			cells = append(cells, strconv.Itoa(v))
		}
		rows[i] = cells
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		Render()
}

func axisNames(names []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(names) && names[i] != "" {
			out[i] = names[i]
		} else {
			out[i] = strconv.Itoa(i)
		}
	}
	return out
}

// SaveFigure writes the confusion matrix with primary and, if that fails,
// falls back to a text dump next to path. It returns the path actually
// written.
func SaveFigure(primary FigureWriter, path string, cm [][]int, names []string) (string, error) {
	if primary != nil {
		err := primary.WriteConfusion(path, cm, names)
		if err == nil {
			return path, nil
		}
		slog.Warn("confusion matrix figure unavailable, writing text dump instead", "path", path, "error", err)
	}
	fallback := textPath(path)
	if err := (TextWriter{}).WriteConfusion(fallback, cm, names); err != nil {
		return "", fmt.Errorf("figure: text fallback: %w", err)
	}
	return fallback, nil
}

func textPath(path string) string {
	if strings.HasSuffix(path, ".txt") {
		return path
	}
	return path + ".txt"
}
