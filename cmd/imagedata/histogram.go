package main

import (
	"github.com/gomlx/imagedata/pkg/data/bundle"
	"github.com/gomlx/imagedata/pkg/support/xslices"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const barWidth = 12 * vg.Millimeter

// classHistogram builds a bar chart with the number of samples per class of the train and validation
// splits.
func classHistogram(b *bundle.Bundle) (*plot.Plot, error) {
	if b.IsRegression() {
		return nil, errors.New("class histogram not available for regression data")
	}
	numClasses := len(b.Classes())
	p := plot.New()
	p.Title.Text = "Class distribution"
	p.Y.Label.Text = "# samples"
	splits := []struct {
		name   string
		counts []int
	}{
		{"train", classCounts(b.TrainLabels(), numClasses)},
		{"valid", classCounts(b.ValidLabels(), numClasses)},
	}
	for ii, split := range splits {
		values := plotter.Values(xslices.Map(split.counts, func(c int) float64 { return float64(c) }))
		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return nil, errors.Wrapf(err, "bar chart of split %q", split.name)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(ii)
		bars.Offset = vg.Length(ii-len(splits)/2) * barWidth
		p.Add(bars)
		p.Legend.Add(split.name, bars)
	}
	p.Legend.Top = true
	p.NominalX(b.Classes()...)
	return p, nil
}

// writeHistogram saves the class histogram of the bundle as a PNG file.
func writeHistogram(fs afero.Fs, filePath string, b *bundle.Bundle) error {
	p, err := classHistogram(b)
	if err != nil {
		return err
	}
	width := vg.Length(len(b.Classes())+2) * 3 * barWidth
	if width < 10*vg.Centimeter {
		width = 10 * vg.Centimeter
	}
	writer, err := p.WriterTo(width, 8*vg.Centimeter, "png")
	if err != nil {
		return errors.Wrapf(err, "rendering class histogram")
	}
	f, err := fs.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "creating %q", filePath)
	}
	if _, err = writer.WriteTo(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "writing %q", filePath)
	}
	return errors.Wrapf(f.Close(), "closing %q", filePath)
}
