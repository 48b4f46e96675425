package report

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/euzop/Powerlift/internal/session"
)

// ErrEmptyTrajectory is returned when there is nothing to plot.
var ErrEmptyTrajectory = errors.New("report: trajectory has no observed points")

var (
	hipColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	barColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	repColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

// SavePlot writes a plot of hip height and bar x position per frame, with a
// dashed marker at each counted rep. The image format follows the extension
// of path. The y axis is inverted so that up in the plot is up in the frame.
func SavePlot(path string, traj session.Trajectory) error {
	hipPts := make(plotter.XYs, 0, len(traj.Points))
	barPts := make(plotter.XYs, 0, len(traj.Points))
	for _, p := range traj.Points {
		if p.HipOK {
			hipPts = append(hipPts, plotter.XY{X: float64(p.Frame), Y: p.HipY})
		}
		if p.BarOK {
			barPts = append(barPts, plotter.XY{X: float64(p.Frame), Y: p.BarX})
		}
	}
	if len(hipPts) == 0 && len(barPts) == 0 {
		return ErrEmptyTrajectory
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Lift Trajectory - %d reps", len(traj.RepMarkers))
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Normalized position"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	if len(hipPts) > 0 {
		hipLine, err := plotter.NewLine(hipPts)
		if err != nil {
			return err
		}
		hipLine.Color = hipColor
		hipLine.Width = vg.Points(1.5)
		p.Add(hipLine)
		p.Legend.Add("hip y", hipLine)
	}

	if len(barPts) > 0 {
		barLine, err := plotter.NewLine(barPts)
		if err != nil {
			return err
		}
		barLine.Color = barColor
		barLine.Width = vg.Points(1)
		p.Add(barLine)
		p.Legend.Add("bar x", barLine)
	}

	lo, hi := yRange(hipPts, barPts)
	for _, frame := range traj.RepMarkers {
		marker, err := plotter.NewLine(plotter.XYs{
			{X: float64(frame), Y: lo},
			{X: float64(frame), Y: hi},
		})
		if err != nil {
			return err
		}
		marker.Color = repColor
		marker.Width = vg.Points(0.5)
		marker.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(marker)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

func yRange(sets ...plotter.XYs) (lo, hi float64) {
	var ys []float64
	for _, s := range sets {
		for _, pt := range s {
			ys = append(ys, pt.Y)
		}
	}
	return floats.Min(ys), floats.Max(ys)
}
