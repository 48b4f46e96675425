// Package report renders finished sessions as an HTML chart page and as a
// static trajectory plot.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/euzop/Powerlift/internal/formcheck"
	"github.com/euzop/Powerlift/internal/scoring"
	"github.com/euzop/Powerlift/internal/session"
)

// radarAxes are the score axes in display order.
var radarAxes = []string{"Knee Alignment", "Spine Alignment", "Hip Stability", "Bar Path", "Overall"}

// WriteHTML renders the summary and trajectory as a single HTML page with a
// score radar, a hip trajectory line marked at every rep, and an error
// occurrence bar chart.
func WriteHTML(w io.Writer, sum session.Summary, traj session.Trajectory) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s session %s", sum.Exercise, sum.SessionID)
	page.AddCharts(
		scoreRadar(sum),
		trajectoryLine(traj),
		errorBar(sum),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func scoreRadar(sum session.Summary) *charts.Radar {
	indicators := make([]*opts.Indicator, len(radarAxes))
	for i, name := range radarAxes {
		indicators[i] = &opts.Indicator{Name: name, Max: 100}
	}

	subtitle := fmt.Sprintf("reps=%d barbell=%.0f%%", sum.RepCount, 100*sum.BarbellDetectionRate)
	switch {
	case sum.InsufficientData:
		subtitle += " (insufficient data)"
	case sum.CannotAssess:
		subtitle += " (cannot assess)"
	}

	radar := charts.NewRadar()
	radar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Form Scores", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithRadarComponentOpts(opts.RadarComponent{Indicator: indicators, Shape: "polygon"}),
	)
	radar.AddSeries("final", []opts.RadarData{{Name: "final", Value: scoreValues(sum.Scores)}})
	radar.AddSeries("smoothed", []opts.RadarData{{Name: "smoothed", Value: scoreValues(sum.Smoothed)}})
	return radar
}

func scoreValues(s scoring.Scores) []float64 {
	return []float64{s.KneeAlignment, s.SpineAlignment, s.HipStability, s.BarPathEfficiency, s.Overall}
}

func trajectoryLine(traj session.Trajectory) *charts.Line {
	x := make([]string, len(traj.Points))
	hip := make([]opts.LineData, len(traj.Points))
	bar := make([]opts.LineData, len(traj.Points))
	for i, p := range traj.Points {
		x[i] = strconv.Itoa(p.Frame)
		// "-" leaves a gap where the joint or bar was not seen.
		hip[i] = opts.LineData{Value: "-"}
		if p.HipOK {
			hip[i] = opts.LineData{Value: p.HipY}
		}
		bar[i] = opts.LineData{Value: "-"}
		if p.BarOK {
			bar[i] = opts.LineData{Value: p.BarY}
		}
	}

	marks := make([]charts.SeriesOpts, 0, len(traj.RepMarkers))
	for i, frame := range traj.RepMarkers {
		marks = append(marks, charts.WithMarkLineNameXAxisItemOpts(opts.MarkLineNameXAxisItem{
			Name:  fmt.Sprintf("rep %d", i+1),
			XAxis: strconv.Itoa(frame),
		}))
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Trajectory", Subtitle: fmt.Sprintf("%d reps", len(traj.RepMarkers))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "image y"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(x).
		AddSeries("hip height", hip, marks...).
		AddSeries("bar height", bar)
	return line
}

func errorBar(sum session.Summary) *charts.Bar {
	counts := make(map[formcheck.Kind]int, formcheck.NumKinds)
	for _, ks := range sum.Errors {
		counts[ks.Kind] = ks.Occurrences
	}

	x := make([]string, 0, formcheck.NumKinds)
	y := make([]opts.BarData, 0, formcheck.NumKinds)
	for _, k := range formcheck.Kinds() {
		x = append(x, k.String())
		y = append(y, opts.BarData{Value: counts[k]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Form Errors", Subtitle: fmt.Sprintf("%d frames", sum.FramesProcessed)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("occurrences", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}
