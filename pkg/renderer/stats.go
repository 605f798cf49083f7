package renderer

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Stats contains counters updated by all workers during a render
type Stats struct {
	tasks          atomic.Int64
	directPasses   atomic.Int64
	hemiPoints     atomic.Int64
	nullHemiPoints atomic.Int64
	predictions    atomic.Int64
	pixels         atomic.Int64
	pixelsSkipped  atomic.Int64
	samples        atomic.Int64
	sanitized      atomic.Int64
	predictNanos   atomic.Int64
	captureNanos   atomic.Int64
}

// RenderStats is a point-in-time copy of Stats
type RenderStats struct {
	Tasks          int           // Indirect tasks completed
	DirectPasses   int           // Direct passes completed
	HemiPoints     int           // Hemi points with a prediction
	NullHemiPoints int           // Hemi points without a usable surface
	Predictions    int           // Predictor round trips
	Pixels         int           // Indirect pixels accumulated
	PixelsSkipped  int           // Indirect pixels without a diffuse hit
	Samples        int           // Hemi lookups drawn
	Sanitized      int           // Direct samples replaced with black
	CaptureTime    time.Duration // Time spent capturing hemispheres, summed over workers
	PredictTime    time.Duration // Time spent in the predictor, summed over workers
	Elapsed        time.Duration // Wall clock time of the render
}

// Snapshot copies the counters
func (s *Stats) Snapshot() RenderStats {
	return RenderStats{
		Tasks:          int(s.tasks.Load()),
		DirectPasses:   int(s.directPasses.Load()),
		HemiPoints:     int(s.hemiPoints.Load()),
		NullHemiPoints: int(s.nullHemiPoints.Load()),
		Predictions:    int(s.predictions.Load()),
		Pixels:         int(s.pixels.Load()),
		PixelsSkipped:  int(s.pixelsSkipped.Load()),
		Samples:        int(s.samples.Load()),
		Sanitized:      int(s.sanitized.Load()),
		CaptureTime:    time.Duration(s.captureNanos.Load()),
		PredictTime:    time.Duration(s.predictNanos.Load()),
	}
}

// AverageSamples returns the mean number of hemi lookups per shaded pixel
func (rs RenderStats) AverageSamples() float64 {
	if rs.Pixels == 0 {
		return 0
	}
	return float64(rs.Samples) / float64(rs.Pixels)
}

// WriteTable renders the statistics as a two column table
func (rs RenderStats) WriteTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Statistic", "Value"})
	table.Append([]string{"Indirect tasks", fmt.Sprint(rs.Tasks)})
	table.Append([]string{"Direct passes", fmt.Sprint(rs.DirectPasses)})
	table.Append([]string{"Hemi points", fmt.Sprintf("%d (%d null)", rs.HemiPoints+rs.NullHemiPoints, rs.NullHemiPoints)})
	table.Append([]string{"Predictions", fmt.Sprint(rs.Predictions)})
	table.Append([]string{"Pixels shaded", fmt.Sprintf("%d (%d skipped)", rs.Pixels, rs.PixelsSkipped)})
	table.Append([]string{"Samples per pixel", fmt.Sprintf("%.2f", rs.AverageSamples())})
	table.Append([]string{"Sanitized samples", fmt.Sprint(rs.Sanitized)})
	table.Append([]string{"Capture time", rs.CaptureTime.Round(time.Millisecond).String()})
	table.Append([]string{"Predict time", rs.PredictTime.Round(time.Millisecond).String()})
	table.Append([]string{"Elapsed", rs.Elapsed.Round(time.Millisecond).String()})
	table.Render()
}
