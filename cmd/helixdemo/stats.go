package main

import (
	"fmt"
	"io"

	"github.com/Carmen-Shannon/helix/engine/renderer"
	"github.com/aquasecurity/table"
)

// writeStats prints the renderer counters as a two column table.
func writeStats(w io.Writer, s renderer.FrameStats, ticks uint64) {
	tbl := table.New(w)
	tbl.SetBorders(false)
	tbl.SetHeaders("Counter", "Value")

	tbl.AddRow("ticks", fmt.Sprint(ticks))
	tbl.AddRow("frames", fmt.Sprint(s.Frames))
	tbl.AddRow("gbuffer draws", fmt.Sprint(s.Draws))
	tbl.AddRow("gbuffer indices", fmt.Sprint(s.Indices))
	tbl.AddRow("light draws", fmt.Sprint(s.LightDraws))
	tbl.AddRow("skipped lights", fmt.Sprint(s.SkippedLights))
	tbl.AddRow("present errors", fmt.Sprint(s.PresentErrors))
	tbl.AddRow("last frame", s.LastFrame.String())
	tbl.AddRow("submitted", fmt.Sprint(s.Queue.Submitted))
	tbl.AddRow("rejected", fmt.Sprint(s.Queue.Rejected))
	tbl.AddRow("released", fmt.Sprint(s.Queue.Released))
	tbl.AddRow("released at shutdown", fmt.Sprint(s.ShutdownReleased))

	tbl.Render()
}
