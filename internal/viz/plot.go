package viz

import (
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/langevin/internal/dynamo"
)

const PositionCaption = "position vs time"

// PositionPlot charts the positions of traj. The vertical range always
// covers both walls so an absorption is visible at the frame edge.
func PositionPlot(traj *dynamo.Trajectory, wall float64, width, height int) string {
	if traj == nil || traj.Len() == 0 {
		return ""
	}

	return asciigraph.Plot(traj.Positions,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(wall),
		asciigraph.Caption(PositionCaption),
	)
}

// VelocityPlot charts the velocities of traj.
func VelocityPlot(traj *dynamo.Trajectory, width, height int) string {
	if traj == nil || traj.Len() == 0 {
		return ""
	}

	return asciigraph.Plot(traj.Velocities,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("velocity vs time"),
	)
}
