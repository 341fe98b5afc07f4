package waypoint

import (
	"fmt"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
)

// DefaultAcceptanceRadius is used when a list has no last waypoint to
// inherit the radius from.
const DefaultAcceptanceRadius = 5.0

// Waypoint is one entry in an ordered mission. X and Y are latitude and
// longitude in decimal degrees for global frames, metres for local frames.
// Z is altitude (or local down/up) and is a float on the wire in both
// encodings.
type Waypoint struct {
	Seq          uint16
	Frame        common.MAV_FRAME
	Command      common.MAV_CMD
	Param1       float32
	Param2       float32
	Param3       float32
	Param4       float32
	X            float64
	Y            float64
	Z            float32
	Autocontinue bool
	Current      bool
}

// New returns a waypoint with the manager-wide defaults that do not depend
// on list state. Frame, altitude and radius recommendations are applied by
// the caller.
func New() *Waypoint {
	return &Waypoint{
		Command:      common.MAV_CMD_NAV_WAYPOINT,
		Autocontinue: true,
	}
}

func (w *Waypoint) IsGlobalFrame() bool {
	return w.Frame == common.MAV_FRAME_GLOBAL || w.Frame == common.MAV_FRAME_GLOBAL_RELATIVE_ALT
}

func (w *Waypoint) IsLocalFrame() bool {
	return w.Frame == common.MAV_FRAME_LOCAL_NED || w.Frame == common.MAV_FRAME_LOCAL_ENU
}

// IsNavigationCommand reports whether the command is a position target
// rather than a camera/servo style action.
func (w *Waypoint) IsNavigationCommand() bool {
	return w.Command < common.MAV_CMD_NAV_LAST
}

// AcceptanceRadius is carried in param2 for navigation commands.
func (w *Waypoint) AcceptanceRadius() float64 {
	if w.IsNavigationCommand() {
		return float64(w.Param2)
	}
	return 0
}

func (w *Waypoint) SetAcceptanceRadius(r float64) {
	if w.IsNavigationCommand() {
		w.Param2 = float32(r)
	}
}

func (w *Waypoint) String() string {
	return fmt.Sprintf("WP %d: frame=%d cmd=%d x=%f y=%f z=%f current=%t",
		w.Seq, w.Frame, w.Command, w.X, w.Y, w.Z, w.Current)
}
