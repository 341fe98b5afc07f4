package waypoint

import (
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
)

// Recommender derives frame, altitude and acceptance-radius defaults for a
// freshly created editable waypoint from the tail of the draft list.
type Recommender struct {
	list          *List
	online        func() bool
	defaultRelAlt func() float64
	defaultRadius float64
}

func NewRecommender(list *List, online func() bool, defaultRelAlt func() float64) *Recommender {
	return &Recommender{
		list:          list,
		online:        online,
		defaultRelAlt: defaultRelAlt,
		defaultRadius: DefaultAcceptanceRadius,
	}
}

// Frame recommendation. The first waypoint of an offline draft is the home
// position and uses the absolute global frame; later waypoints inherit from
// the last item once the list has two or more.
func (r *Recommender) Frame() common.MAV_FRAME {
	n := r.list.Len()
	if !r.online() {
		if n == 0 {
			return common.MAV_FRAME_GLOBAL
		}
		if n > 1 {
			return r.list.At(n - 1).Frame
		}
		return common.MAV_FRAME_GLOBAL_RELATIVE_ALT
	}
	if n > 1 {
		return r.list.At(n - 1).Frame
	}
	return common.MAV_FRAME_GLOBAL_RELATIVE_ALT
}

func (r *Recommender) Altitude(frame common.MAV_FRAME) float64 {
	n := r.list.Len()
	last := r.list.At(n - 1)
	if frame == common.MAV_FRAME_GLOBAL {
		switch {
		case n == 1:
			return float64(last.Z) + r.defaultRelAlt()
		case n > 1:
			return float64(last.Z)
		default:
			return 0
		}
	}
	switch {
	case n == 1:
		return r.defaultRelAlt()
	case n > 1:
		return float64(last.Z)
	default:
		return 0
	}
}

func (r *Recommender) AcceptanceRadius() float64 {
	if n := r.list.Len(); n > 0 {
		return r.list.At(n - 1).AcceptanceRadius()
	}
	return r.defaultRadius
}

// Apply stamps the recommendations onto a new waypoint. The radius is
// stored in param2 and only for navigation commands; a non-navigation
// waypoint keeps its param2 and records no radius.
func (r *Recommender) Apply(wp *Waypoint) {
	wp.Frame = r.Frame()
	wp.Z = float32(r.Altitude(wp.Frame))
	wp.SetAcceptanceRadius(r.AcceptanceRadius())
}
