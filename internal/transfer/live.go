package transfer

import (
	"fmt"
	"log"
	"math"

	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/types"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/waypoint"
)

// No real mission holds 65534 waypoints, so the value doubles as the
// "nothing reported yet" sentinel.
const noSeqReported = 65534

const earthRadiusM = 6371000.0

// LiveSignals turns raw vehicle telemetry into derived mission signals:
// distance to the current editable waypoint, deduplicated current-changed
// notifications and reached notices.
type LiveSignals struct {
	uasID  uint8
	lists  *waypoint.DualList
	notify types.Notifier

	seqReported uint16
}

func NewLiveSignals(uasID uint8, lists *waypoint.DualList, notify types.Notifier) *LiveSignals {
	if notify == nil {
		notify = types.NopNotifier{}
	}
	return &LiveSignals{
		uasID:       uasID,
		lists:       lists,
		notify:      notify,
		seqReported: noSeqReported,
	}
}

// HandleLocalPosition publishes 3D Euclidean distance to the current
// editable waypoint while it is in a local frame.
func (l *LiveSignals) HandleLocalPosition(ev types.LocalPositionEvent) {
	wp := l.lists.CurrentEditable()
	if wp == nil || !wp.IsLocalFrame() {
		return
	}
	dx := ev.X - wp.X
	dy := ev.Y - wp.Y
	dz := ev.Z - float64(wp.Z)
	l.notify.WaypointDistanceChanged(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

// HandleGlobalPosition publishes great-circle distance with altitude
// correction to the current editable waypoint while it is in a global
// frame.
func (l *LiveSignals) HandleGlobalPosition(ev types.GlobalPositionEvent) {
	wp := l.lists.CurrentEditable()
	if wp == nil || !wp.IsGlobalFrame() {
		return
	}
	ground := greatCircle(ev.Lat, ev.Lon, wp.X, wp.Y)
	dalt := ev.Alt - float64(wp.Z)
	l.notify.WaypointDistanceChanged(math.Sqrt(ground*ground + dalt*dalt))
}

// HandleCurrent publishes a current-changed signal once per sequence.
func (l *LiveSignals) HandleCurrent(ev types.CurrentEvent) {
	if ev.SystemID != l.uasID {
		return
	}
	if ev.Seq == l.seqReported {
		return
	}
	l.seqReported = ev.Seq
	log.Printf("new current waypoint %d", ev.Seq)
	l.notify.CurrentWaypointChanged(ev.Seq)
}

// HandleReached reports waypoint arrival as a status message.
func (l *LiveSignals) HandleReached(ev types.ReachedEvent) {
	if ev.SystemID != l.uasID {
		return
	}
	l.notify.WaypointReached(ev.Seq)
	l.notify.StatusChanged(fmt.Sprintf("Reached waypoint %d", ev.Seq))
}

// Reset forgets the last reported sequence, e.g. after a new download.
func (l *LiveSignals) Reset() {
	l.seqReported = noSeqReported
}

// greatCircle returns the haversine ground distance in metres between two
// lat/lon pairs in decimal degrees.
func greatCircle(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180.0
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dphi := (lat2 - lat1) * degToRad
	dlambda := (lon2 - lon1) * degToRad

	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dlambda/2)*math.Sin(dlambda/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
