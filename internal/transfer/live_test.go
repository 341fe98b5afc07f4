package transfer

import (
	"math"
	"testing"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/types"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/waypoint"
)

type liveRecorder struct {
	types.NopNotifier
	distances []float64
	currents  []uint16
	reached   []uint16
	statuses  []string
}

func (r *liveRecorder) WaypointDistanceChanged(d float64) { r.distances = append(r.distances, d) }

func (r *liveRecorder) CurrentWaypointChanged(s uint16) { r.currents = append(r.currents, s) }

func (r *liveRecorder) WaypointReached(s uint16) { r.reached = append(r.reached, s) }

func (r *liveRecorder) StatusChanged(s string) { r.statuses = append(r.statuses, s) }

func TestLocalDistance(t *testing.T) {
	lists := waypoint.NewDualList()
	rec := &liveRecorder{}
	l := NewLiveSignals(vehicleID, lists, rec)

	lists.AddEditable(&waypoint.Waypoint{
		Frame:   common.MAV_FRAME_LOCAL_NED,
		Command: common.MAV_CMD_NAV_WAYPOINT,
		X:       3, Y: 4, Z: 0,
	}, true)

	l.HandleLocalPosition(types.LocalPositionEvent{SystemID: vehicleID, X: 0, Y: 0, Z: 0})
	if len(rec.distances) != 1 {
		t.Fatal("no distance published")
	}
	if math.Abs(rec.distances[0]-5) > 1e-9 {
		t.Errorf("distance %f, want 5", rec.distances[0])
	}
}

func TestLocalDistanceIgnoredWithoutLocalCurrent(t *testing.T) {
	lists := waypoint.NewDualList()
	rec := &liveRecorder{}
	l := NewLiveSignals(vehicleID, lists, rec)

	// No current editable at all.
	l.HandleLocalPosition(types.LocalPositionEvent{SystemID: vehicleID, X: 1, Y: 1, Z: 1})

	// Current editable in a global frame.
	lists.AddEditable(&waypoint.Waypoint{
		Frame:   common.MAV_FRAME_GLOBAL_RELATIVE_ALT,
		Command: common.MAV_CMD_NAV_WAYPOINT,
	}, true)
	l.HandleLocalPosition(types.LocalPositionEvent{SystemID: vehicleID, X: 1, Y: 1, Z: 1})

	if len(rec.distances) != 0 {
		t.Errorf("%d distances published, want 0", len(rec.distances))
	}
}

func TestGlobalDistance(t *testing.T) {
	lists := waypoint.NewDualList()
	rec := &liveRecorder{}
	l := NewLiveSignals(vehicleID, lists, rec)

	lists.AddEditable(&waypoint.Waypoint{
		Frame:   common.MAV_FRAME_GLOBAL_RELATIVE_ALT,
		Command: common.MAV_CMD_NAV_WAYPOINT,
		X:       47.398, Y: 8.5456, Z: 10,
	}, true)

	l.HandleGlobalPosition(types.GlobalPositionEvent{
		SystemID: vehicleID, Lat: 47.397742, Lon: 8.545594, Alt: 10,
	})
	if len(rec.distances) != 1 {
		t.Fatal("no distance published")
	}
	// Roughly 29 m north plus a fraction of a metre east.
	if rec.distances[0] < 20 || rec.distances[0] > 40 {
		t.Errorf("distance %f, want around 29 m", rec.distances[0])
	}
}

func TestCurrentChangedDeduplicated(t *testing.T) {
	lists := waypoint.NewDualList()
	rec := &liveRecorder{}
	l := NewLiveSignals(vehicleID, lists, rec)

	l.HandleCurrent(types.CurrentEvent{SystemID: vehicleID, Seq: 2})
	l.HandleCurrent(types.CurrentEvent{SystemID: vehicleID, Seq: 2})
	l.HandleCurrent(types.CurrentEvent{SystemID: vehicleID, Seq: 3})
	l.HandleCurrent(types.CurrentEvent{SystemID: vehicleID + 1, Seq: 4})

	want := []uint16{2, 3}
	if len(rec.currents) != len(want) {
		t.Fatalf("currents %v, want %v", rec.currents, want)
	}
	for i := range want {
		if rec.currents[i] != want[i] {
			t.Errorf("currents[%d] = %d, want %d", i, rec.currents[i], want[i])
		}
	}
}

func TestReachedPublishesStatus(t *testing.T) {
	lists := waypoint.NewDualList()
	rec := &liveRecorder{}
	l := NewLiveSignals(vehicleID, lists, rec)

	l.HandleReached(types.ReachedEvent{SystemID: vehicleID, Seq: 4})
	l.HandleReached(types.ReachedEvent{SystemID: vehicleID + 1, Seq: 9})

	if len(rec.reached) != 1 || rec.reached[0] != 4 {
		t.Fatalf("reached %v, want [4]", rec.reached)
	}
	if len(rec.statuses) != 1 || rec.statuses[0] != "Reached waypoint 4" {
		t.Errorf("statuses %v", rec.statuses)
	}
}
