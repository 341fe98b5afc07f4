package wire

import (
	"math"
	"testing"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/waypoint"
)

func TestDegreeFixedPointRoundTrip(t *testing.T) {
	degrees := []float64{0, 47.397742, -8.545594, 89.9999999, -179.9999999, 180}
	for _, deg := range degrees {
		got := fixedToDeg(degToFixed(deg))
		if math.Abs(got-deg) > 1e-7 {
			t.Errorf("deg %v round-trips to %v", deg, got)
		}
	}
}

func TestFixedPointIdentityOnWireValues(t *testing.T) {
	// encode ∘ decode must be the identity on the wire integers.
	values := []int32{0, 1, -1, 473977420, -85455940, 900000000, -1800000000}
	for _, v := range values {
		if got := degToFixed(fixedToDeg(v)); got != v {
			t.Errorf("wire value %d round-trips to %d", v, got)
		}
	}
}

func TestItemToIntGlobalFrame(t *testing.T) {
	wp := &waypoint.Waypoint{
		Seq:          3,
		Frame:        common.MAV_FRAME_GLOBAL_RELATIVE_ALT,
		Command:      common.MAV_CMD_NAV_WAYPOINT,
		X:            47.397742,
		Y:            8.545594,
		Z:            10,
		Current:      true,
		Autocontinue: true,
	}
	m := ItemToInt(wp, 1, 190)
	if m.X != 473977420 || m.Y != 85455940 {
		t.Errorf("fixed-point x/y = %d/%d", m.X, m.Y)
	}
	if m.Z != 10 {
		t.Errorf("z = %f, want unscaled 10", m.Z)
	}
	if m.Current != 1 || m.Autocontinue != 1 {
		t.Error("flags not encoded")
	}
	if m.MissionType != common.MAV_MISSION_TYPE_MISSION {
		t.Error("mission type not set")
	}

	back := IntToItem(m)
	if math.Abs(back.X-wp.X) > 1e-7 || math.Abs(back.Y-wp.Y) > 1e-7 {
		t.Errorf("decode drifted: %v/%v", back.X, back.Y)
	}
}

func TestItemToIntLocalFrameUnscaled(t *testing.T) {
	wp := &waypoint.Waypoint{
		Frame:   common.MAV_FRAME_LOCAL_NED,
		Command: common.MAV_CMD_NAV_WAYPOINT,
		X:       25,
		Y:       -7,
		Z:       -10,
	}
	m := ItemToInt(wp, 1, 190)
	if m.X != 25 || m.Y != -7 {
		t.Errorf("local frame scaled: x/y = %d/%d", m.X, m.Y)
	}

	back := IntToItem(m)
	if back.X != 25 || back.Y != -7 {
		t.Errorf("local decode scaled: %v/%v", back.X, back.Y)
	}
}

func TestIntToFloatDownconversion(t *testing.T) {
	wp := &waypoint.Waypoint{
		Frame:   common.MAV_FRAME_GLOBAL,
		Command: common.MAV_CMD_NAV_WAYPOINT,
		X:       47.397742,
		Y:       8.545594,
		Z:       488,
	}
	f := IntToFloat(ItemToInt(wp, 1, 190))
	if math.Abs(float64(f.X)-wp.X) > 1e-4 || math.Abs(float64(f.Y)-wp.Y) > 1e-4 {
		t.Errorf("float form x/y = %f/%f", f.X, f.Y)
	}
	if f.Z != 488 {
		t.Errorf("z = %f, want 488", f.Z)
	}

	local := &waypoint.Waypoint{Frame: common.MAV_FRAME_LOCAL_ENU, X: 12, Y: 34, Z: 5}
	lf := IntToFloat(ItemToInt(local, 1, 190))
	if lf.X != 12 || lf.Y != 34 {
		t.Errorf("local float form scaled: %f/%f", lf.X, lf.Y)
	}
}

func TestGotoItemMarksGuided(t *testing.T) {
	wp := &waypoint.Waypoint{
		Seq:          9,
		Frame:        common.MAV_FRAME_GLOBAL_RELATIVE_ALT,
		Command:      common.MAV_CMD_NAV_WAYPOINT,
		X:            47.4,
		Y:            8.5,
		Z:            25,
		Autocontinue: true,
	}
	m := GotoItem(wp, 1, 190)
	if m.Seq != 0 {
		t.Errorf("seq = %d, want 0", m.Seq)
	}
	if m.Current != 2 {
		t.Errorf("current = %d, want guided marker 2", m.Current)
	}
	if m.Autocontinue != 0 {
		t.Error("autocontinue set on a guided target")
	}
}
