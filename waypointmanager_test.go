package waypointmanager

import (
	"path/filepath"
	"testing"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/types"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/waypoint"
)

type nullSender struct{}

func (nullSender) Send(message.Message) error { return nil }

type facadeRecorder struct {
	types.NopNotifier
	offlineNotices int
	listChanges    int
}

func (r *facadeRecorder) OfflineEditingStarted() { r.offlineNotices++ }
func (r *facadeRecorder) EditableListChanged()   { r.listChanges++ }

func newTestManager(rec *facadeRecorder) *Manager {
	if rec == nil {
		rec = &facadeRecorder{}
	}
	return New(Config{
		VehicleSystemID: 1,
		Sender:          nullSender{},
		Notifier:        rec,
	})
}

func goOnline(m *Manager) {
	m.HandleEvent(types.HeartbeatEvent{SystemID: 1, Autopilot: common.MAV_AUTOPILOT_ARDUPILOTMEGA})
}

func TestCreateWaypointSeqInvariant(t *testing.T) {
	m := newTestManager(nil)
	goOnline(m)

	for i := 0; i < 4; i++ {
		m.CreateWaypoint(i == 0)
	}
	if m.Count() != 4 {
		t.Fatalf("count %d, want 4", m.Count())
	}
	for i := 0; i < 4; i++ {
		if wp := m.Get(i); int(wp.Seq) != i {
			t.Errorf("Get(%d).Seq = %d", i, wp.Seq)
		}
	}
	if cur := m.CurrentEditable(); cur != m.Get(0) {
		t.Error("first created waypoint not current")
	}
}

func TestOfflineNoticeIsOneShot(t *testing.T) {
	rec := &facadeRecorder{}
	m := newTestManager(rec)

	m.CreateWaypoint(false)
	m.ClearEditableList()
	m.CreateWaypoint(false)

	if rec.offlineNotices != 1 {
		t.Errorf("%d offline notices, want 1", rec.offlineNotices)
	}
}

func TestOfflineNoticeSuppressedOnline(t *testing.T) {
	rec := &facadeRecorder{}
	m := newTestManager(rec)
	goOnline(m)

	m.CreateWaypoint(false)
	if rec.offlineNotices != 0 {
		t.Errorf("%d offline notices for an online manager", rec.offlineNotices)
	}
}

func TestGetStrictBounds(t *testing.T) {
	m := newTestManager(nil)
	goOnline(m)
	m.CreateWaypoint(false)

	if m.Get(-1) != nil {
		t.Error("Get(-1) returned an item")
	}
	if m.Get(1) != nil {
		t.Error("Get(count) returned an item")
	}
	if m.Get(0) == nil {
		t.Error("Get(0) returned nil")
	}
}

func TestFilteredEnumerationsAndIndexOf(t *testing.T) {
	m := newTestManager(nil)
	goOnline(m)

	global := &waypoint.Waypoint{
		Frame: common.MAV_FRAME_GLOBAL, Command: common.MAV_CMD_NAV_WAYPOINT,
	}
	servo := &waypoint.Waypoint{
		Frame: common.MAV_FRAME_GLOBAL, Command: common.MAV_CMD_DO_SET_SERVO,
	}
	local := &waypoint.Waypoint{
		Frame: common.MAV_FRAME_LOCAL_NED, Command: common.MAV_CMD_NAV_WAYPOINT,
	}
	mission := &waypoint.Waypoint{
		Frame: common.MAV_FRAME_MISSION, Command: common.MAV_CMD_DO_JUMP,
	}
	for _, wp := range []*waypoint.Waypoint{global, servo, local, mission} {
		m.AddEditable(wp, false)
	}

	if got := len(m.GlobalFrameWaypoints()); got != 2 {
		t.Errorf("%d global-frame items, want 2", got)
	}
	if got := len(m.NavWaypoints()); got != 2 {
		t.Errorf("%d nav items, want 2", got)
	}
	if got := len(m.GlobalFrameAndNavWaypoints()); got != 1 {
		t.Errorf("%d global+nav items, want 1", got)
	}
	if got := len(m.LocalFrameWaypoints()); got != 1 {
		t.Errorf("%d local items, want 1", got)
	}

	if got := m.GlobalFrameIndexOf(servo); got != 1 {
		t.Errorf("global index of servo item %d, want 1", got)
	}
	if got := m.NavIndexOf(local); got != 1 {
		t.Errorf("nav index of local item %d, want 1", got)
	}
	if got := m.GlobalFrameAndNavIndexOf(global); got != 0 {
		t.Errorf("global+nav index %d, want 0", got)
	}
	if got := m.LocalFrameIndexOf(global); got != -1 {
		t.Errorf("local index of a global item %d, want -1", got)
	}
	if got := m.MissionFrameIndexOf(mission); got != 0 {
		t.Errorf("mission-frame index %d, want 0", got)
	}
	if got := m.IndexOf(mission); got != 3 {
		t.Errorf("plain index %d, want 3", got)
	}

	outsider := &waypoint.Waypoint{}
	if got := m.IndexOf(outsider); got != -1 {
		t.Errorf("index of a foreign item %d, want -1", got)
	}
}

func TestTransfersRejectedOffline(t *testing.T) {
	m := newTestManager(nil)

	if m.ReadFromVehicle(false) || m.WriteToVehicle() || m.ClearOnVehicle() ||
		m.SetCurrentOnVehicle(0) {
		t.Error("transfer accepted without a vehicle heartbeat")
	}
}

func TestSaveLoadRoundTripThroughManager(t *testing.T) {
	m := newTestManager(nil)
	goOnline(m)

	wp := m.CreateWaypoint(true)
	wp.X = 47.397742
	wp.Y = 8.545594
	second := m.CreateWaypoint(false)
	second.X = 47.398
	second.Y = 8.546

	path := filepath.Join(t.TempDir(), "mission.txt")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}

	fresh := newTestManager(nil)
	if err := fresh.Load(path); err != nil {
		t.Fatal(err)
	}
	if fresh.Count() != 2 {
		t.Fatalf("reloaded count %d, want 2", fresh.Count())
	}
	for i := 0; i < 2; i++ {
		got := fresh.Get(i)
		want := m.Get(i)
		if *got != *want {
			t.Errorf("item %d differs:\n got %+v\nwant %+v", i, got, want)
		}
	}
	if cur := fresh.CurrentEditable(); cur != fresh.Get(0) {
		t.Error("current flag lost across the round trip")
	}
}

func TestGuidedModeSupported(t *testing.T) {
	m := newTestManager(nil)
	if m.GuidedModeSupported() {
		t.Error("guided mode reported before any heartbeat")
	}
	goOnline(m)
	if !m.GuidedModeSupported() {
		t.Error("guided mode not reported for an ArduPilot heartbeat")
	}
}

func TestRemoveMoveClearThroughFacade(t *testing.T) {
	m := newTestManager(nil)
	goOnline(m)

	for i := 0; i < 3; i++ {
		m.CreateWaypoint(i == 0)
	}
	if err := m.MoveWaypoint(0, 2); err != nil {
		t.Fatal(err)
	}
	if cur := m.CurrentEditable(); cur != m.Get(2) {
		t.Error("current flag did not travel with the moved item")
	}
	if err := m.RemoveWaypoint(2); err != nil {
		t.Fatal(err)
	}
	if m.Count() != 2 {
		t.Fatalf("count %d after remove, want 2", m.Count())
	}
	if cur := m.CurrentEditable(); cur != m.Get(1) {
		t.Error("predecessor not promoted after removing the current tail")
	}

	m.ClearEditableList()
	if m.Count() != 0 || m.CurrentEditable() != nil {
		t.Error("clear left items or a current reference")
	}

	if err := m.RemoveWaypoint(0); err == nil {
		t.Error("remove on an empty list succeeded")
	}
}
