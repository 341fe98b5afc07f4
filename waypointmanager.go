// Package waypointmanager keeps a ground station's mission in sync with a
// remote vehicle. It owns an editable draft list and a view-only snapshot
// of the vehicle's mission, drives the MAVLink mission transfer protocol,
// and derives live mission-execution signals.
package waypointmanager

import (
	"context"
	"log"
	"sync"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/pkg/errors"

	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/settings"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/transfer"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/types"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/waypoint"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/wire"
)

// Config assembles a Manager.
type Config struct {
	// VehicleSystemID identifies the vehicle this manager talks to. Zero
	// means offline editing only.
	VehicleSystemID uint8
	// TargetComponentID addresses outbound mission messages; defaults to
	// the mission planner component.
	TargetComponentID uint8
	Sender            wire.Sender
	Notifier          types.Notifier
	// Settings backs the persisted default relative altitude. Optional;
	// without it the default stays at 20 m and changes are not persisted.
	Settings *settings.Store
}

// Manager is the facade over the dual mission lists, the transfer state
// machine and the live signal derivations. All entry points are serialized
// by one mutex, so each event is fully processed before the next.
type Manager struct {
	mu sync.Mutex

	notify types.Notifier
	lists  *waypoint.DualList
	proto  *transfer.Protocol
	live   *transfer.LiveSignals
	rec    *waypoint.Recommender
	store  *settings.Store

	uasID           uint8
	online          bool
	autopilot       common.MAV_AUTOPILOT
	defaultRelAlt   float64
	offlineNotified bool
}

func New(cfg Config) *Manager {
	if cfg.Notifier == nil {
		cfg.Notifier = types.NopNotifier{}
	}

	m := &Manager{
		notify:        cfg.Notifier,
		lists:         waypoint.NewDualList(),
		store:         cfg.Settings,
		uasID:         cfg.VehicleSystemID,
		autopilot:     common.MAV_AUTOPILOT_GENERIC,
		defaultRelAlt: 20.0,
	}
	if m.store != nil {
		m.defaultRelAlt = m.store.DefaultRelAltitude()
	}

	m.rec = waypoint.NewRecommender(m.lists.Editable(),
		func() bool { return m.online },
		func() float64 { return m.defaultRelAlt })

	m.proto = transfer.New(transfer.Config{
		VehicleSystemID:   cfg.VehicleSystemID,
		TargetComponentID: cfg.TargetComponentID,
		Sender:            cfg.Sender,
		Lists:             m.lists,
		Notifier:          cfg.Notifier,
		Locker:            &m.mu,
		Autopilot:         func() common.MAV_AUTOPILOT { return m.autopilot },
	})
	m.live = transfer.NewLiveSignals(cfg.VehicleSystemID, m.lists, cfg.Notifier)
	return m
}

// Run consumes decoded wire events until the context is cancelled.
func (m *Manager) Run(ctx context.Context, wg *sync.WaitGroup, events <-chan types.Event) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.proto.Shutdown()
			m.mu.Unlock()
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.HandleEvent(ev)
		}
	}
}

// HandleEvent dispatches one decoded inbound message.
func (m *Manager) HandleEvent(ev types.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev := ev.(type) {
	case types.CountEvent:
		m.proto.HandleCount(ev)
	case types.ItemEvent:
		wasIdle := m.proto.Idle()
		m.proto.HandleItem(ev)
		if !wasIdle && m.proto.Idle() {
			// A completed download starts a fresh dedupe window for
			// current-changed notifications.
			m.live.Reset()
		}
	case types.RequestEvent:
		m.proto.HandleRequest(ev)
	case types.AckEvent:
		m.proto.HandleAck(ev)
	case types.CurrentEvent:
		m.proto.HandleCurrent(ev)
		m.live.HandleCurrent(ev)
	case types.ReachedEvent:
		m.live.HandleReached(ev)
	case types.LocalPositionEvent:
		m.live.HandleLocalPosition(ev)
	case types.GlobalPositionEvent:
		m.live.HandleGlobalPosition(ev)
	case types.HeartbeatEvent:
		if ev.SystemID == m.uasID {
			m.online = true
			m.autopilot = ev.Autopilot
		}
	}
}

func (m *Manager) maybeNotifyOffline() {
	if m.online || m.offlineNotified || m.lists.Editable().Len() > 0 {
		return
	}
	m.offlineNotified = true
	m.notify.OfflineEditingStarted()
}

// CreateWaypoint appends a new draft waypoint initialized from the
// recommender.
func (m *Manager) CreateWaypoint(enforceFirstActive bool) *waypoint.Waypoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maybeNotifyOffline()
	wp := waypoint.New()
	m.rec.Apply(wp)
	m.lists.AddEditable(wp, enforceFirstActive)
	m.notify.EditableListChanged()
	return wp
}

// AddEditable appends an existing waypoint to the draft.
func (m *Manager) AddEditable(wp *waypoint.Waypoint, enforceFirstActive bool) {
	if wp == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maybeNotifyOffline()
	m.lists.AddEditable(wp, enforceFirstActive)
	m.notify.EditableListChanged()
}

func (m *Manager) RemoveWaypoint(seq int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.lists.RemoveEditable(seq); err != nil {
		return err
	}
	m.notify.EditableListChanged()
	return nil
}

func (m *Manager) MoveWaypoint(from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.lists.MoveEditable(from, to); err != nil {
		return err
	}
	m.notify.EditableListChanged()
	return nil
}

func (m *Manager) ClearEditableList() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists.ClearEditable()
	m.notify.EditableListChanged()
}

// SetCurrentEditable flips the current flags locally, without a transfer.
func (m *Manager) SetCurrentEditable(seq uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.lists.SetCurrentEditable(seq); err != nil {
		return err
	}
	m.notify.EditableListChanged()
	return nil
}

// Save writes the draft to path in QGC WPL 110 format.
func (m *Manager) Save(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists.Editable().SaveFile(path)
}

// Load replaces the draft with the mission at path. A partially loaded
// file keeps the items before the bad line and returns ErrPartialLoad.
func (m *Manager) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := waypoint.LoadFile(path)
	if err != nil && !errors.Is(err, waypoint.ErrPartialLoad) {
		m.notify.StatusChanged(err.Error())
		return err
	}
	m.lists.ReplaceEditable(items)
	m.notify.EditableListChanged()
	if err != nil {
		m.notify.StatusChanged("The waypoint file is corrupted. Load operation only partly successful.")
	}
	return err
}

// Count is the number of draft waypoints.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists.Editable().Len()
}

func (m *Manager) ViewOnlyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists.ViewOnly().Len()
}

// Get returns the draft waypoint at index, or nil when out of range.
func (m *Manager) Get(index int) *waypoint.Waypoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists.Editable().At(index)
}

func (m *Manager) GetViewOnly(index int) *waypoint.Waypoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists.ViewOnly().At(index)
}

// CurrentEditable returns the draft waypoint flagged current, or nil.
func (m *Manager) CurrentEditable() *waypoint.Waypoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists.CurrentEditable()
}

func (m *Manager) filtered(match func(*waypoint.Waypoint) bool) []*waypoint.Waypoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	var wps []*waypoint.Waypoint
	for _, wp := range m.lists.Editable().Items() {
		if match(wp) {
			wps = append(wps, wp)
		}
	}
	return wps
}

func (m *Manager) filteredIndexOf(target *waypoint.Waypoint, match func(*waypoint.Waypoint) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := 0
	for _, wp := range m.lists.Editable().Items() {
		if !match(wp) {
			continue
		}
		if wp == target {
			return i
		}
		i++
	}
	return -1
}

func isGlobal(wp *waypoint.Waypoint) bool { return wp.IsGlobalFrame() }

func isNav(wp *waypoint.Waypoint) bool { return wp.IsNavigationCommand() }

func isGlobalNav(wp *waypoint.Waypoint) bool {
	return wp.IsGlobalFrame() && wp.IsNavigationCommand()
}
func isLocal(wp *waypoint.Waypoint) bool { return wp.IsLocalFrame() }
func isMissionFrame(wp *waypoint.Waypoint) bool {
	return wp.Frame == common.MAV_FRAME_MISSION
}

func (m *Manager) GlobalFrameWaypoints() []*waypoint.Waypoint { return m.filtered(isGlobal) }

func (m *Manager) NavWaypoints() []*waypoint.Waypoint { return m.filtered(isNav) }

func (m *Manager) GlobalFrameAndNavWaypoints() []*waypoint.Waypoint {
	return m.filtered(isGlobalNav)
}

func (m *Manager) LocalFrameWaypoints() []*waypoint.Waypoint { return m.filtered(isLocal) }

func (m *Manager) GlobalFrameIndexOf(wp *waypoint.Waypoint) int {
	return m.filteredIndexOf(wp, isGlobal)
}

func (m *Manager) NavIndexOf(wp *waypoint.Waypoint) int { return m.filteredIndexOf(wp, isNav) }

func (m *Manager) GlobalFrameAndNavIndexOf(wp *waypoint.Waypoint) int {
	return m.filteredIndexOf(wp, isGlobalNav)
}

func (m *Manager) LocalFrameIndexOf(wp *waypoint.Waypoint) int {
	return m.filteredIndexOf(wp, isLocal)
}

func (m *Manager) MissionFrameIndexOf(wp *waypoint.Waypoint) int {
	return m.filteredIndexOf(wp, isMissionFrame)
}

// IndexOf returns the unfiltered draft index of wp, or -1.
func (m *Manager) IndexOf(target *waypoint.Waypoint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, wp := range m.lists.Editable().Items() {
		if wp == target {
			return i
		}
	}
	return -1
}

// ReadFromVehicle starts a mission download.
func (m *Manager) ReadFromVehicle(readToEdit bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.online {
		log.Printf("readWaypoints: no vehicle connected")
		return false
	}
	return m.proto.ReadFromVehicle(readToEdit)
}

// WriteToVehicle uploads the draft, or clears the vehicle when the draft
// is empty.
func (m *Manager) WriteToVehicle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.online {
		log.Printf("writeWaypoints: no vehicle connected")
		return false
	}
	return m.proto.WriteToVehicle()
}

func (m *Manager) ClearOnVehicle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.online {
		log.Printf("clearWaypointList: no vehicle connected")
		return false
	}
	return m.proto.ClearOnVehicle()
}

func (m *Manager) SetCurrentOnVehicle(seq uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.online {
		log.Printf("setCurrentWaypoint: no vehicle connected")
		return false
	}
	return m.proto.SetCurrentOnVehicle(seq)
}

// Goto fires a single guided-mode target; it does not engage the transfer
// state machine.
func (m *Manager) Goto(wp *waypoint.Waypoint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.online {
		log.Printf("goToWaypoint: no vehicle connected")
		return false
	}
	return m.proto.Goto(wp)
}

// GuidedModeSupported reports whether the vehicle accepts goto targets.
func (m *Manager) GuidedModeSupported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autopilot == common.MAV_AUTOPILOT_ARDUPILOTMEGA
}

func (m *Manager) DefaultRelAltitude() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultRelAlt
}

// SetDefaultRelAltitude updates and persists the default relative
// altitude.
func (m *Manager) SetDefaultRelAltitude(alt float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultRelAlt = alt
	if m.store == nil {
		return nil
	}
	return m.store.SetDefaultRelAltitude(alt)
}
