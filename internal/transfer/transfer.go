// Package transfer implements the client half of the MAVLink mission
// transfer protocol: download, upload, clear and set-current transactions,
// each driven by a single retry timer.
package transfer

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/google/uuid"

	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/types"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/waypoint"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/wire"
)

type state int

const (
	idle state = iota
	getList
	getListGetWPs
	sendList
	sendListSendWPsInt
	sendListSendWPsFloat
	clearList
	setCurrent
)

func (s state) String() string {
	switch s {
	case idle:
		return "IDLE"
	case getList:
		return "GETLIST"
	case getListGetWPs:
		return "GETLIST_GETWPS"
	case sendList:
		return "SENDLIST"
	case sendListSendWPsInt:
		return "SENDLIST_SENDWPSINT"
	case sendListSendWPsFloat:
		return "SENDLIST_SENDWPSFLOAT"
	case clearList:
		return "CLEARLIST"
	case setCurrent:
		return "SETCURRENT"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const (
	// ProtocolTimeout is the maximum wait for pending messages before a
	// retry.
	ProtocolTimeout = 2000 * time.Millisecond
	// MaxRetries bounds consecutive timeouts without progress.
	MaxRetries = 5
)

// Config assembles a Protocol. Locker is the mutex serializing every entry
// into the manager; the timer callback re-enters through it.
type Config struct {
	VehicleSystemID uint8
	// TargetComponentID addresses outbound messages; defaults to the
	// mission planner component.
	TargetComponentID uint8
	Sender            wire.Sender
	Lists             *waypoint.DualList
	Notifier          types.Notifier
	Locker            sync.Locker
	// Autopilot reports the vehicle's autopilot family, used to gate the
	// guided-mode goto command.
	Autopilot func() common.MAV_AUTOPILOT
}

// Protocol is the transfer state machine. It is not safe for concurrent
// use; the owning manager serializes all calls through Config.Locker.
type Protocol struct {
	sender wire.Sender
	notify types.Notifier
	lists  *waypoint.DualList
	lk     sync.Locker

	uasID     uint8
	compID    uint8
	autopilot func() common.MAV_AUTOPILOT

	state         state
	retries       int
	wpID          uint16
	count         uint16
	partnerSysID  uint8
	partnerCompID uint8
	readToEdit    bool
	buffer        []*common.MessageMissionItemInt
	txID          string

	timer    *time.Timer
	timerGen int
}

func New(cfg Config) *Protocol {
	if cfg.Notifier == nil {
		cfg.Notifier = types.NopNotifier{}
	}
	if cfg.TargetComponentID == 0 {
		cfg.TargetComponentID = uint8(common.MAV_COMP_ID_MISSIONPLANNER)
	}
	if cfg.Autopilot == nil {
		cfg.Autopilot = func() common.MAV_AUTOPILOT { return common.MAV_AUTOPILOT_GENERIC }
	}
	if cfg.Locker == nil {
		cfg.Locker = &sync.Mutex{}
	}
	return &Protocol{
		sender:        cfg.Sender,
		notify:        cfg.Notifier,
		lists:         cfg.Lists,
		lk:            cfg.Locker,
		uasID:         cfg.VehicleSystemID,
		compID:        cfg.TargetComponentID,
		autopilot:     cfg.Autopilot,
		partnerCompID: uint8(common.MAV_COMP_ID_AUTOPILOT1),
	}
}

// Idle reports whether no transfer is in progress.
func (p *Protocol) Idle() bool { return p.state == idle }

// Shutdown stops the protocol timer. The manager calls it on teardown.
func (p *Protocol) Shutdown() { p.stopTimer() }

// ReadFromVehicle starts a mission download into the view-only list. With
// readToEdit the result is mirrored into the draft, which is only cleared
// once the vehicle's count has arrived.
func (p *Protocol) ReadFromVehicle(readToEdit bool) bool {
	if p.state != idle {
		log.Printf("readWaypoints: transfer already in progress (%s), ignoring", p.state)
		return false
	}

	p.readToEdit = readToEdit
	p.notify.DownloadActive(true)

	p.lists.ClearViewOnly()
	p.notify.ViewOnlyListChanged()

	p.beginTransaction(getList, 0, p.uasID, p.compID)
	p.sendRequestList()
	return true
}

// WriteToVehicle uploads the draft. An empty draft becomes a clear-all
// transaction.
func (p *Protocol) WriteToVehicle() bool {
	if p.state != idle {
		log.Printf("writeWaypoints: transfer already in progress (%s), ignoring", p.state)
		return false
	}

	editable := p.lists.Editable()
	if editable.Len() == 0 {
		p.startClear()
		return true
	}

	p.count = uint16(editable.Len())
	p.buffer = p.buffer[:0]
	noCurrent := true
	for i, wp := range editable.Items() {
		m := wire.ItemToInt(wp, p.uasID, p.compID)
		m.Seq = uint16(i)
		if m.Current != 0 && !noCurrent {
			m.Current = 0
		}
		if m.Current != 0 {
			noCurrent = false
		}
		if i == editable.Len()-1 && noCurrent {
			// The vehicle requires a current waypoint; fall back to the
			// last one when the user marked none.
			m.Current = 1
		}
		p.buffer = append(p.buffer, m)
	}

	p.beginTransaction(sendList, 0, p.uasID, p.compID)
	p.sendCount()
	return true
}

// ClearOnVehicle erases the vehicle's mission.
func (p *Protocol) ClearOnVehicle() bool {
	if p.state != idle {
		log.Printf("clearWaypointList: transfer already in progress (%s), ignoring", p.state)
		return false
	}
	p.startClear()
	return true
}

func (p *Protocol) startClear() {
	p.beginTransaction(clearList, 0, p.uasID, p.compID)
	p.sendClearAll()
}

// SetCurrentOnVehicle instructs the vehicle to adopt seq as current. The
// transaction completes on the next CURRENT notification.
func (p *Protocol) SetCurrentOnVehicle(seq uint16) bool {
	if int(seq) >= p.lists.ViewOnly().Len() {
		log.Printf("setCurrentWaypoint: seq %d beyond view-only list", seq)
		return false
	}
	if p.state != idle {
		log.Printf("setCurrentWaypoint: transfer already in progress (%s), ignoring", p.state)
		return false
	}
	p.beginTransaction(setCurrent, seq, p.uasID, uint8(common.MAV_COMP_ID_MISSIONPLANNER))
	p.sendSetCurrent(seq)
	return true
}

// Goto fires a single guided-mode target. It is not a transfer and leaves
// the state machine untouched; only ArduPilot vehicles accept it.
func (p *Protocol) Goto(wp *waypoint.Waypoint) bool {
	if p.autopilot() != common.MAV_AUTOPILOT_ARDUPILOTMEGA {
		log.Printf("goToWaypoint: autopilot does not support guided mode targets")
		return false
	}
	log.Printf("goToWaypoint: %s", wp)
	p.send(wire.GotoItem(wp, p.uasID, p.compID))
	return true
}

func (p *Protocol) beginTransaction(s state, seq uint16, sysID, compID uint8) {
	p.txID = uuid.New().String()
	p.state = s
	p.wpID = seq
	p.partnerSysID = sysID
	p.partnerCompID = compID
	p.retries = MaxRetries
	p.armTimer()
}

// finishTransaction returns to idle and forgets the partner identity.
func (p *Protocol) finishTransaction() {
	p.stopTimer()
	p.state = idle
	p.count = 0
	p.wpID = 0
	p.partnerSysID = 0
	p.partnerCompID = uint8(common.MAV_COMP_ID_AUTOPILOT1)
	p.buffer = nil
}

// progress re-arms the timer and restores the retry budget after any
// accepted message from the partner.
func (p *Protocol) progress() {
	p.retries = MaxRetries
	p.armTimer()
}

// HandleCount processes the vehicle's item count during a download.
func (p *Protocol) HandleCount(ev types.CountEvent) {
	if p.state != getList || ev.SystemID != p.partnerSysID {
		log.Printf("[%s] handleCount: rejecting message, state %s, partner %d, sender %d/%d",
			p.txID, p.state, p.partnerSysID, ev.SystemID, ev.ComponentID)
		return
	}
	p.progress()

	// The draft survives until the vehicle actually answers, so a dead
	// link cannot destroy it.
	if p.readToEdit {
		p.lists.ClearEditable()
		p.notify.EditableListChanged()
	}

	if ev.Count == 0 {
		log.Printf("[%s] handleCount: vehicle reports empty mission", p.txID)
		p.finishTransaction()
		p.notify.DownloadActive(false)
		p.notify.StatusChanged("done.")
		return
	}

	log.Printf("[%s] handleCount: fetching %d waypoints", p.txID, ev.Count)
	p.count = ev.Count
	p.wpID = 0
	p.state = getListGetWPs
	p.sendRequest(0)
}

// HandleItem processes one downloaded mission item.
func (p *Protocol) HandleItem(ev types.ItemEvent) {
	if p.state != getListGetWPs || ev.SystemID != p.partnerSysID {
		log.Printf("[%s] handleItem: rejecting message, state %s, partner %d, sender %d/%d",
			p.txID, p.state, p.partnerSysID, ev.SystemID, ev.ComponentID)
		return
	}
	if ev.Item.Seq != p.wpID {
		p.notify.StatusChanged("Waypoint ID mismatch, rejecting waypoint")
		log.Printf("[%s] handleItem: expected seq %d, got %d", p.txID, p.wpID, ev.Item.Seq)
		return
	}
	p.progress()

	wp := ev.Item
	p.lists.AppendDownloaded(&wp, p.readToEdit)
	p.notify.ViewOnlyListChanged()
	if p.readToEdit {
		p.notify.EditableListChanged()
	}

	p.wpID++
	if p.wpID < p.count {
		p.sendRequest(p.wpID)
		return
	}

	p.sendAck(common.MAV_MISSION_ACCEPTED)
	log.Printf("[%s] handleItem: received all %d waypoints", p.txID, p.count)
	p.finishTransaction()
	p.notify.DownloadActive(false)
	p.notify.StatusChanged(fmt.Sprintf("done. (updated at %s)", time.Now().Format("15:04:05")))
}

// HandleRequest answers the vehicle's item requests during an upload. The
// encoding of each reply follows the variant of the request.
func (p *Protocol) HandleRequest(ev types.RequestEvent) {
	inWindow := (p.state == sendList && ev.Seq == 0) ||
		((p.state == sendListSendWPsInt || p.state == sendListSendWPsFloat) &&
			(ev.Seq == p.wpID || ev.Seq == p.wpID+1))
	if ev.SystemID != p.partnerSysID || !inWindow {
		log.Printf("[%s] handleRequest: rejecting request for seq %d, state %s, partner %d, sender %d/%d",
			p.txID, ev.Seq, p.state, p.partnerSysID, ev.SystemID, ev.ComponentID)
		return
	}
	p.progress()

	if int(ev.Seq) >= len(p.buffer) {
		log.Printf("[%s] handleRequest: system %d requested waypoint %d beyond buffer (max %d)",
			p.txID, ev.SystemID, ev.Seq, len(p.buffer)-1)
		return
	}

	if ev.Encoding == types.EncodingInt {
		p.state = sendListSendWPsInt
	} else {
		p.state = sendListSendWPsFloat
	}
	p.wpID = ev.Seq
	p.sendItem(ev.Seq)
}

// HandleAck completes uploads and clear transactions.
func (p *Protocol) HandleAck(ev types.AckEvent) {
	if ev.SystemID != p.partnerSysID {
		return
	}
	// The autopilot may answer from its primary component instead of the
	// one we addressed.
	if ev.ComponentID != p.partnerCompID && ev.ComponentID != uint8(common.MAV_COMP_ID_AUTOPILOT1) {
		return
	}

	uploading := p.state == sendList || p.state == sendListSendWPsInt || p.state == sendListSendWPsFloat
	switch {
	case uploading && int(p.wpID) == len(p.buffer)-1 && ev.Type == common.MAV_MISSION_ACCEPTED:
		log.Printf("[%s] handleAck: upload complete", p.txID)
		p.finishTransaction()
		p.notify.StatusChanged("done.")
		// Refresh the view-only snapshot with what the vehicle now holds.
		p.ReadFromVehicle(false)
	case p.state == clearList:
		log.Printf("[%s] handleAck: clear complete", p.txID)
		p.finishTransaction()
		p.notify.StatusChanged("done.")
	}
}

// HandleCurrent completes a set-current transaction. The live
// current-changed signal is derived separately by LiveSignals.
func (p *Protocol) HandleCurrent(ev types.CurrentEvent) {
	if ev.SystemID != p.uasID || p.state != setCurrent {
		return
	}
	log.Printf("[%s] handleCurrent: vehicle adopted waypoint %d", p.txID, ev.Seq)
	p.finishTransaction()
	p.lists.SetViewOnlyCurrent(ev.Seq)
	p.notify.ViewOnlyListChanged()
}

// timeout retransmits the message appropriate for the current state, or
// aborts to idle once the retry budget is spent.
func (p *Protocol) timeout() {
	if p.state == idle {
		return
	}
	if p.retries > 0 {
		p.armTimer()
		p.retries--
		p.notify.StatusChanged(fmt.Sprintf("Timeout, retrying (retries left: %d)", p.retries))
		switch p.state {
		case getList:
			log.Printf("[%s] timeout requesting waypoint count, retrying", p.txID)
			p.sendRequestList()
		case getListGetWPs:
			log.Printf("[%s] timeout requesting waypoint %d, retrying", p.txID, p.wpID)
			p.sendRequest(p.wpID)
		case sendList:
			log.Printf("[%s] timeout sending waypoint count, retrying", p.txID)
			p.sendCount()
		case sendListSendWPsInt, sendListSendWPsFloat:
			log.Printf("[%s] timeout sending waypoint %d, retrying", p.txID, p.wpID)
			p.sendItem(p.wpID)
		case clearList:
			log.Printf("[%s] timeout sending waypoint clear, retrying", p.txID)
			p.sendClearAll()
		case setCurrent:
			log.Printf("[%s] timeout sending set current waypoint, retrying", p.txID)
			p.sendSetCurrent(p.wpID)
		}
		return
	}

	log.Printf("[%s] timed out in state %s, going to idle", p.txID, p.state)
	downloading := p.state == getList || p.state == getListGetWPs
	p.finishTransaction()
	if downloading {
		// Drop the partial snapshot; it does not reflect the vehicle.
		p.lists.ClearViewOnly()
		p.notify.ViewOnlyListChanged()
		p.notify.DownloadActive(false)
	}
	p.notify.StatusChanged("Operation timed out.")
}

func (p *Protocol) armTimer() {
	p.timerGen++
	gen := p.timerGen
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(ProtocolTimeout, func() {
		p.lk.Lock()
		defer p.lk.Unlock()
		// A stale expiry that lost the race against re-arming is dropped.
		if gen == p.timerGen {
			p.timeout()
		}
	})
}

func (p *Protocol) stopTimer() {
	p.timerGen++
	if p.timer != nil {
		p.timer.Stop()
	}
}

func (p *Protocol) send(msg message.Message) {
	if err := p.sender.Send(msg); err != nil {
		log.Printf("[%s] send failed: %v", p.txID, err)
	}
}

func (p *Protocol) sendRequestList() {
	p.notify.StatusChanged("Requesting waypoint list...")
	p.send(wire.RequestList(p.partnerSysID, p.compID))
}

func (p *Protocol) sendRequest(seq uint16) {
	p.notify.StatusChanged(fmt.Sprintf("Retrieving waypoint ID %d of %d total", seq, p.count))
	p.send(wire.RequestInt(p.partnerSysID, p.compID, seq))
}

func (p *Protocol) sendCount() {
	p.notify.StatusChanged("Starting to transmit waypoints...")
	p.send(wire.Count(p.partnerSysID, p.compID, p.count))
}

func (p *Protocol) sendItem(seq uint16) {
	if int(seq) >= len(p.buffer) {
		return
	}
	p.notify.StatusChanged(fmt.Sprintf("Sending waypoint ID %d of %d total", seq, p.count))
	item := p.buffer[seq]
	if p.state == sendListSendWPsFloat {
		p.send(wire.IntToFloat(item))
		return
	}
	p.send(item)
}

func (p *Protocol) sendAck(result common.MAV_MISSION_RESULT) {
	p.send(wire.Ack(p.partnerSysID, p.compID, result))
}

func (p *Protocol) sendClearAll() {
	p.notify.StatusChanged("Clearing waypoint list...")
	p.send(wire.ClearAll(p.partnerSysID, p.compID))
}

func (p *Protocol) sendSetCurrent(seq uint16) {
	p.notify.StatusChanged("Updating target waypoint...")
	p.send(wire.SetCurrent(p.partnerSysID, p.compID, seq))
}
