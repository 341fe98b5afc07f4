// Package wire builds and converts the MAVLink mission messages the
// manager exchanges with the vehicle. Items are stored once in their
// natural degree/metre form; the fixed-point wire form is produced per
// outbound send.
package wire

import (
	"math"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/waypoint"
)

// Sender hands one encoded message to the transport. Implementations own
// the outbound pacing.
type Sender interface {
	Send(msg message.Message) error
}

// Global-frame latitudes and longitudes travel as signed fixed-point
// scaled by 1e7 in the int wire form. Local-frame coordinates are carried
// unscaled in both directions.
const degreeScale = 1e7

func degToFixed(deg float64) int32 {
	return int32(math.Round(deg * degreeScale))
}

func fixedToDeg(v int32) float64 {
	return float64(v) / degreeScale
}

// ItemToInt encodes a waypoint into the integer wire form.
func ItemToInt(wp *waypoint.Waypoint, targetSys, targetComp uint8) *common.MessageMissionItemInt {
	m := &common.MessageMissionItemInt{
		TargetSystem:    targetSys,
		TargetComponent: targetComp,
		Seq:             wp.Seq,
		Frame:           wp.Frame,
		Command:         wp.Command,
		Current:         b2u8(wp.Current),
		Autocontinue:    b2u8(wp.Autocontinue),
		Param1:          wp.Param1,
		Param2:          wp.Param2,
		Param3:          wp.Param3,
		Param4:          wp.Param4,
		Z:               wp.Z,
		MissionType:     common.MAV_MISSION_TYPE_MISSION,
	}
	if wp.IsGlobalFrame() {
		m.X = degToFixed(wp.X)
		m.Y = degToFixed(wp.Y)
	} else {
		m.X = int32(math.Round(wp.X))
		m.Y = int32(math.Round(wp.Y))
	}
	return m
}

// IntToFloat downconverts the integer wire form when the peer requested the
// float variant. z is a float in both forms.
func IntToFloat(from *common.MessageMissionItemInt) *common.MessageMissionItem {
	to := &common.MessageMissionItem{
		TargetSystem:    from.TargetSystem,
		TargetComponent: from.TargetComponent,
		Seq:             from.Seq,
		Frame:           from.Frame,
		Command:         from.Command,
		Current:         from.Current,
		Autocontinue:    from.Autocontinue,
		Param1:          from.Param1,
		Param2:          from.Param2,
		Param3:          from.Param3,
		Param4:          from.Param4,
		Z:               from.Z,
		MissionType:     from.MissionType,
	}
	if isGlobal(from.Frame) {
		to.X = float32(fixedToDeg(from.X))
		to.Y = float32(fixedToDeg(from.Y))
	} else {
		to.X = float32(from.X)
		to.Y = float32(from.Y)
	}
	return to
}

// IntToItem decodes the integer wire form into a waypoint.
func IntToItem(m *common.MessageMissionItemInt) waypoint.Waypoint {
	wp := waypoint.Waypoint{
		Seq:          m.Seq,
		Frame:        m.Frame,
		Command:      m.Command,
		Param1:       m.Param1,
		Param2:       m.Param2,
		Param3:       m.Param3,
		Param4:       m.Param4,
		Z:            m.Z,
		Autocontinue: m.Autocontinue != 0,
		Current:      m.Current != 0,
	}
	if isGlobal(m.Frame) {
		wp.X = fixedToDeg(m.X)
		wp.Y = fixedToDeg(m.Y)
	} else {
		wp.X = float64(m.X)
		wp.Y = float64(m.Y)
	}
	return wp
}

// FloatToItem decodes the float wire form into a waypoint.
func FloatToItem(m *common.MessageMissionItem) waypoint.Waypoint {
	return waypoint.Waypoint{
		Seq:          m.Seq,
		Frame:        m.Frame,
		Command:      m.Command,
		Param1:       m.Param1,
		Param2:       m.Param2,
		Param3:       m.Param3,
		Param4:       m.Param4,
		X:            float64(m.X),
		Y:            float64(m.Y),
		Z:            m.Z,
		Autocontinue: m.Autocontinue != 0,
		Current:      m.Current != 0,
	}
}

func RequestList(targetSys, targetComp uint8) *common.MessageMissionRequestList {
	return &common.MessageMissionRequestList{
		TargetSystem:    targetSys,
		TargetComponent: targetComp,
		MissionType:     common.MAV_MISSION_TYPE_MISSION,
	}
}

// RequestInt asks for one item in the integer wire form; downloads always
// use this variant.
func RequestInt(targetSys, targetComp uint8, seq uint16) *common.MessageMissionRequestInt {
	return &common.MessageMissionRequestInt{
		TargetSystem:    targetSys,
		TargetComponent: targetComp,
		Seq:             seq,
		MissionType:     common.MAV_MISSION_TYPE_MISSION,
	}
}

func Count(targetSys, targetComp uint8, count uint16) *common.MessageMissionCount {
	return &common.MessageMissionCount{
		TargetSystem:    targetSys,
		TargetComponent: targetComp,
		Count:           count,
		MissionType:     common.MAV_MISSION_TYPE_MISSION,
	}
}

func Ack(targetSys, targetComp uint8, result common.MAV_MISSION_RESULT) *common.MessageMissionAck {
	return &common.MessageMissionAck{
		TargetSystem:    targetSys,
		TargetComponent: targetComp,
		Type:            result,
		MissionType:     common.MAV_MISSION_TYPE_MISSION,
	}
}

func ClearAll(targetSys, targetComp uint8) *common.MessageMissionClearAll {
	return &common.MessageMissionClearAll{
		TargetSystem:    targetSys,
		TargetComponent: targetComp,
		MissionType:     common.MAV_MISSION_TYPE_MISSION,
	}
}

func SetCurrent(targetSys, targetComp uint8, seq uint16) *common.MessageMissionSetCurrent {
	return &common.MessageMissionSetCurrent{
		TargetSystem:    targetSys,
		TargetComponent: targetComp,
		Seq:             seq,
	}
}

// GotoItem encodes a single-shot guided-mode target. current=2 marks the
// item as a guided command, seq is always 0.
func GotoItem(wp *waypoint.Waypoint, targetSys, targetComp uint8) *common.MessageMissionItemInt {
	m := ItemToInt(wp, targetSys, targetComp)
	m.Seq = 0
	m.Current = 2
	m.Autocontinue = 0
	return m
}

func isGlobal(f common.MAV_FRAME) bool {
	return f == common.MAV_FRAME_GLOBAL || f == common.MAV_FRAME_GLOBAL_RELATIVE_ALT
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
