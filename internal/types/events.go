package types

import (
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/waypoint"
)

// Encoding tags which wire form a mission item or request arrived in. The
// peer may alternate between forms within one transfer.
type Encoding int

const (
	EncodingInt Encoding = iota
	EncodingFloat
)

func (e Encoding) String() string {
	if e == EncodingInt {
		return "int"
	}
	return "float"
}

// Event is a decoded inbound message from the wire codec, dispatched to the
// manager in arrival order.
type Event interface {
	isEvent()
}

type CountEvent struct {
	SystemID    uint8
	ComponentID uint8
	Count       uint16
}

type ItemEvent struct {
	SystemID    uint8
	ComponentID uint8
	Encoding    Encoding
	Item        waypoint.Waypoint
}

type RequestEvent struct {
	SystemID    uint8
	ComponentID uint8
	Encoding    Encoding
	Seq         uint16
}

type AckEvent struct {
	SystemID    uint8
	ComponentID uint8
	Type        common.MAV_MISSION_RESULT
}

type CurrentEvent struct {
	SystemID uint8
	Seq      uint16
}

type ReachedEvent struct {
	SystemID uint8
	Seq      uint16
}

type LocalPositionEvent struct {
	SystemID uint8
	X        float64
	Y        float64
	Z        float64
}

type GlobalPositionEvent struct {
	SystemID uint8
	Lat      float64
	Lon      float64
	Alt      float64
}

type HeartbeatEvent struct {
	SystemID  uint8
	Autopilot common.MAV_AUTOPILOT
}

func (CountEvent) isEvent() {}

func (ItemEvent) isEvent() {}

func (RequestEvent) isEvent() {}

func (AckEvent) isEvent() {}

func (CurrentEvent) isEvent() {}

func (ReachedEvent) isEvent() {}

func (LocalPositionEvent) isEvent() {}

func (GlobalPositionEvent) isEvent() {}

func (HeartbeatEvent) isEvent() {}
