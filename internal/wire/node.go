package wire

import (
	"context"
	"sync"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/pkg/errors"

	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/types"
)

// NodeConfig selects the datagram link to the vehicle. At least one of
// SerialDevice or UDPAddress must be set; when both are, SerialDevice is
// used and UDPAddress is ignored.
type NodeConfig struct {
	SerialDevice string
	SerialBaud   int
	UDPAddress   string
	SystemID     byte
	ComponentID  byte
}

// Node adapts a gomavlib node to the manager: outbound messages through
// Send, inbound frames decoded into typed events.
type Node struct {
	node *gomavlib.Node
}

func NewNode(cfg NodeConfig) (*Node, error) {
	var endpoint gomavlib.EndpointConf
	switch {
	case cfg.SerialDevice != "":
		endpoint = gomavlib.EndpointSerial{Device: cfg.SerialDevice, Baud: cfg.SerialBaud}
	case cfg.UDPAddress != "":
		endpoint = gomavlib.EndpointUDPServer{Address: cfg.UDPAddress}
	default:
		return nil, errors.New("no serial device or UDP address configured")
	}

	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:      []gomavlib.EndpointConf{endpoint},
		Dialect:        common.Dialect,
		OutVersion:     gomavlib.V2,
		OutSystemID:    cfg.SystemID,
		OutComponentID: cfg.ComponentID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating MAVLink node")
	}
	return &Node{node: node}, nil
}

func (n *Node) Send(msg message.Message) error {
	return errors.Wrap(n.node.WriteMessageAll(msg), "sending MAVLink message")
}

func (n *Node) Close() {
	n.node.Close()
}

// Run decodes inbound frames into events until the context is cancelled.
func (n *Node) Run(ctx context.Context, wg *sync.WaitGroup, events chan<- types.Event) {
	wg.Add(1)
	defer wg.Done()

	go func() {
		<-ctx.Done()
		n.node.Close()
	}()

	for evt := range n.node.Events() {
		fr, ok := evt.(*gomavlib.EventFrame)
		if !ok {
			continue
		}
		ev := decodeFrame(fr)
		if ev == nil {
			continue
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func decodeFrame(fr *gomavlib.EventFrame) types.Event {
	sys := fr.SystemID()
	comp := fr.ComponentID()

	switch msg := fr.Message().(type) {
	case *common.MessageMissionCount:
		return types.CountEvent{SystemID: sys, ComponentID: comp, Count: msg.Count}
	case *common.MessageMissionItemInt:
		return types.ItemEvent{SystemID: sys, ComponentID: comp, Encoding: types.EncodingInt, Item: IntToItem(msg)}
	case *common.MessageMissionItem:
		return types.ItemEvent{SystemID: sys, ComponentID: comp, Encoding: types.EncodingFloat, Item: FloatToItem(msg)}
	case *common.MessageMissionRequestInt:
		return types.RequestEvent{SystemID: sys, ComponentID: comp, Encoding: types.EncodingInt, Seq: msg.Seq}
	case *common.MessageMissionRequest:
		return types.RequestEvent{SystemID: sys, ComponentID: comp, Encoding: types.EncodingFloat, Seq: msg.Seq}
	case *common.MessageMissionAck:
		return types.AckEvent{SystemID: sys, ComponentID: comp, Type: msg.Type}
	case *common.MessageMissionCurrent:
		return types.CurrentEvent{SystemID: sys, Seq: msg.Seq}
	case *common.MessageMissionItemReached:
		return types.ReachedEvent{SystemID: sys, Seq: msg.Seq}
	case *common.MessageLocalPositionNed:
		return types.LocalPositionEvent{SystemID: sys, X: float64(msg.X), Y: float64(msg.Y), Z: float64(msg.Z)}
	case *common.MessageGlobalPositionInt:
		return types.GlobalPositionEvent{
			SystemID: sys,
			Lat:      float64(msg.Lat) / degreeScale,
			Lon:      float64(msg.Lon) / degreeScale,
			Alt:      float64(msg.Alt) / 1000.0,
		}
	case *common.MessageHeartbeat:
		return types.HeartbeatEvent{SystemID: sys, Autopilot: msg.Autopilot}
	}
	return nil
}
