// Package telemetry mirrors the waypoint manager's signals to an MQTT
// broker so the ground cloud can follow mission transfers.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	uuid "github.com/google/uuid"
)

const (
	qos    = 1
	retain = false

	publishTimeout = 10 * time.Second
)

type statusEvent struct {
	Timestamp time.Time `json:"timestamp"`
	MessageID string    `json:"message_id"`
	Status    string    `json:"status"`
}

type seqEvent struct {
	Timestamp time.Time `json:"timestamp"`
	MessageID string    `json:"message_id"`
	Seq       uint16    `json:"seq"`
}

type distanceEvent struct {
	Timestamp time.Time `json:"timestamp"`
	MessageID string    `json:"message_id"`
	DistanceM float64   `json:"distance_m"`
}

type listEvent struct {
	Timestamp time.Time `json:"timestamp"`
	MessageID string    `json:"message_id"`
	List      string    `json:"list"`
}

// Publisher forwards manager signals to /devices/<id>/events/ topics. It
// implements the manager's notifier interface.
type Publisher struct {
	client   mqtt.Client
	deviceID string
}

func NewPublisher(client mqtt.Client, deviceID string) *Publisher {
	return &Publisher{client: client, deviceID: deviceID}
}

func (p *Publisher) publish(subtopic string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("Could not marshal %s event: %v", subtopic, err)
		return
	}
	topic := fmt.Sprintf("/devices/%s/events/%s", p.deviceID, subtopic)
	tok := p.client.Publish(topic, qos, retain, b)
	if !tok.WaitTimeout(publishTimeout) {
		log.Printf("Could not publish %s within %v", subtopic, publishTimeout)
		return
	}
	if err := tok.Error(); err != nil {
		log.Printf("Could not publish %s: %v", subtopic, err)
	}
}

func (p *Publisher) StatusChanged(status string) {
	p.publish("waypoint-status", statusEvent{time.Now(), uuid.New().String(), status})
}

func (p *Publisher) EditableListChanged() {
	p.publish("waypoint-list", listEvent{time.Now(), uuid.New().String(), "editable"})
}

func (p *Publisher) ViewOnlyListChanged() {
	p.publish("waypoint-list", listEvent{time.Now(), uuid.New().String(), "view-only"})
}

func (p *Publisher) CurrentWaypointChanged(seq uint16) {
	p.publish("waypoint-current", seqEvent{time.Now(), uuid.New().String(), seq})
}

func (p *Publisher) WaypointReached(seq uint16) {
	p.publish("waypoint-reached", seqEvent{time.Now(), uuid.New().String(), seq})
}

func (p *Publisher) WaypointDistanceChanged(distance float64) {
	p.publish("waypoint-distance", distanceEvent{time.Now(), uuid.New().String(), distance})
}

func (p *Publisher) DownloadActive(active bool) {
	p.publish("waypoint-status", statusEvent{time.Now(), uuid.New().String(),
		fmt.Sprintf("download active: %t", active)})
}

func (p *Publisher) OfflineEditingStarted() {
	p.publish("waypoint-status", statusEvent{time.Now(), uuid.New().String(),
		"offline waypoint editing started"})
}
