package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	waypointmanager "github.com/ME398-Cooperative-Drone-Lifting/apm-planner"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/settings"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/telemetry"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/types"
	"github.com/ME398-Cooperative-Drone-Lifting/apm-planner/internal/wire"
)

var (
	defaultFlagSet    = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	deviceID          = defaultFlagSet.String("device_id", "gcs0", "Device id used in telemetry topics")
	serialDevice      = defaultFlagSet.String("serial", "", "Serial device of the vehicle link")
	serialBaud        = defaultFlagSet.Int("baud", 57600, "Serial baud rate")
	udpAddress        = defaultFlagSet.String("udp", ":14550", "UDP listen address for the vehicle link")
	vehicleSystemID   = defaultFlagSet.Int("vehicle_system_id", 1, "MAVLink system id of the vehicle")
	systemID          = defaultFlagSet.Int("system_id", 255, "MAVLink system id of this ground station")
	componentID       = defaultFlagSet.Int("component_id", 190, "MAVLink component id of this ground station")
	settingsPath      = defaultFlagSet.String("settings", "wpmanager.yaml", "Settings file path")
	mqttBrokerAddress = defaultFlagSet.String("mqtt_broker", "", "Optional MQTT broker for telemetry")
	mqttUsername      = defaultFlagSet.String("mqtt_username", "", "MQTT username")
	mqttPassword      = defaultFlagSet.String("mqtt_password", "", "MQTT password")
	missionFile       = defaultFlagSet.String("mission", "", "Mission file to load into the draft on start")
)

func main() {
	defaultFlagSet.Parse(os.Args[1:])

	terminationSignals := make(chan os.Signal, 1)
	signal.Notify(terminationSignals, syscall.SIGINT, syscall.SIGTERM)
	ctx, quitFunc := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	store, err := settings.Open(*settingsPath)
	if err != nil {
		log.Fatal(err)
	}

	node, err := wire.NewNode(wire.NodeConfig{
		SerialDevice: *serialDevice,
		SerialBaud:   *serialBaud,
		UDPAddress:   *udpAddress,
		SystemID:     byte(*systemID),
		ComponentID:  byte(*componentID),
	})
	if err != nil {
		log.Fatal(err)
	}

	var notifier types.Notifier = types.NopNotifier{}
	if *mqttBrokerAddress != "" {
		mqttClient := newMQTTClient()
		defer mqttClient.Disconnect(1000)
		notifier = telemetry.NewPublisher(mqttClient, *deviceID)
	}

	manager := waypointmanager.New(waypointmanager.Config{
		VehicleSystemID:   uint8(*vehicleSystemID),
		TargetComponentID: uint8(*componentID),
		Sender:            wire.NewPacedSender(node),
		Notifier:          notifier,
		Settings:          store,
	})

	if *missionFile != "" {
		if err := manager.Load(*missionFile); err != nil {
			log.Printf("Could not load mission %s: %v", *missionFile, err)
		}
	}

	events := make(chan types.Event, 32)
	go node.Run(ctx, &wg, events)
	go manager.Run(ctx, &wg, events)

	log.Printf("Waypoint manager up, vehicle system id %d", *vehicleSystemID)

	<-terminationSignals
	log.Printf("Shutting down..")
	quitFunc()
	log.Printf("Waiting for routines to finish..")
	wg.Wait()
	log.Printf("Signing off - BYE")
}

func newMQTTClient() mqtt.Client {
	opts := mqtt.NewClientOptions().
		AddBroker(*mqttBrokerAddress).
		SetUsername(*mqttUsername).
		SetPassword(*mqttPassword)
	client := mqtt.NewClient(opts)
	tok := client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		log.Fatalf("Could not connect to MQTT broker: %v", err)
	}
	log.Printf("MQTT connected to %s", *mqttBrokerAddress)
	return client
}
