package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
)

// GateService publishes open-gate commands to the lot's gate controller over
// AWS IoT Core MQTT. Commands are best effort: the occupancy ledger has
// already committed by the time a gate command goes out.
type GateService struct {
	iotDataClient *iotdataplane.Client
}

func NewGateService(iotDataClient *iotdataplane.Client) *GateService {
	return &GateService{iotDataClient: iotDataClient}
}

type gateCommandPayload struct {
	Command   string `json:"command"`
	Direction string `json:"direction"`
	Plate     string `json:"plate"`
}

func (s *GateService) OpenGate(ctx context.Context, thingName string, direction string, plate string) error {
	if s.iotDataClient == nil {
		return fmt.Errorf("IoT data plane client is not configured")
	}

	topic := fmt.Sprintf("parking/command/gates/%s", thingName)
	payload, err := json.Marshal(gateCommandPayload{
		Command:   "open",
		Direction: direction,
		Plate:     plate,
	})
	if err != nil {
		return fmt.Errorf("marshaling gate command: %w", err)
	}

	_, err = s.iotDataClient.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     1,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("publishing gate command to %s: %w", topic, err)
	}

	log.Printf("GateService: sent open command to '%s' (%s, plate %s)", thingName, direction, plate)
	return nil
}
