package notify

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

const DefaultMQTTTopic = "ponto/attendance"

// MQTTClient is the part of mqtt.Client used for publishing.
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes every attendance as a JSON Message, e.g. for
// door controllers or HR systems listening on the broker.
type MQTTPublisher struct {
	client MQTTClient
	topic  string
	qos    byte
}

func NewMQTTPublisher(client MQTTClient, topic string, qos byte) *MQTTPublisher {
	if topic == "" {
		topic = DefaultMQTTTopic
	}
	if qos > 2 {
		qos = 1
	}
	return &MQTTPublisher{client: client, topic: topic, qos: qos}
}

func (p *MQTTPublisher) AttendanceMarked(ctx context.Context, employee domain.Employee, record domain.Attendance) error {
	payload, err := json.Marshal(NewMessage(employee, record))
	if err != nil {
		return fmt.Errorf("encode attendance message: %w", err)
	}

	token := p.client.Publish(p.topic, p.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", p.topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

var _ Notifier = (*MQTTPublisher)(nil)
