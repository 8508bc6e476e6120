package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/shared"
	"github.com/segmentio/kafka-go"
)

// PushEvent is published for the push gateway to deliver to the contact's devices
type PushEvent struct {
	MessageID  string    `json:"message_id"`
	ContactID  string    `json:"contact_id"`
	UserID     string    `json:"user_id"`
	IncidentID string    `json:"incident_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Location   string    `json:"location"`
	Test       bool      `json:"test"`
	SentAt     time.Time `json:"sent_at"`
}

// MessageWriter is the part of kafka.Writer the push sender uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type PushSender struct {
	writer MessageWriter
}

func NewPushSender(config shared.PushConfig) (*PushSender, error) {
	if len(config.Brokers) == 0 || config.Topic == "" {
		return nil, fmt.Errorf("missing push configuration: brokers or topic is empty")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &PushSender{writer: writer}, nil
}

func (s *PushSender) Channel() models.Channel {
	return models.Push
}

func (s *PushSender) Send(ctx context.Context, delivery Delivery) (string, error) {
	event := PushEvent{
		MessageID:  NewMessageID(models.Push),
		ContactID:  delivery.Contact.ID,
		UserID:     delivery.Contact.UserID,
		IncidentID: delivery.Incident.ID,
		Title:      EmergencyBanner,
		Body:       delivery.Message,
		Location:   delivery.Incident.Location,
		Test:       delivery.Test,
		SentAt:     time.Now(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return "", err
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(delivery.Contact.ID), Value: value})
	if err != nil {
		return "", fmt.Errorf("failed to publish push event for contact %s: %w", delivery.Contact.ID, err)
	}

	return event.MessageID, nil
}

func (s *PushSender) Close() error {
	return s.writer.Close()
}
