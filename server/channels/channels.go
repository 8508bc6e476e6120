package channels

import (
	"context"
	"fmt"
	"time"

	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/models"
	"github.com/google/uuid"
)

const (
	EmergencyBanner = "🚨 EMERGENCY ALERT 🚨"
	EmailSubject    = "Emergency Alert - Police Interaction in Progress"
	AutomatedFooter = "This is an automated alert from RightGuard AI."
)

var prefix = colors.Prefix("channels")

// Delivery is one message for one contact over one channel
type Delivery struct {
	Contact  models.EmergencyContact
	Message  string
	Incident models.Incident
	Test     bool
}

// Sender delivers an alert over a single channel and returns the provider message id
type Sender interface {
	Channel() models.Channel
	Send(ctx context.Context, delivery Delivery) (string, error)
}

// NewMessageID returns an id of the form <channel>_<uuid> for providers that don't issue one
func NewMessageID(channel models.Channel) string {
	return fmt.Sprintf("%s_%s", channel, uuid.NewString())
}

// AlertBody renders the text body shared by the sms & email channels
func AlertBody(delivery Delivery) string {
	if delivery.Test {
		return delivery.Message
	}

	return fmt.Sprintf("%s\n\n%s\n\nLocation: %s\nTime: %s\n\n%s",
		EmergencyBanner,
		delivery.Message,
		delivery.Incident.Location,
		delivery.Incident.Timestamp.Format(time.RFC1123),
		AutomatedFooter,
	)
}

// Registry maps each channel to its sender
type Registry map[models.Channel]Sender

func NewRegistry(senders ...Sender) Registry {
	registry := Registry{}
	for _, sender := range senders {
		registry[sender.Channel()] = sender
	}
	return registry
}
