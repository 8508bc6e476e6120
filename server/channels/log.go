package channels

import (
	"context"

	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/server/models"
	"go.uber.org/zap"
)

// LogSender writes alerts to the logger instead of a provider. Used in dev
// mode and when a channel has no provider configured.
type LogSender struct {
	channel models.Channel
	logg    *zap.SugaredLogger
}

func NewLogSender(channel models.Channel, logg *zap.SugaredLogger) *LogSender {
	return &LogSender{channel: channel, logg: logger.OrDefault(logg)}
}

func (s *LogSender) Channel() models.Channel {
	return s.channel
}

func (s *LogSender) Send(ctx context.Context, delivery Delivery) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := NewMessageID(s.channel)
	s.logg.Infof("%v%v to %v (%v): %q", prefix, s.channel, delivery.Contact.Name, messageID, delivery.Message)

	return messageID, nil
}
