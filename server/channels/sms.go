package channels

import (
	"context"
	"errors"
	"fmt"

	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/shared"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/time/rate"
)

var ErrNoPhone = errors.New("contact has no phone number")

// MessageCreator is the part of the twilio api the sms sender uses
type MessageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

type SMSSender struct {
	api     MessageCreator
	config  shared.TwilioConfig
	limiter *rate.Limiter
}

func NewSMSSender(config shared.TwilioConfig) *SMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return newSMSSender(client.Api, config)
}

func newSMSSender(api MessageCreator, config shared.TwilioConfig) *SMSSender {
	ratePerSecond := config.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}

	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}

	return &SMSSender{
		api:     api,
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (s *SMSSender) Channel() models.Channel {
	return models.SMS
}

func (s *SMSSender) Send(ctx context.Context, delivery Delivery) (string, error) {
	if delivery.Contact.Phone == "" {
		return "", ErrNoPhone
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("sms rate limiter: %w", err)
	}

	params := &openapi.CreateMessageParams{}
	params.SetMessagingServiceSid(s.config.MessagingServiceSid)
	params.SetTo(delivery.Contact.Phone)
	params.SetBody(AlertBody(delivery))

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("failed to send SMS to %s: %w", delivery.Contact.Phone, err)
	}

	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return "", fmt.Errorf("twilio: %s", *resp.ErrorMessage)
	}

	if resp.Sid != nil && *resp.Sid != "" {
		return *resp.Sid, nil
	}
	return NewMessageID(models.SMS), nil
}
