// Package service holds outbound integrations: the SMS gateway and the
// RabbitMQ event publisher.
package service

import (
	"context"
	"errors"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// SMSSender delivers a text message to a phone number in E.164 form.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// TwilioSender sends SMS through the Twilio REST API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender builds a sender from account credentials and the sending
// number.
func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{client: client, from: from}
}

func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	if to == "" {
		return errors.New("sms: empty recipient")
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)
	_, err := s.client.Api.CreateMessage(params)
	return err
}

// LogSender is the development fallback when Twilio credentials are not
// configured: it logs the message instead of sending it, so OTP flows stay
// testable locally.
type LogSender struct{ Log *zap.Logger }

func (s *LogSender) Send(ctx context.Context, to, body string) error {
	s.Log.Info("sms (dev, not sent)", zap.String("to", to), zap.String("body", body))
	return nil
}
