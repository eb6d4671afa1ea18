package delivery

import (
	"context"
	"fmt"

	"insure-crm/internal/features/notification"

	"github.com/nyaruka/phonenumbers"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// NormalizePhone converts a local or international number to E.164.
// Numbers without a country code are read in defaultRegion.
func NormalizePhone(num, defaultRegion string) (string, error) {
	parsed, err := phonenumbers.Parse(num, defaultRegion)
	if err != nil {
		return "", fmt.Errorf("invalid phone number %q: %w", num, err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number %q", num)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

type messageCreator interface {
	CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error)
}

// TwilioSender sends SMS through the Twilio messages API.
type TwilioSender struct {
	api    messageCreator
	from   string
	region string
}

func NewTwilioSender(accountSID, authToken, from, region string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{api: client.Api, from: from, region: region}
}

func (s *TwilioSender) Channel() notification.Channel { return notification.ChannelSMS }

func (s *TwilioSender) Send(ctx context.Context, n *notification.Notification) error {
	to, err := NormalizePhone(n.Recipient, s.region)
	if err != nil {
		return Permanent(err)
	}

	params := &api.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(n.Title + "\n" + n.Message)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	if resp.ErrorCode != nil {
		return fmt.Errorf("twilio error %d", *resp.ErrorCode)
	}
	return nil
}
