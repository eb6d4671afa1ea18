package delivery

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"insure-crm/internal/features/notification"

	api "github.com/twilio/twilio-go/rest/api/v2010"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		region  string
		want    string
		wantErr bool
	}{
		{"010-1234-5678", "KR", "+821012345678", false},
		{"+82 10 1234 5678", "US", "+821012345678", false},
		{"123", "KR", "", true},
		{"not a number", "KR", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizePhone(tt.in, tt.region)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

type fakeTwilio struct {
	params *api.CreateMessageParams
}

func (f *fakeTwilio) CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error) {
	f.params = params
	return &api.ApiV2010Message{}, nil
}

func TestTwilioSenderNormalizesRecipient(t *testing.T) {
	fake := &fakeTwilio{}
	s := &TwilioSender{api: fake, from: "+15550001111", region: "KR"}

	err := s.Send(context.Background(), &notification.Notification{Recipient: "010-1234-5678", Title: "미팅", Message: "10분 후"})
	if err != nil {
		t.Fatal(err)
	}
	if fake.params == nil || fake.params.To == nil || *fake.params.To != "+821012345678" {
		t.Errorf("unexpected params %+v", fake.params)
	}

	err = s.Send(context.Background(), &notification.Notification{Recipient: "12"})
	if !IsPermanent(err) {
		t.Errorf("bad number should be permanent, got %v", err)
	}
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	var gotTo []string
	var gotMsg string
	s := NewSMTPSender(SMTPConfig{Host: "mail.local", Port: 25, From: "noreply@insure-crm.local"})
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		if addr != "mail.local:25" {
			t.Errorf("addr %s", addr)
		}
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	err := s.Send(context.Background(), &notification.Notification{Recipient: "agent@example.com", Title: "생일 알림", Message: "오늘은 생일입니다"})
	if err != nil {
		t.Fatal(err)
	}
	if len(gotTo) != 1 || gotTo[0] != "agent@example.com" {
		t.Errorf("to %v", gotTo)
	}
	if !strings.Contains(gotMsg, "Subject: =?utf-8?q?") || !strings.HasSuffix(gotMsg, "오늘은 생일입니다") {
		t.Errorf("message %q", gotMsg)
	}

	if err := s.Send(context.Background(), &notification.Notification{Recipient: "agent-1"}); !IsPermanent(err) {
		t.Errorf("non-address recipient should be permanent, got %v", err)
	}
}

func TestInAppSenderPushesToHub(t *testing.T) {
	hub := notification.NewHub(nil)
	s := &InAppSender{Hub: hub}
	if err := s.Send(context.Background(), &notification.Notification{UserID: "nobody"}); err != nil {
		t.Errorf("in-app send without sockets should succeed: %v", err)
	}
}
