package notification

import (
	"testing"
	"time"
)

func TestDeferUntil(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skip("zoneinfo unavailable")
	}
	at := func(day, hour, min int) time.Time {
		// March 2026: the 10th is a Tuesday, the 14th a Saturday
		return time.Date(2026, 3, day, hour, min, 0, 0, seoul)
	}

	overnight := &Settings{QuietHoursEnabled: true, QuietHoursStart: "22:00", QuietHoursEnd: "08:00"}
	daytime := &Settings{QuietHoursEnabled: true, QuietHoursStart: "12:00", QuietHoursEnd: "13:30"}
	weekends := &Settings{SuppressWeekends: true}
	both := &Settings{SuppressWeekends: true, QuietHoursEnabled: true, QuietHoursStart: "22:00", QuietHoursEnd: "08:00"}

	tests := []struct {
		name     string
		settings *Settings
		now      time.Time
		want     time.Time
	}{
		{"nil settings", nil, at(10, 23, 0), at(10, 23, 0)},
		{"outside overnight window", overnight, at(10, 15, 0), at(10, 15, 0)},
		{"late evening wraps to next morning", overnight, at(10, 23, 15), at(11, 8, 0)},
		{"early morning ends same day", overnight, at(11, 6, 30), at(11, 8, 0)},
		{"window end is exclusive", overnight, at(11, 8, 0), at(11, 8, 0)},
		{"daytime window", daytime, at(10, 12, 45), at(10, 13, 30)},
		{"saturday moves to monday", weekends, at(14, 10, 0), at(16, 0, 0)},
		{"weekday untouched", weekends, at(13, 10, 0), at(13, 10, 0)},
		{"friday night lands on monday morning", both, at(13, 23, 0), at(16, 8, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.settings.DeferUntil(tt.now, seoul)
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSettingsToggles(t *testing.T) {
	s := &Settings{
		Channels:   map[Channel]bool{ChannelEmail: false},
		Categories: map[NotificationType]bool{TypeTeamUpdate: false},
	}
	if s.ChannelEnabled(ChannelEmail) {
		t.Error("email should be disabled")
	}
	if !s.ChannelEnabled(ChannelSMS) {
		t.Error("unlisted channel should default to enabled")
	}
	if s.TypeEnabled(TypeTeamUpdate) || !s.TypeEnabled(TypeGoalDeadline) {
		t.Error("category toggles wrong")
	}
}
