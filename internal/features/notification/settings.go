package notification

import (
	"fmt"
	"time"
)

// Settings are a user's delivery preferences. A user without a stored row gets DefaultSettings.
type Settings struct {
	UserID            string                    `bson:"user_id" json:"user_id"`
	Channels          map[Channel]bool          `bson:"channels" json:"channels"`
	Categories        map[NotificationType]bool `bson:"categories" json:"categories"`
	QuietHoursEnabled bool                      `bson:"quiet_hours_enabled" json:"quiet_hours_enabled"`
	QuietHoursStart   string                    `bson:"quiet_hours_start,omitempty" json:"quiet_hours_start,omitempty"`
	QuietHoursEnd     string                    `bson:"quiet_hours_end,omitempty" json:"quiet_hours_end,omitempty"`
	SuppressWeekends  bool                      `bson:"suppress_weekends" json:"suppress_weekends"`
	Timezone          string                    `bson:"timezone,omitempty" json:"timezone,omitempty"`
	UpdatedAt         time.Time                 `bson:"updated_at" json:"updated_at"`
}

func DefaultSettings(userID string) *Settings {
	s := &Settings{
		UserID:     userID,
		Channels:   map[Channel]bool{},
		Categories: map[NotificationType]bool{},
	}
	for _, c := range AllChannels {
		s.Channels[c] = true
	}
	for _, t := range AllTypes {
		s.Categories[t] = true
	}
	return s
}

// ChannelEnabled treats a channel missing from the map as enabled.
func (s *Settings) ChannelEnabled(c Channel) bool {
	if s == nil {
		return true
	}
	v, ok := s.Channels[c]
	return !ok || v
}

func (s *Settings) TypeEnabled(t NotificationType) bool {
	if s == nil {
		return true
	}
	v, ok := s.Categories[t]
	return !ok || v
}

func (s *Settings) Validate() error {
	for c := range s.Channels {
		if !c.Valid() {
			return &ValidationError{Field: "channels", Reason: fmt.Sprintf("unknown channel %q", c)}
		}
	}
	for t := range s.Categories {
		if !t.Valid() {
			return &ValidationError{Field: "categories", Reason: fmt.Sprintf("unknown type %q", t)}
		}
	}
	if s.QuietHoursEnabled {
		if _, err := parseClock(s.QuietHoursStart); err != nil {
			return &ValidationError{Field: "quiet_hours_start", Reason: "must be HH:MM"}
		}
		if _, err := parseClock(s.QuietHoursEnd); err != nil {
			return &ValidationError{Field: "quiet_hours_end", Reason: "must be HH:MM"}
		}
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return &ValidationError{Field: "timezone", Reason: "unknown zone"}
		}
	}
	return nil
}

// location prefers the user's zone and falls back to the deployment zone.
func (s *Settings) location(fallback *time.Location) *time.Location {
	if s.Timezone != "" {
		if loc, err := time.LoadLocation(s.Timezone); err == nil {
			return loc
		}
	}
	return fallback
}

// parseClock returns minutes after midnight for "HH:MM".
func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// DeferUntil reports when a delivery attempted at now may go out. It returns now
// itself when nothing holds the delivery back.
func (s *Settings) DeferUntil(now time.Time, fallback *time.Location) time.Time {
	if s == nil {
		return now
	}
	local := now.In(s.location(fallback))

	if s.QuietHoursEnabled {
		if end, ok := s.quietEnd(local); ok {
			local = end
		}
	}
	if s.SuppressWeekends {
		for local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
			y, m, d := local.AddDate(0, 0, 1).Date()
			local = time.Date(y, m, d, 0, 0, 0, 0, local.Location())
		}
		// Monday midnight may itself be inside quiet hours.
		if s.QuietHoursEnabled {
			if end, ok := s.quietEnd(local); ok {
				local = end
			}
		}
	}
	if local.Equal(now) {
		return now
	}
	return local
}

// quietEnd returns the end of the quiet window containing local, if any.
func (s *Settings) quietEnd(local time.Time) (time.Time, bool) {
	start, err := parseClock(s.QuietHoursStart)
	if err != nil {
		return time.Time{}, false
	}
	end, err := parseClock(s.QuietHoursEnd)
	if err != nil || start == end {
		return time.Time{}, false
	}

	minute := local.Hour()*60 + local.Minute()
	y, m, d := local.Date()
	endToday := time.Date(y, m, d, end/60, end%60, 0, 0, local.Location())

	if start < end {
		if minute >= start && minute < end {
			return endToday, true
		}
		return time.Time{}, false
	}
	// window wraps midnight, e.g. 22:00-08:00
	if minute >= start {
		return endToday.AddDate(0, 0, 1), true
	}
	if minute < end {
		return endToday, true
	}
	return time.Time{}, false
}
