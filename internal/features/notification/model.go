package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	TypeMeetingReminder  NotificationType = "meeting_reminder"
	TypeGoalAchievement  NotificationType = "goal_achievement"
	TypeGoalDeadline     NotificationType = "goal_deadline"
	TypeNewReferral      NotificationType = "new_referral"
	TypeClientMilestone  NotificationType = "client_milestone"
	TypeTeamUpdate       NotificationType = "team_update"
	TypeSystemAlert      NotificationType = "system_alert"
	TypeBirthdayReminder NotificationType = "birthday_reminder"
	TypeFollowUpReminder NotificationType = "follow_up_reminder"
	TypeContractExpiry   NotificationType = "contract_expiry"
	TypePaymentDue       NotificationType = "payment_due"
)

var AllTypes = []NotificationType{
	TypeMeetingReminder, TypeGoalAchievement, TypeGoalDeadline, TypeNewReferral, TypeClientMilestone,
	TypeTeamUpdate, TypeSystemAlert, TypeBirthdayReminder, TypeFollowUpReminder, TypeContractExpiry, TypePaymentDue,
}

func (t NotificationType) Valid() bool {
	for _, v := range AllTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelKakao Channel = "kakao"
)

var AllChannels = []Channel{ChannelInApp, ChannelEmail, ChannelSMS, ChannelPush, ChannelKakao}

func (c Channel) Valid() bool {
	for _, v := range AllChannels {
		if v == c {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusRead, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses only allow the read/unread toggle afterwards.
func (s Status) Terminal() bool {
	return s == StatusRead || s == StatusFailed || s == StatusCancelled
}

// Notification is one queue row. ReadAt is set if and only if Status is read.
type Notification struct {
	ID           primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID       string                 `bson:"user_id" json:"user_id"`
	Type         NotificationType       `bson:"type" json:"type"`
	Channel      Channel                `bson:"channel" json:"channel"`
	Priority     Priority               `bson:"priority" json:"priority"`
	Title        string                 `bson:"title" json:"title"`
	Message      string                 `bson:"message" json:"message"`
	Recipient    string                 `bson:"recipient" json:"recipient"`
	Status       Status                 `bson:"status" json:"status"`
	IsRead       bool                   `bson:"is_read" json:"is_read"`
	CreatedAt    time.Time              `bson:"created_at" json:"created_at"`
	ScheduledAt  time.Time              `bson:"scheduled_at" json:"scheduled_at"`
	SentAt       *time.Time             `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
	DeliveredAt  *time.Time             `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	ReadAt       *time.Time             `bson:"read_at,omitempty" json:"read_at,omitempty"`
	RetryCount   int                    `bson:"retry_count" json:"retry_count"`
	MaxRetries   int                    `bson:"max_retries" json:"max_retries"`
	ErrorMessage string                 `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Metadata     map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	DedupKey     string                 `bson:"dedup_key,omitempty" json:"-"`
	LockedUntil  *time.Time             `bson:"locked_until,omitempty" json:"-"`
}

// Candidate is an unpersisted notification proposed by an evaluator or hook.
// It only reaches the store through the Writer.
type Candidate struct {
	UserID      string
	Type        NotificationType
	Channel     Channel
	Priority    Priority
	Title       string
	Message     string
	Recipient   string
	ScheduledAt *time.Time
	Metadata    map[string]interface{}
	// DedupKey, when set, makes the insert idempotent for that key.
	DedupKey string
}

// ListOptions filter a user's queue. Zero values mean "no filter".
type ListOptions struct {
	Limit      int64
	Offset     int64
	Status     Status
	Type       NotificationType
	UnreadOnly bool
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// Normalize clamps paging values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

type Stats struct {
	Days      int              `json:"days"`
	Since     time.Time        `json:"since"`
	Total     int64            `json:"total"`
	Unread    int64            `json:"unread"`
	ByStatus  map[string]int64 `json:"by_status"`
	ByChannel map[string]int64 `json:"by_channel"`
	ByType    map[string]int64 `json:"by_type"`
}

// History is written once per terminal delivery outcome.
type History struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NotificationID primitive.ObjectID `bson:"notification_id" json:"notification_id"`
	UserID         string             `bson:"user_id" json:"user_id"`
	Type           NotificationType   `bson:"type" json:"type"`
	Channel        Channel            `bson:"channel" json:"channel"`
	Status         Status             `bson:"status" json:"status"`
	Attempts       int                `bson:"attempts" json:"attempts"`
	ErrorMessage   string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	OccurredAt     time.Time          `bson:"occurred_at" json:"occurred_at"`
}

// Template overrides the built-in text for one message key.
type Template struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Key       string             `bson:"key" json:"key"`
	Locale    string             `bson:"locale" json:"locale"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Active    bool               `bson:"active" json:"active"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Rule is a data-driven trigger evaluated per client with a tengo condition script.
type Rule struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	UserID     string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Active     bool               `bson:"active" json:"active"`
	Type       NotificationType   `bson:"type" json:"type"`
	Priority   Priority           `bson:"priority,omitempty" json:"priority,omitempty"`
	Channel    Channel            `bson:"channel,omitempty" json:"channel,omitempty"`
	Condition  string             `bson:"condition" json:"condition"`
	Title      string             `bson:"title" json:"title"`
	Message    string             `bson:"message" json:"message"`
	OncePerDay bool               `bson:"once_per_day" json:"once_per_day"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
