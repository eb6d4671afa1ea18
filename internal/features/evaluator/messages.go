package evaluator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"insure-crm/internal/features/notification"
)

// Message keys. Template rows override these by key.
const (
	MsgBirthdayToday     = "birthday.today"
	MsgBirthdayUpcoming  = "birthday.upcoming"
	MsgFollowUp          = "followup.tier"
	MsgStagnation        = "stagnation.normal"
	MsgStagnationUrgent  = "stagnation.urgent"
	MsgContractEntered   = "contract.entered"
	MsgContractStalled   = "contract.stalled"
	MsgContractCompleted = "contract.completed"
	MsgMeetingHour       = "meeting.1h"
	MsgMeetingSoon       = "meeting.10m"
	MsgMeetingConfirmed  = "meeting.confirmed"
	MsgMonthEnd          = "monthend"
	MsgHotLead           = "hotlead"
	MsgCareMilestone     = "care.milestone"
	MsgCareBirthday      = "care.birthday"
	MsgInvitationUsed    = "invitation.used"
)

const DefaultLocale = "ko"

type Message struct {
	Title string
	Body  string
}

var builtinMessages = map[string]Message{
	MsgBirthdayToday:     {"고객 생일 알림", "오늘은 {clientName}님의 생일입니다. 축하 메시지를 보내보세요."},
	MsgBirthdayUpcoming:  {"고객 생일 예정", "{clientName}님의 생일이 {daysUntil}일 남았습니다."},
	MsgFollowUp:          {"팔로업 필요", "{clientName}님과 마지막 연락 후 {daysSinceUpdate}일이 지났습니다."},
	MsgStagnation:        {"파이프라인 정체", "{clientName}님이 '{stageName}' 단계에 {daysSinceUpdate}일째 머물러 있습니다."},
	MsgStagnationUrgent:  {"파이프라인 장기 정체", "{clientName}님이 '{stageName}' 단계에 {daysSinceUpdate}일째 머물러 있습니다. 바로 확인하세요."},
	MsgContractEntered:   {"계약 단계 진입", "{clientName}님이 '{stageName}' 단계에 들어왔습니다. 계약을 마무리하세요."},
	MsgContractStalled:   {"계약 지연 경고", "{clientName}님의 계약이 {daysSinceUpdate}일째 진행되지 않고 있습니다."},
	MsgContractCompleted: {"계약 체결 축하", "{clientName}님과의 계약이 체결되었습니다!"},
	MsgMeetingHour:       {"미팅 1시간 전", "'{meetingTitle}' 미팅이 {minutesUntil}분 후 시작됩니다. {clientName}"},
	MsgMeetingSoon:       {"미팅 곧 시작", "'{meetingTitle}' 미팅이 {minutesUntil}분 후 시작됩니다."},
	MsgMeetingConfirmed:  {"미팅 일정 등록", "'{meetingTitle}' 미팅이 {meetingTime}에 예정되었습니다."},
	MsgMonthEnd:          {"월말 목표 점검", "이번 달 마감까지 {daysUntil}일 남았습니다. 진행 중인 고객 {openClients}명을 확인하세요."},
	MsgHotLead:           {"핫 리드", "중요 고객 {clientName}님에게 {hoursSinceUpdate}시간 동안 후속 조치가 없었습니다."},
	MsgCareMilestone:     {"기존 고객 관리", "{clientName}님과 계약한 지 {months}개월이 되었습니다. 안부 연락을 드려보세요."},
	MsgCareBirthday:      {"계약 고객 생일", "계약 고객 {clientName}님의 생일이 {daysUntil}일 남았습니다."},
	MsgInvitationUsed:    {"팀 초대 수락", "{inviteeName}님이 초대를 수락하고 팀에 합류했습니다."},
}

// Vars are substituted into {name} placeholders.
type Vars map[string]interface{}

// Render replaces every {key} in text with vars[key]. Unknown placeholders are left as they are.
func Render(text string, vars Vars) string {
	if len(vars) == 0 || !strings.Contains(text, "{") {
		return text
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Catalog resolves message keys to text, preferring active template rows.
type Catalog struct {
	mu        sync.RWMutex
	overrides map[string]Message
	templates notification.TemplateRepository
	locale    string
}

func NewCatalog(templates notification.TemplateRepository) *Catalog {
	return &Catalog{
		overrides: map[string]Message{},
		templates: templates,
		locale:    DefaultLocale,
	}
}

// Refresh reloads overrides from the template table. On error the previous overrides stay.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.templates == nil {
		return nil
	}
	rows, err := c.templates.ListActive(ctx, c.locale)
	if err != nil {
		return err
	}
	overrides := make(map[string]Message, len(rows))
	for _, t := range rows {
		overrides[t.Key] = Message{Title: t.Title, Body: t.Message}
	}
	c.mu.Lock()
	c.overrides = overrides
	c.mu.Unlock()
	return nil
}

// SetOverride replaces the text for one key until the next Refresh.
func (c *Catalog) SetOverride(key string, m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[key] = m
}

func (c *Catalog) lookup(key string) Message {
	msg := builtinMessages[key]
	c.mu.RLock()
	o, ok := c.overrides[key]
	c.mu.RUnlock()
	if ok {
		if o.Title != "" {
			msg.Title = o.Title
		}
		if o.Body != "" {
			msg.Body = o.Body
		}
	}
	return msg
}

// Render returns the title and message for key.
func (c *Catalog) Render(key string, vars Vars) (string, string) {
	msg := c.lookup(key)
	return Render(msg.Title, vars), Render(msg.Body, vars)
}
