package trigger

import (
	"context"
	"errors"
	"time"

	"insure-crm/internal/features/business"
	"insure-crm/internal/features/evaluator"
	"insure-crm/internal/features/events"
	"insure-crm/internal/features/notification"

	"go.uber.org/zap"
)

// RealtimeTriggers are the hooks run when business code reports a domain event.
// Their errors are logged by the bus and never reach the publisher.
type RealtimeTriggers struct {
	Store    business.Store
	Realtime *evaluator.Realtime
	Writer   notification.Writer
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewRealtimeTriggers(store business.Store, registry *evaluator.Registry, writer notification.Writer, logger *zap.Logger) *RealtimeTriggers {
	return &RealtimeTriggers{
		Store:    store,
		Realtime: registry.Realtime,
		Writer:   writer,
		Logger:   logger,
		Now:      time.Now,
	}
}

// Register subscribes every hook to its event.
func (t *RealtimeTriggers) Register(bus events.Bus) {
	bus.Subscribe(events.ClientStageChanged, func(ctx context.Context, e events.Event) error {
		var data events.StageChangedData
		if err := e.Decode(&data); err != nil {
			return err
		}
		return t.OnClientStageChanged(ctx, data.AgentID, data.ClientID)
	})
	bus.Subscribe(events.MeetingScheduled, func(ctx context.Context, e events.Event) error {
		var data events.MeetingScheduledData
		if err := e.Decode(&data); err != nil {
			return err
		}
		return t.OnMeetingScheduled(ctx, data.AgentID, data.MeetingID)
	})
	bus.Subscribe(events.InvitationUsed, func(ctx context.Context, e events.Event) error {
		var data events.InvitationUsedData
		if err := e.Decode(&data); err != nil {
			return err
		}
		return t.OnInvitationUsed(ctx, data.InviterID, data.InviteeID, data.InviteeName)
	})
}

func (t *RealtimeTriggers) OnClientStageChanged(ctx context.Context, agentID, clientID string) error {
	agent, err := t.Store.GetAgent(ctx, agentID)
	if err != nil || agent == nil {
		return t.missing(err, "agent", agentID)
	}
	client, err := t.Store.GetClient(ctx, agentID, clientID)
	if err != nil || client == nil {
		return t.missing(err, "client", clientID)
	}
	if client.StageID == "" {
		return nil
	}
	stage, err := t.Store.GetStage(ctx, agentID, client.StageID)
	if err != nil || stage == nil {
		return t.missing(err, "stage", client.StageID)
	}

	cand, ok := t.Realtime.StageChanged(*agent, client, stage)
	if !ok {
		return nil
	}
	return t.write(ctx, cand)
}

func (t *RealtimeTriggers) OnMeetingScheduled(ctx context.Context, agentID, meetingID string) error {
	agent, err := t.Store.GetAgent(ctx, agentID)
	if err != nil || agent == nil {
		return t.missing(err, "agent", agentID)
	}
	meeting, err := t.Store.GetMeeting(ctx, agentID, meetingID)
	if err != nil || meeting == nil {
		return t.missing(err, "meeting", meetingID)
	}

	var errs []error
	for _, cand := range t.Realtime.MeetingScheduled(*agent, meeting, t.Now()) {
		if err := t.write(ctx, cand); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *RealtimeTriggers) OnInvitationUsed(ctx context.Context, inviterID, inviteeID, inviteeName string) error {
	inviter, err := t.Store.GetAgent(ctx, inviterID)
	if err != nil || inviter == nil {
		return t.missing(err, "agent", inviterID)
	}
	return t.write(ctx, t.Realtime.InvitationUsed(*inviter, inviteeID, inviteeName))
}

func (t *RealtimeTriggers) write(ctx context.Context, cand notification.Candidate) error {
	_, err := t.Writer.CreateNotification(ctx, cand)
	if errors.Is(err, notification.ErrDuplicate) {
		return nil
	}
	return err
}

// missing passes store errors through; an absent row is logged and ignored.
func (t *RealtimeTriggers) missing(err error, kind, id string) error {
	if err != nil {
		return err
	}
	t.Logger.Warn("Event refers to a missing row", zap.String("kind", kind), zap.String("id", id))
	return nil
}
