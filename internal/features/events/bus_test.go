package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLocalBusDeliversToSubscribers(t *testing.T) {
	bus := NewLocalBus(zap.NewNop())

	var mu sync.Mutex
	var got []string
	bus.Subscribe(ClientStageChanged, func(ctx context.Context, e Event) error {
		var data StageChangedData
		if err := e.Decode(&data); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, data.ClientID)
		mu.Unlock()
		return nil
	})

	for _, id := range []string{"c1", "c2"} {
		e, err := New(ClientStageChanged, StageChangedData{AgentID: "a1", ClientID: id})
		if err != nil {
			t.Fatal(err)
		}
		if err := bus.Publish(context.Background(), e); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bus.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Errorf("got %v, want [c1 c2]", got)
	}
}

func TestLocalBusIsolatesHandlerFailures(t *testing.T) {
	bus := NewLocalBus(zap.NewNop())

	calls := 0
	bus.Subscribe(InvitationUsed, func(ctx context.Context, e Event) error {
		panic("boom")
	})
	bus.Subscribe(InvitationUsed, func(ctx context.Context, e Event) error {
		return errors.New("store down")
	})
	bus.Subscribe(InvitationUsed, func(ctx context.Context, e Event) error {
		calls++
		return nil
	})

	e, _ := New(InvitationUsed, InvitationUsedData{InviterID: "a1", InviteeName: "Kim"})
	if err := bus.Publish(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bus.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("later handler ran %d times, want 1", calls)
	}
}

func TestLocalBusRejectsAfterClose(t *testing.T) {
	bus := NewLocalBus(zap.NewNop())
	if err := bus.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	e, _ := New(MeetingScheduled, MeetingScheduledData{AgentID: "a1", MeetingID: "m1"})
	if err := bus.Publish(context.Background(), e); !errors.Is(err, ErrBusClosed) {
		t.Errorf("got %v, want ErrBusClosed", err)
	}
}

func TestIsKnown(t *testing.T) {
	if !IsKnown(MeetingScheduled) {
		t.Error("meeting.scheduled should be known")
	}
	if IsKnown("client.deleted") {
		t.Error("client.deleted should not be known")
	}
}
