package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestJobBusReportsOutcome(t *testing.T) {
	t.Parallel()
	bus := newJobBus(nil)

	id := bus.nextID(jobKindAsk)
	if id != "ask-1" {
		t.Fatalf("id = %q", id)
	}
	env := bus.run(jobKindAsk, id, time.Now(), func(context.Context) (tea.Msg, error) {
		return conversationResultMsg{kind: "ask"}, nil
	})
	if env.Snapshot.Status != jobStatusSucceeded || env.Payload == nil {
		t.Fatalf("envelope = %+v", env)
	}

	env = bus.run(jobKindOpen, bus.nextID(jobKindOpen), time.Now(), func(context.Context) (tea.Msg, error) {
		return documentResultMsg{}, errors.New("boom")
	})
	if env.Snapshot.Status != jobStatusFailed || env.Snapshot.Err != "boom" || env.Payload == nil {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestJobBusSupersedesRender(t *testing.T) {
	t.Parallel()
	bus := newJobBus(nil)
	entered := make(chan struct{})
	done := make(chan jobResultEnvelope, 1)
	go func() {
		done <- bus.run(jobKindRender, bus.nextID(jobKindRender), time.Now(), func(ctx context.Context) (tea.Msg, error) {
			close(entered)
			<-ctx.Done()
			return renderResultMsg{page: 1, err: ctx.Err()}, ctx.Err()
		})
	}()
	<-entered

	latest := bus.run(jobKindRender, bus.nextID(jobKindRender), time.Now(), func(context.Context) (tea.Msg, error) {
		return renderResultMsg{page: 2}, nil
	})
	stale := <-done

	if stale.Snapshot.Status != jobStatusSuperseded || stale.Payload != nil {
		t.Fatalf("stale envelope = %+v", stale)
	}
	if latest.Snapshot.Status != jobStatusSucceeded || latest.Payload.(renderResultMsg).page != 2 {
		t.Fatalf("latest envelope = %+v", latest)
	}
	if len(bus.inflight) != 0 {
		t.Fatalf("inflight should drain, got %v", bus.inflight)
	}
}

func TestJobBusDoesNotSupersedeQuestions(t *testing.T) {
	t.Parallel()
	bus := newJobBus(nil)
	ctx := bus.acquire(jobKindAsk, "ask-1")
	bus.acquire(jobKindAsk, "ask-2")
	if ctx.Err() != nil {
		t.Fatalf("questions must run to completion")
	}
}
