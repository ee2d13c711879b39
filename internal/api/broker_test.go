package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("job1")

	b.Publish("job1", SolveEvent{Type: "solve.started", Data: map[string]any{"id": "job1"}})
	select {
	case got := <-ch:
		if got.Type != "solve.started" {
			t.Fatalf("got type %s", got.Type)
		}
		if got.Data["id"].(string) != "job1" {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe("job1", ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
}

func TestBrokerIsolatesJobs(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("a")
	defer b.Unsubscribe("a", ch)

	b.Publish("b", SolveEvent{Type: "solve.started"})
	select {
	case evt := <-ch:
		t.Fatalf("received event for another job: %+v", evt)
	default:
	}
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("a")
	defer b.Unsubscribe("a", ch)

	// Channel buffer is 8; publishing more must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			b.Publish("a", SolveEvent{Type: "solve.formulated"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}
