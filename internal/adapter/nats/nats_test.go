package nats

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
)

func TestSubjectFor(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		eventType string
		want      string
	}{
		{"session event", "sess-1", swarm.EventBlocked, "swarm.events.sess-1.blocked"},
		{"global event", swarm.GlobalSession, swarm.EventSupervisionLevel, "swarm.events.global.supervision_level"},
		{"empty session", "", swarm.EventSnapshot, "swarm.events.global.snapshot"},
		{"dotted session", "host.7", swarm.EventReady, "swarm.events.host_7.ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := swarm.Event{Type: tt.eventType, SessionID: tt.sessionID}
			if got := subjectFor(ev); got != tt.want {
				t.Errorf("subjectFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Relay {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	r, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return r
}

func TestRelay_BroadcastEvent(t *testing.T) {
	r := testConnect(t)
	ctx := context.Background()

	ev := swarm.NewEvent(swarm.EventEscalation, "relay-test-"+t.Name(), map[string]any{
		"reasoning": "needs human review",
	})

	consumer, err := r.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subjectFor(ev),
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		t.Fatalf("create consumer: %v", err)
	}

	done := make(chan swarm.Event, 1)
	sub, err := consumer.Consume(func(msg jetstream.Msg) {
		var got swarm.Event
		if err := json.Unmarshal(msg.Data(), &got); err == nil {
			select {
			case done <- got:
			default:
			}
		}
		_ = msg.Ack()
	})
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	defer sub.Stop()

	r.BroadcastEvent(ctx, ev)

	select {
	case got := <-done:
		if got.ID != ev.ID || got.Type != ev.Type {
			t.Errorf("got event %s/%s, want %s/%s", got.ID, got.Type, ev.ID, ev.Type)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for relayed event")
	}
}
