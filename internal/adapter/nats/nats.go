// Package nats relays swarm events to NATS JetStream for out-of-process
// consumers (dashboards, archival, downstream automation).
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
)

const (
	streamName    = "SWARMPILOT"
	subjectPrefix = "swarm.events."
)

// Relay implements the broadcast.Sink port on top of NATS JetStream.
type Relay struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string) (*Relay, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ">"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Relay{nc: nc, js: js}, nil
}

// BroadcastEvent publishes one event to swarm.events.<session>.<type>.
// Publish failures are logged, never surfaced: the relay is an observability
// sink, not part of the coordination path.
func (r *Relay) BroadcastEvent(ctx context.Context, ev swarm.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("nats marshal failed", "type", ev.Type, "error", err)
		return
	}

	if _, err := r.js.Publish(ctx, subjectFor(ev), data); err != nil {
		slog.Warn("nats publish failed", "type", ev.Type, "session_id", ev.SessionID, "error", err)
	}
}

// subjectFor maps an event to its JetStream subject. The global session
// marker "*" is a NATS wildcard, so it maps to the literal token "global".
func subjectFor(ev swarm.Event) string {
	session := ev.SessionID
	if session == swarm.GlobalSession || session == "" {
		session = "global"
	}
	session = strings.ReplaceAll(session, ".", "_")
	return subjectPrefix + session + "." + ev.Type
}

// KeyValue creates or opens a JetStream KV bucket. Entries expire after ttl.
func (r *Relay) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := r.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("jetstream kv bucket %q: %w", bucket, err)
	}
	return kv, nil
}

// Close shuts down the NATS connection.
func (r *Relay) Close() error {
	r.nc.Close()
	return nil
}
