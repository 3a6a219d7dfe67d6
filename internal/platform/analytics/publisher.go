// Package analytics publishes fire-and-forget usage events to NATS
// JetStream. Without a JetStream context every call is a no-op.
package analytics

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects for every event type.
const (
	SubjectResolutionCompleted = "analytics.resolution.completed"
	SubjectEpisodesListed      = "analytics.episodes.listed"
	SubjectPlaybackRequested   = "analytics.playback.requested"
	SubjectSearchPerformed     = "analytics.search.performed"
)

// Event is the envelope sent to all analytics.* subjects.
type Event struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	TraceID    string         `json:"trace_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Publisher is safe to use as a nil pointer.
type Publisher struct {
	js  nats.JetStreamContext
	log *zap.Logger
	now func() time.Time
}

// New creates a Publisher on top of js. A nil js yields a no-op publisher.
func New(js nats.JetStreamContext, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{js: js, log: log, now: time.Now}
}

// Enabled reports whether events actually leave the process.
func (p *Publisher) Enabled() bool { return p != nil && p.js != nil }

// Publish sends an event asynchronously. Failures are logged and never
// reach the caller. It returns the event id, or "" when disabled.
func (p *Publisher) Publish(subject, eventName, traceID string, props map[string]any) string {
	if !p.Enabled() {
		return ""
	}
	ev := newEvent(eventName, traceID, props, p.now())
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("analytics: marshal failed", zap.String("event", eventName), zap.Error(err))
		return ""
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.log.Warn("analytics: publish failed", zap.String("subject", subject), zap.Error(err))
		return ""
	}
	return ev.EventID
}

func newEvent(name, traceID string, props map[string]any, at time.Time) Event {
	return Event{
		EventID:    uuid.NewString(),
		EventName:  name,
		TraceID:    traceID,
		OccurredAt: at.UTC(),
		Properties: props,
	}
}
