package notify

import (
	"context"

	"github.com/google/uuid"
)

// Broadcaster publishes an event on a realtime topic.
type Broadcaster interface {
	Broadcast(topic, event string, orgID *uuid.UUID, payload interface{})
}

// HubSink broadcasts entity events to realtime subscribers.
type HubSink struct {
	hub Broadcaster
}

// NewHubSink creates a sink backed by a realtime hub.
func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

// Send implements Sink.
func (s *HubSink) Send(_ context.Context, ev Event) {
	topic := ev.Type.Topic()
	if topic == "" {
		return
	}
	s.hub.Broadcast(topic, string(ev.Type), ev.OrganizationID, ev.Payload)
}
