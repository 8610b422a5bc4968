package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	sent []WSMessage
}

func (p *fakePublisher) PublishTopicEvent(_ context.Context, _ string, msg WSMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

type countingMetrics struct {
	mu      sync.Mutex
	sent    int
	dropped int
}

func (m *countingMetrics) BroadcastSent(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
}

func (m *countingMetrics) SubscriberAdded(string) {}

func (m *countingMetrics) SubscriberRemoved(_ string, dropped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dropped {
		m.dropped++
	}
}

func subscribe(h *Hub, topic string, orgID *uuid.UUID) *Client {
	c := newClient(h, topic, orgID, nil, zap.NewNop())
	h.Register(c)
	return c
}

func TestBroadcastReachesTopicSubscribersOnly(t *testing.T) {
	h := NewHub(zap.NewNop(), nil, nil)
	status := subscribe(h, TopicStatus, nil)
	incidents := subscribe(h, TopicIncidents, nil)

	h.Broadcast(TopicStatus, "service_updated", nil, map[string]string{"status": "degraded"})

	require.Len(t, status.send, 1)
	msg := <-status.send
	assert.Equal(t, "service_updated", msg.Event)
	var data map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "degraded", data["status"])
	assert.Len(t, incidents.send, 0)
}

func TestBroadcastHonoursOrganizationFilter(t *testing.T) {
	h := NewHub(zap.NewNop(), nil, nil)
	orgA, orgB := uuid.New(), uuid.New()
	all := subscribe(h, TopicIncidents, nil)
	onlyA := subscribe(h, TopicIncidents, &orgA)

	h.Broadcast(TopicIncidents, "incident_created", &orgB, struct{}{})
	h.Broadcast(TopicIncidents, "incident_created", &orgA, struct{}{})
	h.Broadcast(TopicIncidents, "incident_created", nil, struct{}{})

	assert.Len(t, all.send, 3)
	assert.Len(t, onlyA.send, 1)
}

func TestSlowSubscriberIsRemoved(t *testing.T) {
	metrics := &countingMetrics{}
	h := NewHub(zap.NewNop(), nil, metrics)
	slow := subscribe(h, TopicStatus, nil)
	fast := subscribe(h, TopicStatus, nil)

	for i := 0; i < sendBuffer; i++ {
		slow.send <- WSMessage{Event: "filler"}
	}

	h.Broadcast(TopicStatus, "service_updated", nil, struct{}{})

	assert.Equal(t, 1, h.Count(TopicStatus))
	assert.Len(t, fast.send, 1)
	assert.Equal(t, 1, metrics.dropped)

	// the dropped subscriber's channel is closed once drained
	for range slow.send {
	}

	// later broadcasts are unaffected
	h.Broadcast(TopicStatus, "service_updated", nil, struct{}{})
	assert.Len(t, fast.send, 2)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := NewHub(zap.NewNop(), nil, nil)
	c := subscribe(h, TopicStatus, nil)

	h.Unregister(c)
	h.Unregister(c)
	h.remove(c, true)

	assert.Equal(t, 0, h.Count(TopicStatus))
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

// stalledPublisher holds every publish until its context expires.
type stalledPublisher struct{ calls chan struct{} }

func (p *stalledPublisher) PublishTopicEvent(ctx context.Context, _ string, _ WSMessage) error {
	p.calls <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestBroadcastGoesThroughPublisher(t *testing.T) {
	pub := &fakePublisher{}
	h := NewHub(zap.NewNop(), pub, nil)
	defer h.Close()
	c := subscribe(h, TopicStatus, nil)

	h.Broadcast(TopicStatus, "service_created", nil, struct{}{})

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, time.Millisecond)
	assert.Len(t, c.send, 0, "local delivery happens when the fan-out comes back")

	h.deliver(TopicStatus, pub.sent[0])
	assert.Len(t, c.send, 1)
}

func TestBroadcastFallsBackWhenPublishFails(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	h := NewHub(zap.NewNop(), pub, nil)
	defer h.Close()
	c := subscribe(h, TopicStatus, nil)

	h.Broadcast(TopicStatus, "service_created", nil, struct{}{})

	assert.Eventually(t, func() bool { return len(c.send) == 1 }, time.Second, time.Millisecond)
}

func TestBroadcastDoesNotWaitForStalledPublisher(t *testing.T) {
	pub := &stalledPublisher{calls: make(chan struct{}, outboxSize+1)}
	h := NewHub(zap.NewNop(), pub, nil)
	defer h.Close()
	c := subscribe(h, TopicIncidents, nil)

	start := time.Now()
	h.Broadcast(TopicIncidents, "incident_created", nil, struct{}{})
	<-pub.calls
	for i := 0; i < outboxSize+1; i++ {
		h.Broadcast(TopicIncidents, "incident_updated", nil, struct{}{})
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, c.send, 1, "overflow is delivered locally")
}

func TestValidTopic(t *testing.T) {
	assert.True(t, ValidTopic("status"))
	assert.True(t, ValidTopic("incidents"))
	assert.False(t, ValidTopic("webinars"))
}
