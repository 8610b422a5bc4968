package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// TopicStatus carries service and maintenance changes.
	TopicStatus = "status"
	// TopicIncidents carries incident and incident update changes.
	TopicIncidents = "incidents"

	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60

	sendBuffer = 64
	// outboxSize bounds events waiting to be published to other instances.
	outboxSize = 256
)

// Topics lists every topic a client may subscribe to.
var Topics = []string{TopicStatus, TopicIncidents}

// ValidTopic reports whether topic is known.
func ValidTopic(topic string) bool {
	for _, t := range Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Publisher publishes events to other instances.
type Publisher interface {
	PublishTopicEvent(ctx context.Context, topic string, msg WSMessage) error
}

// Subscriber delivers events published by any instance.
type Subscriber interface {
	SubscribeTopics(ctx context.Context, topics []string, handler func(topic string, msg WSMessage)) (cancel func(), err error)
}

// Metrics observes hub activity.
type Metrics interface {
	BroadcastSent(topic string)
	SubscriberAdded(topic string)
	SubscriberRemoved(topic string, dropped bool)
}

type nopMetrics struct{}

func (nopMetrics) BroadcastSent(string)            {}
func (nopMetrics) SubscriberAdded(string)          {}
func (nopMetrics) SubscriberRemoved(string, bool) {}

// Hub maintains topic -> set of subscribers and broadcasts events to them.
// Delivery is best-effort: a subscriber that cannot take a message is removed.
type Hub struct {
	topics  map[string]map[string]*Client
	mu      sync.RWMutex
	logger  *zap.Logger
	pub     Publisher
	metrics Metrics

	outbox    chan outbound
	done      chan struct{}
	closeOnce sync.Once
}

type outbound struct {
	topic string
	msg   WSMessage
}

// NewHub creates a hub. pub may be nil for single-instance deployments.
func NewHub(logger *zap.Logger, pub Publisher, metrics Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	topics := make(map[string]map[string]*Client, len(Topics))
	for _, t := range Topics {
		topics[t] = make(map[string]*Client)
	}
	h := &Hub{topics: topics, logger: logger, pub: pub, metrics: metrics, done: make(chan struct{})}
	if pub != nil {
		h.outbox = make(chan outbound, outboxSize)
		go h.publishLoop()
	}
	return h
}

// Close stops the publish loop. Events still queued are dropped.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) publishLoop() {
	for {
		select {
		case <-h.done:
			return
		case out := <-h.outbox:
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			err := h.pub.PublishTopicEvent(ctx, out.topic, out.msg)
			cancel()
			if err != nil {
				h.logger.Warn("broadcast publish failed, delivering locally", zap.String("topic", out.topic), zap.Error(err))
				h.deliver(out.topic, out.msg)
			}
		}
	}
}

// StartFanout subscribes to events published by every instance and delivers
// them to local subscribers until ctx is done.
func (h *Hub) StartFanout(ctx context.Context, sub Subscriber) error {
	cancel, err := sub.SubscribeTopics(ctx, Topics, h.deliver)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return nil
}

// Register adds a client to its topic.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.topics[c.Topic][c.ID] = c
	h.mu.Unlock()
	h.metrics.SubscriberAdded(c.Topic)
	h.logger.Debug("subscriber joined", zap.String("client_id", c.ID), zap.String("topic", c.Topic))
}

// Unregister removes a client from its topic and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.remove(c, false)
}

func (h *Hub) remove(c *Client, dropped bool) {
	h.mu.Lock()
	subs := h.topics[c.Topic]
	if _, ok := subs[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(subs, c.ID)
	close(c.send)
	h.mu.Unlock()

	h.metrics.SubscriberRemoved(c.Topic, dropped)
	if dropped {
		h.logger.Warn("subscriber dropped", zap.String("client_id", c.ID), zap.String("topic", c.Topic))
		return
	}
	h.logger.Debug("subscriber left", zap.String("client_id", c.ID), zap.String("topic", c.Topic))
}

// Count returns the number of local subscribers on topic.
func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Broadcast sends an event to every subscriber of topic. With a publisher the
// event is queued for Redis so each instance, this one included, delivers it
// once. It never blocks on the publisher or on slow subscribers; when the
// queue is full the event is delivered locally only.
func (h *Hub) Broadcast(topic, event string, orgID *uuid.UUID, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("broadcast marshal failed", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, OrganizationID: orgID, Data: data}
	h.metrics.BroadcastSent(topic)

	if h.outbox != nil {
		select {
		case h.outbox <- outbound{topic: topic, msg: msg}:
			return
		default:
			h.logger.Warn("broadcast queue full, delivering locally", zap.String("topic", topic), zap.String("event", event))
		}
	}
	h.deliver(topic, msg)
}

func (h *Hub) deliver(topic string, msg WSMessage) {
	var dropped []*Client

	h.mu.RLock()
	for _, c := range h.topics[topic] {
		if !c.accepts(msg) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			dropped = append(dropped, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range dropped {
		h.remove(c, true)
	}
}
