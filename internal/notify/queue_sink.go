package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/statio/backend/pkg/queue"
)

const enqueueTimeout = 5 * time.Second

// Enqueuer accepts background jobs.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
	EnqueueIncidentNotice(ctx context.Context, payload queue.IncidentNoticePayload) error
}

// Counter observes emitted events.
type Counter interface {
	NotificationEmitted(ctx context.Context, event string)
}

// QueueSink turns mail-worthy events into worker jobs.
type QueueSink struct {
	queue   Enqueuer
	counter Counter
	logger  *zap.Logger
}

// NewQueueSink creates a queue-backed sink. counter may be nil.
func NewQueueSink(q Enqueuer, counter Counter, logger *zap.Logger) *QueueSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueSink{queue: q, counter: counter, logger: logger}
}

// Send implements Sink. Enqueueing runs in the background with its own
// deadline, detached from the caller.
func (s *QueueSink) Send(ctx context.Context, ev Event) {
	var enqueue func(context.Context) error
	switch ev.Type {
	case EventPasswordReset:
		payload := queue.EmailPayload{
			EmailType:      string(ev.Type),
			RecipientEmail: ev.Recipient,
			Subject:        ev.Subject,
			BodyText:       ev.Body,
		}
		enqueue = func(ctx context.Context) error { return s.queue.EnqueueEmail(ctx, payload) }
	case EventIncidentCreated, EventIncidentResolved, EventIncidentUpdatePosted:
		change, ok := ev.Payload.(IncidentChange)
		if !ok || change.Incident == nil {
			s.logger.Warn("incident event without incident payload", zap.String("event", string(ev.Type)))
			return
		}
		notice := queue.IncidentNoticePayload{
			Event:          string(ev.Type),
			IncidentID:     change.Incident.ID,
			OrganizationID: ev.OrganizationID,
			Title:          change.Incident.Title,
			Status:         string(change.Incident.Status),
		}
		if change.Update != nil {
			notice.Message = change.Update.Message
		}
		enqueue = func(ctx context.Context) error { return s.queue.EnqueueIncidentNotice(ctx, notice) }
	default:
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, enqueueTimeout)
		defer cancel()
		s.enqueue(ctx, ev, enqueue)
	}()
}

func (s *QueueSink) enqueue(ctx context.Context, ev Event, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		s.logger.Warn("enqueue notification failed", zap.String("event", string(ev.Type)), zap.Error(err))
		return
	}
	if s.counter != nil {
		s.counter.NotificationEmitted(ctx, string(ev.Type))
	}
}
