package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueNotifications is the Redis list key for notification jobs.
	QueueNotifications = "statio:notifications"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "statio:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	// JobTypeEmail delivers a single, fully rendered email.
	JobTypeEmail JobType = "email"
	// JobTypeIncidentNotice fans an incident change out to the admins of its organization.
	JobTypeIncidentNotice JobType = "incident_notice"
)

// EmailPayload is the payload for email jobs.
type EmailPayload struct {
	EmailType      string `json:"email_type"`
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject"`
	BodyText       string `json:"body_text"`
}

// IncidentNoticePayload is the payload for incident notice jobs.
type IncidentNoticePayload struct {
	Event          string     `json:"event"`
	IncidentID     uuid.UUID  `json:"incident_id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	Message        string     `json:"message,omitempty"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v interface{}) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", j.Type, err)
	}
	return nil
}

// NewJob wraps payload in a fresh job envelope.
func NewJob(t JobType, payload interface{}) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

func (q *Queue) push(ctx context.Context, key string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// Enqueue pushes a job of type t onto the notification queue.
func (q *Queue) Enqueue(ctx context.Context, t JobType, payload interface{}) error {
	job, err := NewJob(t, payload)
	if err != nil {
		return err
	}
	if err := q.push(ctx, QueueNotifications, job); err != nil {
		return err
	}
	q.logger.Debug("enqueued job", zap.String("job_id", job.ID), zap.String("type", string(t)))
	return nil
}

// EnqueueEmail enqueues an email job.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	return q.Enqueue(ctx, JobTypeEmail, payload)
}

// EnqueueIncidentNotice enqueues an incident notice job.
func (q *Queue) EnqueueIncidentNotice(ctx context.Context, payload IncidentNoticePayload) error {
	return q.Enqueue(ctx, JobTypeIncidentNotice, payload)
}

// Dequeue blocks up to timeout for a job. It returns nil without error when
// the wait times out or the payload cannot be parsed.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueNotifications).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// ShouldDeadLetter reports whether a job that has failed attempt times is done retrying.
func ShouldDeadLetter(attempt int) bool {
	return attempt >= MaxRetries
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	if ShouldDeadLetter(job.Attempt) {
		if err := q.push(ctx, QueueDLQ, job); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.push(ctx, QueueNotifications, job); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
