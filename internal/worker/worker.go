// Package worker delivers queued notification jobs by email.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statio/backend/pkg/queue"
)

// JobQueue is the part of the job queue the processor consumes.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Recipients resolves who hears about an organization's incidents.
type Recipients interface {
	AdminEmails(ctx context.Context, orgID *uuid.UUID) ([]string, error)
}

// NotificationProcessor turns email and incident notice jobs into mail.
type NotificationProcessor struct {
	queue      JobQueue
	mailer     Mailer
	recipients Recipients
	publicURL  string
	logger     *zap.Logger

	pollTimeout time.Duration
	backoff     time.Duration
}

// NewNotificationProcessor creates a notification processor. publicURL is the
// status page base used in incident links.
func NewNotificationProcessor(q JobQueue, mailer Mailer, recipients Recipients, publicURL string, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{
		queue:       q,
		mailer:      mailer,
		recipients:  recipients,
		publicURL:   strings.TrimRight(publicURL, "/"),
		logger:      logger,
		pollTimeout: 5 * time.Second,
		backoff:     queue.RetryBackoff,
	}
}

// Process executes one job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEmail:
		var payload queue.EmailPayload
		if err := job.Decode(&payload); err != nil {
			return err
		}
		if payload.RecipientEmail == "" {
			return fmt.Errorf("email job %s has no recipient", job.ID)
		}
		return p.mailer.Send(ctx, []string{payload.RecipientEmail}, payload.Subject, payload.BodyText)
	case queue.JobTypeIncidentNotice:
		var payload queue.IncidentNoticePayload
		if err := job.Decode(&payload); err != nil {
			return err
		}
		return p.incidentNotice(ctx, payload)
	}
	return fmt.Errorf("unknown job type: %s", job.Type)
}

func (p *NotificationProcessor) incidentNotice(ctx context.Context, n queue.IncidentNoticePayload) error {
	to, err := p.recipients.AdminEmails(ctx, n.OrganizationID)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}
	if len(to) == 0 {
		p.logger.Info("incident notice has no recipients", zap.String("incident_id", n.IncidentID.String()))
		return nil
	}
	subject, body := renderIncidentNotice(n, p.publicURL)
	if err := p.mailer.Send(ctx, to, subject, body); err != nil {
		return err
	}
	p.logger.Info("incident notice sent",
		zap.String("incident_id", n.IncidentID.String()), zap.String("event", n.Event), zap.Int("recipients", len(to)))
	return nil
}

func renderIncidentNotice(n queue.IncidentNoticePayload, publicURL string) (string, string) {
	var verb string
	switch n.Event {
	case "incident_created":
		verb = "New incident"
	case "incident_resolved":
		verb = "Resolved"
	default:
		verb = "Update"
	}
	subject := fmt.Sprintf("[%s] %s", verb, headerSafe(n.Title))
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nStatus: %s\n", n.Title, n.Status)
	if n.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", n.Message)
	}
	if publicURL != "" {
		fmt.Fprintf(&b, "\n%s/incidents/%s\n", publicURL, n.IncidentID)
	}
	return subject, b.String()
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Warn("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *NotificationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
