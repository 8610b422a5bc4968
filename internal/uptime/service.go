package uptime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/policy"
)

// Store persists samples and answers the reads statistics are built from.
type Store interface {
	Service(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Service, error)
	ActiveServices(ctx context.Context, scope policy.Scope) ([]models.Service, error)
	Record(ctx context.Context, m *models.UptimeMetric) error
	// Samples returns samples of the given services taken at or after since,
	// oldest first.
	Samples(ctx context.Context, serviceIDs []uuid.UUID, since time.Time) ([]models.UptimeMetric, error)
	IncidentTimes(ctx context.Context, serviceIDs []uuid.UUID, since time.Time) (map[uuid.UUID][]time.Time, error)
	LastIncidents(ctx context.Context, serviceIDs []uuid.UUID) (map[uuid.UUID]time.Time, error)
}

// Service implements uptime recording and reporting.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the uptime service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Sample is one monitoring observation submitted by a probe.
type Sample struct {
	Status         models.ServiceStatus
	ResponseTimeMs *float64
	IsUp           *bool
	Timestamp      *time.Time
}

// Record stores a sample for a service in p's scope. The sample inherits the
// service's organization.
func (s *Service) Record(ctx context.Context, p policy.Principal, serviceID uuid.UUID, in Sample) (*models.UptimeMetric, error) {
	d, err := policy.Authorize(p, policy.ActionCreate, policy.ResourceUptime, nil)
	if err != nil {
		return nil, err
	}
	if !in.Status.Valid() {
		return nil, apperr.Validation("invalid status")
	}
	if in.ResponseTimeMs != nil && *in.ResponseTimeMs < 0 {
		return nil, apperr.Validation("response_time must be >= 0")
	}
	svc, err := s.store.Service(ctx, serviceID, d.Scope)
	if err != nil {
		return nil, err
	}
	m := &models.UptimeMetric{
		ServiceID:      svc.ID,
		OrganizationID: svc.OrganizationID,
		Timestamp:      s.now().UTC(),
		Status:         in.Status,
		ResponseTimeMs: in.ResponseTimeMs,
		IsUp:           true,
	}
	if in.IsUp != nil {
		m.IsUp = *in.IsUp
	}
	if in.Timestamp != nil {
		m.Timestamp = in.Timestamp.UTC()
	}
	if err := s.store.Record(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ServiceMetrics returns statistics and the graph series of one service over
// period.
func (s *Service) ServiceMetrics(ctx context.Context, p policy.Principal, serviceID uuid.UUID, period Period) (*Metrics, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceUptime, nil)
	if err != nil {
		return nil, err
	}
	period, err = ParsePeriod(string(period))
	if err != nil {
		return nil, err
	}
	svc, err := s.store.Service(ctx, serviceID, d.Scope)
	if err != nil {
		return nil, err
	}
	stats, samples, err := s.collect(ctx, []models.Service{*svc})
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &Metrics{
		ServiceID:    svc.ID,
		ServiceName:  svc.Name,
		CurrentStats: stats[0],
		GraphData:    BuildGraph(samples[svc.ID], now.Add(-period.Window()), period.Step()),
		Period:       period,
	}, nil
}

// Overview returns statistics for every active service in p's scope.
func (s *Service) Overview(ctx context.Context, p policy.Principal) ([]Stats, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceUptime, nil)
	if err != nil {
		return nil, err
	}
	services, err := s.store.ActiveServices(ctx, d.Scope)
	if err != nil {
		return nil, err
	}
	stats, _, err := s.collect(ctx, services)
	return stats, err
}

func (s *Service) collect(ctx context.Context, services []models.Service) ([]Stats, map[uuid.UUID][]models.UptimeMetric, error) {
	stats := make([]Stats, 0, len(services))
	if len(services) == 0 {
		return stats, nil, nil
	}
	now := s.now()
	since := now.Add(-Period30d.Window())
	ids := make([]uuid.UUID, len(services))
	for i, svc := range services {
		ids[i] = svc.ID
	}
	all, err := s.store.Samples(ctx, ids, since)
	if err != nil {
		return nil, nil, err
	}
	samples := make(map[uuid.UUID][]models.UptimeMetric, len(services))
	for _, m := range all {
		samples[m.ServiceID] = append(samples[m.ServiceID], m)
	}
	incidents, err := s.store.IncidentTimes(ctx, ids, since)
	if err != nil {
		return nil, nil, err
	}
	last, err := s.store.LastIncidents(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	for i := range services {
		svc := &services[i]
		var lastAt *time.Time
		if t, ok := last[svc.ID]; ok {
			lastAt = &t
		}
		stats = append(stats, ComputeStats(svc, samples[svc.ID], incidents[svc.ID], lastAt, now))
	}
	s.logger.Debug("uptime stats computed", zap.Int("services", len(services)), zap.Int("samples", len(all)))
	return stats, samples, nil
}
