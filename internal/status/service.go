package status

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/utils"
)

// Store reads the rows status pages are built from. Incidents are returned
// with their Updates populated.
type Store interface {
	ActiveServices(ctx context.Context, scope policy.Scope) ([]models.Service, error)
	ActiveService(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Service, error)
	ActiveIncidents(ctx context.Context, scope policy.Scope) ([]models.Incident, error)
	Incident(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Incident, error)
	// IncidentsSince returns incidents created at or after since, plus older
	// incidents that received updates since then.
	IncidentsSince(ctx context.Context, scope policy.Scope, since time.Time) ([]models.Incident, error)
	MaintenancesSince(ctx context.Context, scope policy.Scope, since time.Time) ([]models.Maintenance, error)
	ServiceNames(ctx context.Context, ids []uuid.UUID) (ServiceNames, error)
}

// Maintenances answers the public maintenance queries.
type Maintenances interface {
	PublicActive(ctx context.Context, scope policy.Scope) ([]models.Maintenance, error)
	Upcoming(ctx context.Context, scope policy.Scope) ([]models.Maintenance, error)
	PublicGet(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Maintenance, error)
}

// Organizations resolves a public organization slug.
type Organizations interface {
	BySlug(ctx context.Context, slug string) (*models.Organization, error)
}

// Overview is the payload of a status page.
type Overview struct {
	Services      []models.Service     `json:"services"`
	Incidents     []models.Incident    `json:"incidents"`
	Maintenances  []models.Maintenance `json:"maintenances"`
	Timeline      []Event              `json:"timeline"`
	OverallStatus string               `json:"overall_status"`
	LastUpdated   time.Time            `json:"last_updated"`
}

// Service builds overviews and timelines.
type Service struct {
	store        Store
	maintenances Maintenances
	orgs         Organizations
	now          func() time.Time
}

// NewService creates the status service.
func NewService(store Store, maintenances Maintenances, orgs Organizations) *Service {
	return &Service{store: store, maintenances: maintenances, orgs: orgs, now: time.Now}
}

// PublicScope turns an optional organization slug into a row filter. An
// empty slug shows every organization.
func (s *Service) PublicScope(ctx context.Context, slug string) (policy.Scope, error) {
	if slug == "" {
		return policy.Unrestricted(), nil
	}
	org, err := s.orgs.BySlug(ctx, slug)
	if err != nil {
		return policy.Scope{}, err
	}
	return policy.Org(org.ID), nil
}

func serviceIDs(incidents []models.Incident, maintenances []models.Maintenance) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := []uuid.UUID{}
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, i := range incidents {
		add(i.ServiceID)
	}
	for _, m := range maintenances {
		add(m.ServiceID)
	}
	return ids
}

func (s *Service) overview(ctx context.Context, scope policy.Scope) (*Overview, error) {
	services, err := s.store.ActiveServices(ctx, scope)
	if err != nil {
		return nil, err
	}
	incidents, err := s.store.ActiveIncidents(ctx, scope)
	if err != nil {
		return nil, err
	}
	maintenances, err := s.maintenances.PublicActive(ctx, scope)
	if err != nil {
		return nil, err
	}
	names, err := s.store.ServiceNames(ctx, serviceIDs(incidents, maintenances))
	if err != nil {
		return nil, err
	}
	return &Overview{
		Services:      services,
		Incidents:     incidents,
		Maintenances:  maintenances,
		Timeline:      BuildTimeline(incidents, maintenances, names),
		OverallStatus: OverallStatus(services),
		LastUpdated:   s.now().UTC(),
	}, nil
}

// Overview returns the status overview of p's organization, or of every
// organization for superusers.
func (s *Service) Overview(ctx context.Context, p policy.Principal) (*Overview, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceService, nil)
	if err != nil {
		return nil, err
	}
	return s.overview(ctx, d.Scope)
}

// PublicOverview returns the unauthenticated status page.
func (s *Service) PublicOverview(ctx context.Context, slug string) (*Overview, error) {
	scope, err := s.PublicScope(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.overview(ctx, scope)
}

// PublicTimeline returns one page of the 30 day timeline.
func (s *Service) PublicTimeline(ctx context.Context, slug string, page utils.Page) ([]Event, error) {
	if err := page.Validate(TimelineMaxLimit); err != nil {
		return nil, err
	}
	scope, err := s.PublicScope(ctx, slug)
	if err != nil {
		return nil, err
	}
	since := s.now().Add(-FullTimelineWindow)
	incidents, err := s.store.IncidentsSince(ctx, scope, since)
	if err != nil {
		return nil, err
	}
	maintenances, err := s.store.MaintenancesSince(ctx, scope, since)
	if err != nil {
		return nil, err
	}
	names, err := s.store.ServiceNames(ctx, serviceIDs(incidents, maintenances))
	if err != nil {
		return nil, err
	}
	return Paginate(BuildFullTimeline(incidents, maintenances, names, since), page)
}

// PublicServices lists active services.
func (s *Service) PublicServices(ctx context.Context, slug string) ([]models.Service, error) {
	scope, err := s.PublicScope(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.store.ActiveServices(ctx, scope)
}

// PublicService returns one active service.
func (s *Service) PublicService(ctx context.Context, slug string, id uuid.UUID) (*models.Service, error) {
	scope, err := s.PublicScope(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.store.ActiveService(ctx, id, scope)
}

// PublicActiveIncidents lists active incidents with their updates.
func (s *Service) PublicActiveIncidents(ctx context.Context, slug string) ([]models.Incident, error) {
	scope, err := s.PublicScope(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.store.ActiveIncidents(ctx, scope)
}

// PublicIncident returns one incident with all its updates.
func (s *Service) PublicIncident(ctx context.Context, slug string, id uuid.UUID) (*models.Incident, error) {
	scope, err := s.PublicScope(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.store.Incident(ctx, id, scope)
}

// PublicMaintenances lists active and recently ended maintenances.
func (s *Service) PublicMaintenances(ctx context.Context, slug string) ([]models.Maintenance, error) {
	scope, err := s.PublicScope(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.maintenances.PublicActive(ctx, scope)
}

// PublicUpcomingMaintenances lists active maintenances that have not ended.
func (s *Service) PublicUpcomingMaintenances(ctx context.Context, slug string) ([]models.Maintenance, error) {
	scope, err := s.PublicScope(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.maintenances.Upcoming(ctx, scope)
}

// PublicMaintenance returns one maintenance.
func (s *Service) PublicMaintenance(ctx context.Context, slug string, id uuid.UUID) (*models.Maintenance, error) {
	scope, err := s.PublicScope(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.maintenances.PublicGet(ctx, id, scope)
}
