// Package policy decides whether a principal may perform an action on a
// resource, and which rows it may see while doing so.
//
// Every service operation calls Authorize first; the returned Scope is then
// handed to the repository so out-of-tenant rows are filtered before lookup
// and surface as NotFound rather than Forbidden.
package policy

import (
	"github.com/google/uuid"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
)

// Principal is the authenticated actor making a request.
type Principal struct {
	UserID         uuid.UUID
	OrganizationID *uuid.UUID
	Role           models.Role
	IsSuperuser    bool
}

// Action is an operation kind.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource is an entity family guarded by the permission table.
type Resource string

const (
	ResourceService      Resource = "service"
	ResourceIncident     Resource = "incident"
	ResourceMaintenance  Resource = "maintenance"
	ResourceUptime       Resource = "uptime"
	ResourceUser         Resource = "user"
	ResourceOrganization Resource = "organization"
	// ResourceProfile is the caller's own account.
	ResourceProfile Resource = "profile"
)

var roleRank = map[models.Role]int{
	models.RoleViewer:  1,
	models.RoleManager: 2,
	models.RoleAdmin:   3,
}

// AtLeast reports whether role r is min or higher. Unknown roles rank below VIEWER.
func AtLeast(r, min models.Role) bool {
	return roleRank[r] > 0 && roleRank[r] >= roleRank[min]
}

type rule struct {
	minRole       models.Role
	superuserOnly bool
	// sameOrg requires the target organization to be the principal's own.
	sameOrg bool
}

func anyRole() rule { return rule{minRole: models.RoleViewer} }

func crud(read, write rule) map[Action]rule {
	return map[Action]rule{
		ActionRead:   read,
		ActionCreate: write,
		ActionUpdate: write,
		ActionDelete: write,
	}
}

var (
	managerRule = rule{minRole: models.RoleManager}
	adminRule   = rule{minRole: models.RoleAdmin}
	superOnly   = rule{superuserOnly: true}
)

// permissions is the single source of truth for non-superuser access.
var permissions = map[Resource]map[Action]rule{
	ResourceService:     crud(anyRole(), managerRule),
	ResourceIncident:    crud(anyRole(), managerRule),
	ResourceMaintenance: crud(anyRole(), managerRule),
	ResourceUptime: {
		ActionRead:   anyRole(),
		ActionCreate: managerRule,
	},
	ResourceUser: crud(adminRule, adminRule),
	ResourceOrganization: {
		ActionRead:   anyRole(),
		ActionCreate: superOnly,
		ActionUpdate: {minRole: models.RoleAdmin, sameOrg: true},
		ActionDelete: superOnly,
	},
	ResourceProfile: {
		ActionRead:   anyRole(),
		ActionUpdate: anyRole(),
	},
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allow bool
	Scope Scope
}

// Authorize checks p against the permission table. resourceOrgID is the
// organization the target belongs to when known up front (organization
// updates); tenant-scoped rows pass nil and rely on Decision.Scope.
// Superusers bypass role and organization checks.
func Authorize(p Principal, action Action, resource Resource, resourceOrgID *uuid.UUID) (Decision, error) {
	if p.IsSuperuser {
		return Decision{Allow: true, Scope: Unrestricted()}, nil
	}
	r, ok := permissions[resource][action]
	if !ok {
		return Decision{}, apperr.Forbidden("action not permitted")
	}
	if r.superuserOnly {
		return Decision{}, apperr.Forbidden("superuser privileges required")
	}
	if !AtLeast(p.Role, r.minRole) {
		return Decision{}, apperr.Forbidden("insufficient permissions")
	}
	if r.sameOrg && resourceOrgID != nil {
		if p.OrganizationID == nil || *p.OrganizationID != *resourceOrgID {
			return Decision{}, apperr.Forbidden("not authorized for this organization")
		}
	}
	return Decision{Allow: true, Scope: ScopeFor(p)}, nil
}

// OwnedOrg returns the organization a write by p must be stamped with.
// Non-superusers always write into their own organization and any requested
// value is discarded. Superusers may target another organization explicitly;
// otherwise their own is used.
func OwnedOrg(p Principal, requested *uuid.UUID) (*uuid.UUID, error) {
	if p.IsSuperuser {
		if requested != nil {
			id := *requested
			return &id, nil
		}
		return p.OrganizationID, nil
	}
	if p.OrganizationID == nil {
		return nil, apperr.Forbidden("user is not assigned to an organization")
	}
	id := *p.OrganizationID
	return &id, nil
}

// CanReassignOrg reports whether p may move an existing row to another
// organization. Requests from other principals have the field dropped.
func CanReassignOrg(p Principal) bool {
	return p.IsSuperuser
}
