package policy

import "github.com/google/uuid"

// Scope restricts the rows a principal may see or touch.
type Scope struct {
	All            bool
	OrganizationID *uuid.UUID
}

// Unrestricted returns a scope matching every row.
func Unrestricted() Scope { return Scope{All: true} }

// Org returns a scope limited to one organization.
func Org(id uuid.UUID) Scope { return Scope{OrganizationID: &id} }

// ScopeFor returns the row filter for p. A non-superuser without an
// organization gets a scope that matches nothing.
func ScopeFor(p Principal) Scope {
	if p.IsSuperuser {
		return Unrestricted()
	}
	if p.OrganizationID == nil {
		return Scope{}
	}
	return Org(*p.OrganizationID)
}

// Matches reports whether a row owned by orgID is inside the scope.
func (s Scope) Matches(orgID *uuid.UUID) bool {
	if s.All {
		return true
	}
	if s.OrganizationID == nil || orgID == nil {
		return false
	}
	return *s.OrganizationID == *orgID
}

// Arg returns the SQL argument for the clause
// ($n::uuid IS NULL OR organization_id = $n): nil for an unrestricted scope,
// uuid.Nil for an empty scope so nothing matches.
func (s Scope) Arg() *uuid.UUID {
	if s.All {
		return nil
	}
	if s.OrganizationID == nil {
		id := uuid.Nil
		return &id
	}
	id := *s.OrganizationID
	return &id
}
