package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statio/backend/internal/models"
)

type sample struct {
	Slug    string                   `validate:"omitempty,slug"`
	Role    *models.Role             `validate:"omitempty,role"`
	Status  models.ServiceStatus     `validate:"omitempty,service_status"`
	Inc     models.IncidentStatus    `validate:"omitempty,incident_status"`
	Kind    models.IncidentType      `validate:"omitempty,incident_type"`
	Planned models.MaintenanceStatus `validate:"omitempty,maintenance_status"`
}

func TestRules(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterOn(v))

	admin := models.RoleAdmin
	assert.NoError(t, v.Struct(sample{
		Slug:    "Acme Corp",
		Role:    &admin,
		Status:  models.ServiceDegraded,
		Inc:     models.IncidentMonitoring,
		Kind:    models.IncidentTypeMaintenance,
		Planned: models.MaintenanceInProgress,
	}))

	bad := models.Role("OWNER")
	cases := []sample{
		{Slug: "!!!"},
		{Role: &bad},
		{Status: "down"},
		{Inc: "closed"},
		{Kind: "outage"},
		{Planned: "done"},
	}
	for _, c := range cases {
		assert.Error(t, v.Struct(c), "%+v", c)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	require.NoError(t, Register())
	require.NoError(t, Register())
}
