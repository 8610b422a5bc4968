package models

import (
	"time"

	"github.com/google/uuid"
)

// UptimeMetric is one monitoring sample for a service.
type UptimeMetric struct {
	ID             uuid.UUID     `json:"id"`
	ServiceID      uuid.UUID     `json:"service_id"`
	OrganizationID *uuid.UUID    `json:"organization_id,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
	Status         ServiceStatus `json:"status"`
	ResponseTimeMs *float64      `json:"response_time,omitempty"`
	IsUp           bool          `json:"is_up"`
}
