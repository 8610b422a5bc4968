// Package status aggregates services, incidents and maintenances into the
// overview and timeline shown on status pages.
package status

import "github.com/statio/backend/internal/models"

// OverallUnknown is reported when there are no services to judge.
const OverallUnknown = "unknown"

// severity lists service states from most to least severe. The first state
// any service is in wins.
var severity = []models.ServiceStatus{
	models.ServiceMajorOutage,
	models.ServicePartialOutage,
	models.ServiceDegraded,
	models.ServiceMaintenance,
}

// OverallStatus summarizes the given services into one status string.
func OverallStatus(services []models.Service) string {
	if len(services) == 0 {
		return OverallUnknown
	}
	seen := make(map[models.ServiceStatus]bool, len(services))
	for _, s := range services {
		seen[s.Status] = true
	}
	for _, st := range severity {
		if seen[st] {
			return string(st)
		}
	}
	return string(models.ServiceOperational)
}
