// Package uptime records monitoring samples and turns them into per-service
// availability statistics and graph series.
package uptime

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
)

// Period is a reporting window accepted by the metrics endpoint.
type Period string

const (
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"

	DefaultPeriod = Period7d

	day = 24 * time.Hour
)

// ParsePeriod validates a period query value. Empty means DefaultPeriod.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(raw); p {
	case "":
		return DefaultPeriod, nil
	case Period24h, Period7d, Period30d:
		return p, nil
	}
	return "", apperr.Validation("period must be one of 24h, 7d, 30d")
}

// Window returns how far back the period reaches.
func (p Period) Window() time.Duration {
	switch p {
	case Period24h:
		return day
	case Period30d:
		return 30 * day
	}
	return 7 * day
}

// Step returns the graph bucket width: hourly up to a week, daily beyond.
func (p Period) Step() time.Duration {
	if p == Period30d {
		return day
	}
	return time.Hour
}

// Point is one graph bucket.
type Point struct {
	Timestamp        time.Time            `json:"timestamp"`
	UptimePercentage float64              `json:"uptime_percentage"`
	Status           models.ServiceStatus `json:"status"`
	ResponseTime     *float64             `json:"response_time,omitempty"`
	Samples          int                  `json:"samples"`
}

// Stats summarizes a service's availability.
type Stats struct {
	ServiceID               uuid.UUID            `json:"service_id"`
	ServiceName             string               `json:"service_name"`
	CurrentUptimePercentage float64              `json:"current_uptime_percentage"`
	Uptime24h               float64              `json:"uptime_24h"`
	Uptime7d                float64              `json:"uptime_7d"`
	Uptime30d               float64              `json:"uptime_30d"`
	AvgResponseTime         *float64             `json:"avg_response_time"`
	TotalIncidents24h       int                  `json:"total_incidents_24h"`
	TotalIncidents7d        int                  `json:"total_incidents_7d"`
	TotalIncidents30d       int                  `json:"total_incidents_30d"`
	CurrentStatus           models.ServiceStatus `json:"current_status"`
	LastIncident            *time.Time           `json:"last_incident"`
}

// Metrics is the response of the per-service metrics query.
type Metrics struct {
	ServiceID    uuid.UUID `json:"service_id"`
	ServiceName  string    `json:"service_name"`
	CurrentStats Stats     `json:"current_stats"`
	GraphData    []Point   `json:"graph_data"`
	Period       Period    `json:"period"`
}

// availability returns the share of up samples taken at or after since, as a
// percentage. No samples counts as fully available.
func availability(samples []models.UptimeMetric, since time.Time) float64 {
	var total, up int
	for _, m := range samples {
		if m.Timestamp.Before(since) {
			continue
		}
		total++
		if m.IsUp {
			up++
		}
	}
	if total == 0 {
		return 100.0
	}
	return float64(up) * 100 / float64(total)
}

func avgResponse(samples []models.UptimeMetric, since time.Time) *float64 {
	var sum float64
	var n int
	for _, m := range samples {
		if m.ResponseTimeMs == nil || m.Timestamp.Before(since) {
			continue
		}
		sum += *m.ResponseTimeMs
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func countSince(times []time.Time, since time.Time) int {
	n := 0
	for _, t := range times {
		if !t.Before(since) {
			n++
		}
	}
	return n
}

// ComputeStats builds the statistics of svc from its last 30 days of samples
// and incident creation times.
func ComputeStats(svc *models.Service, samples []models.UptimeMetric, incidents []time.Time, last *time.Time, now time.Time) Stats {
	h24 := now.Add(-day)
	d7 := now.Add(-7 * day)
	d30 := now.Add(-30 * day)
	up24 := availability(samples, h24)
	return Stats{
		ServiceID:               svc.ID,
		ServiceName:             svc.Name,
		CurrentUptimePercentage: up24,
		Uptime24h:               up24,
		Uptime7d:                availability(samples, d7),
		Uptime30d:               availability(samples, d30),
		AvgResponseTime:         avgResponse(samples, h24),
		TotalIncidents24h:       countSince(incidents, h24),
		TotalIncidents7d:        countSince(incidents, d7),
		TotalIncidents30d:       countSince(incidents, d30),
		CurrentStatus:           svc.Status,
		LastIncident:            last,
	}
}

// BuildGraph groups samples taken at or after since into buckets of step
// width, aligned to UTC. Buckets without samples are omitted. The bucket
// status is the status of its latest sample.
func BuildGraph(samples []models.UptimeMetric, since time.Time, step time.Duration) []Point {
	type acc struct {
		total, up, timed int
		rt               float64
		latest           time.Time
		status           models.ServiceStatus
	}
	buckets := make(map[time.Time]*acc)
	for _, m := range samples {
		if m.Timestamp.Before(since) {
			continue
		}
		key := m.Timestamp.UTC().Truncate(step)
		a, ok := buckets[key]
		if !ok {
			a = &acc{}
			buckets[key] = a
		}
		a.total++
		if m.IsUp {
			a.up++
		}
		if m.ResponseTimeMs != nil {
			a.timed++
			a.rt += *m.ResponseTimeMs
		}
		if a.status == "" || !m.Timestamp.Before(a.latest) {
			a.latest = m.Timestamp
			a.status = m.Status
		}
	}
	points := make([]Point, 0, len(buckets))
	for ts, a := range buckets {
		p := Point{
			Timestamp:        ts,
			UptimePercentage: float64(a.up) * 100 / float64(a.total),
			Status:           a.status,
			Samples:          a.total,
		}
		if a.timed > 0 {
			avg := a.rt / float64(a.timed)
			p.ResponseTime = &avg
		}
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	return points
}
