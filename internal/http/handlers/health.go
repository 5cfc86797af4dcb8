// Package handlers contains the HTTP handlers for the streamwisdom-api.
package handlers

import (
	"context"
	"time"

	"github.com/streamwisdom/streamwisdom-api/internal/version"
)

var startTime = time.Now()

// HealthCheckOutput represents the health check response.
type HealthCheckOutput struct {
	Body struct {
		Status        string `json:"status"`
		Version       string `json:"version"`
		UptimeSeconds int64  `json:"uptimeSeconds"`
	}
}

// HealthCheck reports liveness, version and process uptime.
func HealthCheck(ctx context.Context, input *struct{}) (*HealthCheckOutput, error) {
	out := &HealthCheckOutput{}
	out.Body.Status = "healthy"
	out.Body.Version = version.Get().String()
	out.Body.UptimeSeconds = int64(time.Since(startTime).Seconds())
	return out, nil
}
