package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/mudskipper"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Workflow metrics, attributed by "result"
	InvitesTotal           metric.Int64Counter
	PermissionUpdatesTotal metric.Int64Counter
	WorkflowDuration       metric.Float64Histogram

	// Authorization metrics
	ForbiddenTotal metric.Int64Counter

	// Directory metrics
	DirectoryAccountsCreated  metric.Int64Counter
	DirectoryAccountsExisting metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.InvitesTotal, _ = meter.Int64Counter(
		"mudskipper.users.invites.total",
		metric.WithDescription("Total number of invite requests by result"),
		metric.WithUnit("{request}"),
	)

	m.PermissionUpdatesTotal, _ = meter.Int64Counter(
		"mudskipper.users.permission_updates.total",
		metric.WithDescription("Total number of permission update requests by result"),
		metric.WithUnit("{request}"),
	)

	m.WorkflowDuration, _ = meter.Float64Histogram(
		"mudskipper.users.workflow.duration",
		metric.WithDescription("Duration of user workflows"),
		metric.WithUnit("ms"),
	)

	m.ForbiddenTotal, _ = meter.Int64Counter(
		"mudskipper.auth.forbidden.total",
		metric.WithDescription("Total number of requests rejected because the caller is not privileged"),
		metric.WithUnit("{request}"),
	)

	m.DirectoryAccountsCreated, _ = meter.Int64Counter(
		"mudskipper.directory.accounts.created.total",
		metric.WithDescription("Total number of directory accounts created"),
		metric.WithUnit("{account}"),
	)

	m.DirectoryAccountsExisting, _ = meter.Int64Counter(
		"mudskipper.directory.accounts.existing.total",
		metric.WithDescription("Total number of invites for accounts that already existed in the directory"),
		metric.WithUnit("{account}"),
	)

	return m
}
