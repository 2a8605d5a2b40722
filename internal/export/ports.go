package export

import (
	"context"

	"tutorops/internal/report"
)

// Ports for outbound adapters.
type (
	// ReportExporter pushes a computed dashboard to an external
	// destination, replacing whatever was exported before.
	ReportExporter interface {
		ExportDashboard(ctx context.Context, d report.Dashboard) error
	}
)
