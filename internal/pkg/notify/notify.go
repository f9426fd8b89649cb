package notify

import (
	"context"

	"dealradar/internal/model"
)

// Notifier delivers the scan digest once a scan reaches a terminal state.
type Notifier interface {
	// SendScanDigest sends a completion summary with the clearance
	// highlights. Called best-effort by the orchestrator; errors are logged,
	// never surfaced to the scan.
	SendScanDigest(ctx context.Context, scan *model.Scan, results []model.ScanResult, toEmail string) error
}
