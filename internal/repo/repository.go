package repo

import (
	"context"

	"github.com/hamed0406/readycheck/internal/report"
)

// ReportStore keeps the history of completed runs.
type ReportStore interface {
	Append(ctx context.Context, r report.Report) error
	// Latest returns nil, nil before the first run has been stored.
	Latest(ctx context.Context) (*report.Report, error)
	// List returns up to limit reports, newest first.
	List(ctx context.Context, limit int) ([]report.Report, error)
}
