package errors

import "context"

// Tracker is the reporting seam for unexpected errors. The sentry adapter
// implements it for real deployments; the noop adapter serves everything else.
type Tracker interface {
	// CaptureError sends an error to the tracking service
	CaptureError(ctx context.Context, err error, tags map[string]string) error

	// Flush waits for all pending events to be sent
	Flush(ctx context.Context) error
}
