package port

import "context"

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, to string, runID string, experiment string, errorMsg string) error
}
