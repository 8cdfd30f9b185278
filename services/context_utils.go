package services

import "context"

// persistentContext keeps request values but drops cancellation, so
// post-commit side effects finish even if the client disconnects.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
