package jobs

import "context"

type progressKey struct{}

// WithProgress attaches a hook that long-running handlers call to tell the
// backend the job is still alive.
func WithProgress(ctx context.Context, fn func()) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// Progress reports liveness for the job running under ctx. Without a hook it
// does nothing.
func Progress(ctx context.Context) {
	if fn, ok := ctx.Value(progressKey{}).(func()); ok && fn != nil {
		fn()
	}
}
