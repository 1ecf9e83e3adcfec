package obs

import "context"

type ctxKeyRoutePattern struct{}

// WithRoutePattern records the matched chi route pattern on the context so
// downstream logging and auditing can label by route instead of raw path.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeyRoutePattern{}, pattern)
}

// RoutePatternFromContext returns the stored route pattern, or "".
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	pattern, _ := ctx.Value(ctxKeyRoutePattern{}).(string)
	return pattern
}
