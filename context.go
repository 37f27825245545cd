package authcore

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine keys
// per-IP rate limits on it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext returns the address set by [WithClientIP].
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
