package paymentlog

import "context"

// RequestInfo is the request metadata recorded on every log entry.
type RequestInfo struct {
	IPAddress string
	UserAgent string
	SessionID string
}

type contextKey string

const requestInfoContextKey contextKey = "paymentlog.requestInfo"

// WithRequestInfo attaches request metadata to ctx.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoContextKey, info)
}

// RequestInfoFrom returns the request metadata carried by ctx, if any.
func RequestInfoFrom(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoContextKey).(RequestInfo)
	return info
}
