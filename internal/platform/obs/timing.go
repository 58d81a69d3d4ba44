package obs

import (
	"context"
	"time"

	"transit-map-service/internal/platform/logging"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// WithRequestID stores the request id used to correlate timing logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Time logs the duration of an operation when the returned func is deferred.
//
//	defer obs.Time(ctx, "repo.ListRoutes")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	reqID := RequestID(ctx)

	return func(errp *error) {
		dur := time.Since(start)
		log := logging.Std()

		if errp != nil && *errp != nil {
			log.Warn("operation failed", "req_id", reqID, "op", name, "dur_ms", dur.Milliseconds(), "err", (*errp).Error())
			return
		}
		log.Debug("operation done", "req_id", reqID, "op", name, "dur_ms", dur.Milliseconds())
	}
}
