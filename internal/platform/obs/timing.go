package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

const sessionIDKey ctxKey = "session_id"

// WithSession tags ctx with the tracking-session id so timed operations
// started on behalf of that session can be correlated in the logs.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// Time measures an operation and logs its duration on completion, with the
// error if the operation failed. Use with defer:
//
//	defer obs.Time(ctx, "routing.ComputeRoute")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	sessionID, _ := ctx.Value(sessionIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Printf("session=%s op=%s dur=%dms err=%v", sessionID, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("session=%s op=%s dur=%dms", sessionID, name, dur.Milliseconds())
	}
}
