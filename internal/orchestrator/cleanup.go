package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SP007-sun/pdfX/internal/metrics"
)

// RunCleanup drops sessions idle longer than the configured TTL until ctx
// is done.
func (o *Orchestrator) RunCleanup(ctx context.Context, every time.Duration) {
	if o.cfg.SessionTTL <= 0 {
		return
	}
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			o.sweepSessions(now)
		}
	}
}

func (o *Orchestrator) sweepSessions(now time.Time) int {
	expired := o.sessions.expire(now.Add(-o.cfg.SessionTTL))
	for _, e := range expired {
		e.session.Reset()
		metrics.SessionClosed()
		log.Info().Str("session_id", e.id).Str("file", e.name).Msg("session expired")
	}
	return len(expired)
}
