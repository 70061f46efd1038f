package statuscheck

import (
	"context"
	"errors"
	"time"
)

// Pinger models a dependency that can answer a liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Checker aggregates health checks for the service dependencies.
type Checker struct {
	redis      Pinger
	s3         Pinger
	rasterizer Pinger
}

// Options configures the Checker. Nil dependencies are reported as not
// configured.
type Options struct {
	Redis      Pinger
	S3         Pinger
	Rasterizer Pinger
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK         bool   `json:"ok"`
	Configured bool   `json:"configured"`
	Message    string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Redis Status `json:"redis"`
	S3    Status `json:"s3"`
	MuPDF Status `json:"mupdf"`
}

// Healthy reports whether every configured dependency is up and the
// rasterizer works.
func (s Summary) Healthy() bool {
	for _, st := range []Status{s.Redis, s.S3} {
		if st.Configured && !st.OK {
			return false
		}
	}
	return s.MuPDF.OK
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	return &Checker{redis: opts.Redis, s3: opts.S3, rasterizer: opts.Rasterizer}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Redis: check(ctx, c.redis, 2*time.Second, "Connected", "Not configured, using in-memory job status"),
		S3:    check(ctx, c.s3, 5*time.Second, "Connected", "Bucket not configured"),
		MuPDF: check(ctx, c.rasterizer, 5*time.Second, "Available", "Rasterizer unavailable"),
	}
}

func check(ctx context.Context, p Pinger, timeout time.Duration, okMsg, missingMsg string) Status {
	if p == nil {
		return Status{OK: false, Message: missingMsg}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return Status{OK: false, Configured: true, Message: trimError(err)}
	}
	return Status{OK: true, Configured: true, Message: okMsg}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
