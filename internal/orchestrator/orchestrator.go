// Package orchestrator serves editing sessions and export jobs over HTTP.
package orchestrator

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/SP007-sun/pdfX/internal/document"
	"github.com/SP007-sun/pdfX/internal/imagerender"
	"github.com/SP007-sun/pdfX/internal/limiter"
	"github.com/SP007-sun/pdfX/internal/metrics"
	"github.com/SP007-sun/pdfX/internal/pdfdoc"
	"github.com/SP007-sun/pdfX/internal/statuscheck"
	"github.com/SP007-sun/pdfX/internal/storage"
	"github.com/SP007-sun/pdfX/internal/store"
)

// ResultUploader stores export results remotely.
type ResultUploader interface {
	Upload(ctx context.Context, key string, data []byte, password string, meta *storage.FileMetadata) error
}

// Dependencies are the collaborators of the service.
type Dependencies struct {
	Status   store.StatusStore
	Fetcher  *storage.Fetcher
	Results  ResultUploader // nil disables result uploads
	Checker  *statuscheck.Checker
	Opener   imagerender.Opener
	Composer document.Composer
	Writer   pdfdoc.Writer
}

// Config holds service settings.
type Config struct {
	ResultDir      string
	MaxUploadBytes int64
	S3Prefix       string
	UploadResults  bool
	Password       string
	SessionTTL     time.Duration
	RenderScale    float64
	RenderQuality  int
	MaxExports     int // concurrent export jobs
}

type Orchestrator struct {
	deps     Dependencies
	cfg      Config
	sessions *registry
	exports  *limiter.Slots
	ctx      context.Context // parent of export jobs
	jobs     sync.WaitGroup
}

func New(ctx context.Context, deps Dependencies, cfg Config) *Orchestrator {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 100 << 20
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if deps.Writer == nil {
		deps.Writer = pdfdoc.NewWriter()
	}
	if deps.Fetcher == nil {
		deps.Fetcher = &storage.Fetcher{MaxBytes: cfg.MaxUploadBytes}
	}
	if deps.Status == nil {
		deps.Status = store.NewMemoryStatus(0)
	}
	return &Orchestrator{deps: deps, cfg: cfg, sessions: newRegistry(), exports: limiter.New(cfg.MaxExports), ctx: ctx}
}

// Routes returns the HTTP API.
func (o *Orchestrator) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", o.handleStatus)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", o.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", o.withSession(o.handleGetSession))
			r.Delete("/", o.handleDeleteSession)
			r.Get("/pages/{pageID}/thumbnail", o.withSession(o.handleThumbnail))
			r.Post("/selection", o.withSession(o.handleSelection))
			r.Post("/delete", o.withSession(o.handleDelete))
			r.Post("/merge/preview", o.withSession(o.handlePreview))
			r.Post("/merge", o.withSession(o.handleMerge))
			r.Post("/demerge", o.withSession(o.handleDemerge))
			r.Put("/invert", o.withSession(o.handleInvert))
			r.Post("/export", o.withSession(o.handleExport))
		})
	})
	r.Get("/jobs/{jobID}", o.handleJob)
	r.Get("/jobs/{jobID}/result", o.handleJobResult)
	return r
}

// Wait blocks until running export jobs finish.
func (o *Orchestrator) Wait() { o.jobs.Wait() }

func (o *Orchestrator) newSession() *document.Session {
	return document.NewSession(document.Options{
		Opener:   o.deps.Opener,
		Composer: o.deps.Composer,
		Scale:    o.cfg.RenderScale,
		Quality:  o.cfg.RenderQuality,
	})
}

func (o *Orchestrator) handleStatus(w http.ResponseWriter, r *http.Request) {
	if o.deps.Checker == nil {
		writeJSON(w, http.StatusOK, map[string]any{"sessions": o.sessions.len()})
		return
	}
	sum := o.deps.Checker.Summary(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"healthy":  sum.Healthy(),
		"services": sum,
		"sessions": o.sessions.len(),
	})
}
