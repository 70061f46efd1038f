package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SP007-sun/pdfX/internal/compositor"
	cfgpkg "github.com/SP007-sun/pdfX/internal/config"
	"github.com/SP007-sun/pdfX/internal/imagerender"
	logpkg "github.com/SP007-sun/pdfX/internal/logger"
	"github.com/SP007-sun/pdfX/internal/metrics"
	"github.com/SP007-sun/pdfX/internal/orchestrator"
	"github.com/SP007-sun/pdfX/internal/pdfdoc"
	"github.com/SP007-sun/pdfX/internal/statuscheck"
	"github.com/SP007-sun/pdfX/internal/storage"
	"github.com/SP007-sun/pdfX/internal/store"
)

func main() {
	if err := cfgpkg.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg := cfgpkg.FromEnv()

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := pdfdoc.NewWriter()
	checks := statuscheck.Options{Rasterizer: statuscheck.RasterCheck(imagerender.Default(), writer)}

	// Status store
	var status store.StatusStore
	if cfg.Status.RedisURL != "" {
		rs, err := store.NewRedisStatus(cfg.Status.RedisURL, cfg.Status.TTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init redis status store")
		}
		status = rs
		checks.Redis = rs
	} else {
		status = store.NewMemoryStatus(cfg.Status.TTL)
		log.Info().Msg("REDIS_URL not set, job status kept in memory")
	}
	defer status.Close()

	// Source refs: s3 always, local files only under SOURCE_FILE_ROOT, web only when allowed
	fetcher := &storage.Fetcher{
		MaxBytes:   cfg.Server.MaxUploadBytes,
		Password:   cfg.Storage.EncryptionPassword,
		AllowFiles: cfg.Server.SourceFileRoot != "",
		FileRoot:   cfg.Server.SourceFileRoot,
		AllowHTTP:  cfg.Server.AllowHTTPSources,
	}
	if fetcher.AllowFiles {
		log.Info().Str("root", fetcher.FileRoot).Msg("local source refs enabled")
	}

	// S3
	deps := orchestrator.Dependencies{
		Status:   status,
		Fetcher:  fetcher,
		Opener:   imagerender.Default(),
		Composer: compositor.New(),
		Writer:   writer,
	}
	if cfg.Storage.Bucket != "" {
		s3c, err := storage.NewS3Client(ctx, cfg.Storage.Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init S3 client")
		}
		deps.Results = s3c
		checks.S3 = s3c
		log.Info().Str("bucket", s3c.Bucket()).Bool("upload_results", cfg.Storage.UploadResults).Msg("S3 storage enabled")
	}
	deps.Checker = statuscheck.New(checks)

	orch := orchestrator.New(ctx, deps, orchestrator.Config{
		ResultDir:      cfg.Server.ResultDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		S3Prefix:       cfg.Storage.Prefix,
		UploadResults:  cfg.Storage.UploadResults && cfg.Storage.Bucket != "",
		Password:       cfg.Storage.EncryptionPassword,
		SessionTTL:     cfg.Server.SessionTTL,
		RenderScale:    cfg.Render.Scale,
		RenderQuality:  cfg.Render.Quality,
		MaxExports:     cfg.Server.MaxExports,
	})
	go orch.RunCleanup(ctx, time.Minute)

	port := cfg.Server.Port
	srv := &http.Server{Addr: ":" + port, Handler: orch.Routes(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info().Msgf("HTTP server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
	orch.Wait()
	fmt.Println("shutdown complete")
}
