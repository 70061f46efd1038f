package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SP007-sun/pdfX/internal/document"
	"github.com/SP007-sun/pdfX/internal/errs"
	"github.com/SP007-sun/pdfX/internal/export"
	"github.com/SP007-sun/pdfX/internal/storage"
	"github.com/SP007-sun/pdfX/internal/store"
)

// startExport snapshots the session and exports it in the background.
func (o *Orchestrator) startExport(ctx context.Context, e *sessionEntry) (string, error) {
	jobID := uuid.NewString()
	snap := e.session.Snapshot()
	e.session.Report(nil)

	st := store.Status{
		Status:    store.StatusQueued,
		Message:   "queued",
		Total:     len(snap.Pages),
		SessionID: e.id,
		FileName:  export.OutputName(e.name),
	}
	if err := o.deps.Status.Set(ctx, jobID, st); err != nil {
		return "", fmt.Errorf("store job status: %w", err)
	}

	o.jobs.Add(1)
	go func() {
		defer o.jobs.Done()
		o.runExport(jobID, e, snap, st)
	}()
	return jobID, nil
}

func (o *Orchestrator) runExport(jobID string, e *sessionEntry, snap document.Snapshot, st store.Status) {
	ctx := o.ctx
	lg := log.With().Str("job_id", jobID).Str("session_id", e.id).Logger()
	set := func(s store.Status) {
		if err := o.deps.Status.Set(context.Background(), jobID, s); err != nil {
			lg.Warn().Err(err).Msg("update job status")
		}
	}

	release, err := o.exports.Acquire(ctx, "export")
	if err != nil {
		o.failJob(jobID, st, err)
		return
	}
	defer release()

	start := time.Now()
	st.Status, st.Message, st.Start = store.StatusRunning, "exporting", &start
	set(st)

	pipe := export.New(o.deps.Writer, o.deps.Composer, export.WithProgress(func(done, total int) {
		st.Current = done
		st.Progress = store.Percent(done, total)
		st.Message = fmt.Sprintf("exported page %d of %d", done, total)
		set(st)
	}))

	data, err := pipe.Export(ctx, snap)
	e.session.Report(err)
	if err != nil {
		o.failJob(jobID, st, err)
		return
	}

	path, err := storage.SaveLocal(o.cfg.ResultDir, jobID, st.FileName, data)
	if err != nil {
		o.failJob(jobID, st, err)
		return
	}
	st.ResultRef = path
	st.Message = "completed"

	if o.cfg.UploadResults && o.deps.Results != nil {
		key := storage.ResultKey(o.cfg.S3Prefix, jobID, st.FileName)
		meta := &storage.FileMetadata{
			OriginalName: st.FileName,
			ContentType:  "application/pdf",
			Metadata:     map[string]string{"job-id": jobID, "session-id": e.id},
		}
		if err := o.deps.Results.Upload(ctx, key, data, o.cfg.Password, meta); err != nil {
			lg.Warn().Err(err).Str("key", key).Msg("result upload failed; local copy kept")
			st.Message = "completed; upload failed"
		} else {
			st.Message = "completed; uploaded " + key
		}
	}

	end := time.Now()
	st.Status, st.Progress, st.End = store.StatusDone, 100, &end
	set(st)
	lg.Info().Str("path", path).Int("pages", st.Total).Int("bytes", len(data)).Dur("elapsed", end.Sub(start)).Msg("export finished")
}

func (o *Orchestrator) failJob(jobID string, st store.Status, err error) {
	end := time.Now()
	st.Status, st.End = store.StatusFailed, &end
	st.Message = err.Error()
	st.ErrorKind = string(errs.KindOf(err))
	if pos := errs.PositionOf(err); pos != errs.NoPosition {
		st.Position = &pos
	}
	if err := o.deps.Status.Set(context.Background(), jobID, st); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("update job status")
	}
	log.Error().Err(err).Str("job_id", jobID).Str("kind", st.ErrorKind).Msg("export failed")
}
