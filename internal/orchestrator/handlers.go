package orchestrator

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SP007-sun/pdfX/internal/document"
	"github.com/SP007-sun/pdfX/internal/errs"
	"github.com/SP007-sun/pdfX/internal/imagerender"
	"github.com/SP007-sun/pdfX/internal/metrics"
	"github.com/SP007-sun/pdfX/internal/model"
	"github.com/SP007-sun/pdfX/internal/storage"
	"github.com/SP007-sun/pdfX/internal/store"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, e *sessionEntry)

func (o *Orchestrator) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		e, ok := o.sessions.get(id)
		if !ok {
			writeError(w, errs.New(errs.NotFound, "session %s not found", id))
			return
		}
		h(w, r, e)
	}
}

type createRequest struct {
	SourceRef string `json:"source_ref"`
}

// handleCreateSession loads a document from a multipart "file" field or
// from a JSON {"source_ref": ...} body.
func (o *Orchestrator) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	data, name, err := o.readSource(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	s := o.newSession()
	if err := s.Load(data, nil); err != nil {
		writeError(w, err)
		return
	}
	e := &sessionEntry{id: uuid.NewString(), name: name, session: s}
	o.sessions.add(e)
	metrics.SessionOpened()
	log.Info().Str("session_id", e.id).Str("file", name).Int("pages", s.SourcePageCount()).Msg("session created")
	writeJSON(w, http.StatusCreated, viewOf(e))
}

func (o *Orchestrator) readSource(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, o.cfg.MaxUploadBytes+1<<20)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, "", errs.Wrap(errs.InvalidConfig, err, "invalid multipart upload")
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return nil, "", errs.Wrap(errs.InvalidConfig, err, "missing file field")
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, o.cfg.MaxUploadBytes+1))
		if err != nil {
			return nil, "", errs.Wrap(errs.SourceUnreadable, err, "read upload")
		}
		if int64(len(data)) > o.cfg.MaxUploadBytes {
			return nil, "", errs.New(errs.InvalidConfig, "upload exceeds %d bytes", o.cfg.MaxUploadBytes)
		}
		return data, filepath.Base(hdr.Filename), nil
	}

	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(req.SourceRef) == "" {
		return nil, "", errs.New(errs.InvalidConfig, "source_ref or file upload required")
	}
	got, err := o.deps.Fetcher.Fetch(r.Context(), req.SourceRef)
	if errors.Is(err, storage.ErrRefNotAllowed) {
		return nil, "", errs.Wrap(errs.InvalidConfig, err, "source_ref %s", req.SourceRef)
	}
	if err != nil {
		return nil, "", errs.Wrap(errs.SourceUnreadable, err, "fetch %s", req.SourceRef)
	}
	return got.Data, got.Name, nil
}

func (o *Orchestrator) handleGetSession(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	writeJSON(w, http.StatusOK, viewOf(e))
}

func (o *Orchestrator) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	e, ok := o.sessions.remove(id)
	if !ok {
		writeError(w, errs.New(errs.NotFound, "session %s not found", id))
		return
	}
	e.session.Reset()
	metrics.SessionClosed()
	w.WriteHeader(http.StatusNoContent)
}

type thumbnailView struct {
	ID     document.ID `json:"id"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Data   string      `json:"data"` // base64 JPEG
}

// handleThumbnail serves the page image as JPEG, or as JSON with
// ?format=base64.
func (o *Orchestrator) handleThumbnail(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	id := document.ID(chi.URLParam(r, "pageID"))
	data, err := e.session.Thumbnail(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("format") != "base64" {
		writeJPEG(w, data)
		return
	}
	width, height, err := imagerender.GetImageDimensions(data)
	if err != nil {
		writeError(w, errs.Wrap(errs.PageRenderFailed, err, "thumbnail %s", id))
		return
	}
	writeJSON(w, http.StatusOK, thumbnailView{ID: id, Width: width, Height: height, Data: imagerender.EncodeToBase64(data)})
}

type selectionRequest struct {
	Select   []document.ID `json:"select"`
	Deselect []document.ID `json:"deselect"`
	Toggle   []document.ID `json:"toggle"`
	Clear    bool          `json:"clear"`
}

// handleSelection applies clear, then deselect, select and toggle.
func (o *Orchestrator) handleSelection(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s := e.session
	if req.Clear {
		s.ClearSelection()
	}
	for _, id := range req.Deselect {
		s.Deselect(id)
	}
	for _, id := range req.Select {
		s.Select(id)
	}
	for _, id := range req.Toggle {
		s.Toggle(id)
	}
	writeJSON(w, http.StatusOK, viewOf(e))
}

func (o *Orchestrator) handleDelete(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	removed := e.session.Delete()
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "session": viewOf(e)})
}

func (o *Orchestrator) handlePreview(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var cfg model.MergeConfig
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, err)
		return
	}
	data, err := e.session.PreviewMerge(cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJPEG(w, data)
}

func (o *Orchestrator) handleMerge(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var cfg model.MergeConfig
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, err)
		return
	}
	m, err := e.session.Merge(cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"page_id": m.ID, "session": viewOf(e)})
}

func (o *Orchestrator) handleDemerge(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	restored, err := e.session.Demerge()
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]document.ID, len(restored))
	for i, p := range restored {
		ids[i] = p.ID
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": ids, "session": viewOf(e)})
}

type invertRequest struct {
	Invert *bool `json:"invert"`
}

func (o *Orchestrator) handleInvert(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var req invertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Invert == nil {
		writeError(w, errs.New(errs.InvalidConfig, "invert is required"))
		return
	}
	e.session.SetGlobalInvert(*req.Invert)
	writeJSON(w, http.StatusOK, viewOf(e))
}

func (o *Orchestrator) handleExport(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	if !e.session.Loaded() {
		writeError(w, errs.New(errs.InvalidConfig, "session has no document"))
		return
	}
	jobID, err := o.startExport(r.Context(), e)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/jobs/"+jobID)
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (o *Orchestrator) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	st, ok, err := o.deps.Status.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, errs.New(errs.NotFound, "job %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (o *Orchestrator) handleJobResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	st, ok, err := o.deps.Status.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, errs.New(errs.NotFound, "job %s not found", id))
		return
	}
	if st.Status != store.StatusDone || st.ResultRef == "" {
		writeError(w, errs.New(errs.NotFound, "job %s has no result (status %s)", id, st.Status))
		return
	}
	if !strings.HasPrefix(filepath.Clean(st.ResultRef), filepath.Clean(o.cfg.ResultDir)) {
		writeError(w, errors.New("result is not stored locally"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": st.FileName}))
	http.ServeFile(w, r, st.ResultRef)
}
