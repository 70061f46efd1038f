package orchestrator

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/SP007-sun/pdfX/internal/errs"
)

type errorBody struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Position *int   `json:"position,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errs.HTTPStatus(err)
	body := errorBody{Error: string(errs.KindOf(err)), Message: err.Error()}
	if body.Error == "" {
		body.Error = "INTERNAL"
	}
	if pos := errs.PositionOf(err); pos != errs.NoPosition {
		body.Position = &pos
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("kind", body.Error).Msg("request failed")
	}
	writeJSON(w, status, body)
}

// decodeJSON reads an optional JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errs.Wrap(errs.InvalidConfig, err, "invalid request body")
	}
	return nil
}

func writeJPEG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
