package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/AndersD76/portalpili-producao-sub005/internal/api"
	"github.com/AndersD76/portalpili-producao-sub005/internal/artifacts"
	"github.com/AndersD76/portalpili-producao-sub005/internal/issuer"
	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: message, Code: code})
}

// writeWorkflowError maps workflow errors onto HTTP statuses. Anything it
// does not recognize is logged and reported as a bare 500.
func (s *Server) writeWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound), errors.Is(err, workflow.ErrWrongKind):
		s.metrics.AccessRejected(r.Context(), api.CodeNotFound)
		writeError(w, http.StatusNotFound, api.CodeNotFound, "link not found")
	case errors.Is(err, workflow.ErrExpired):
		s.metrics.AccessRejected(r.Context(), api.CodeExpired)
		writeError(w, http.StatusGone, api.CodeExpired, "link expired, request a new one")
	case errors.Is(err, workflow.ErrAlreadyDecided):
		writeError(w, http.StatusConflict, api.CodeAlreadyDecided, "a decision was already submitted")
	case errors.Is(err, workflow.ErrPreconditionFailed):
		writeError(w, http.StatusBadRequest, api.CodePreconditionFailed, err.Error())
	case errors.Is(err, workflow.ErrInvalidState),
		errors.Is(err, workflow.ErrNoItems),
		errors.Is(err, workflow.ErrRecordNotFound),
		errors.Is(err, artifacts.ErrEmptyArtifact),
		errors.Is(err, issuer.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, api.CodeInvalidRequest, err.Error())
	default:
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.String("method", r.Method),
			logging.Error(err),
		)
		writeError(w, http.StatusInternalServerError, api.CodeInternal, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
