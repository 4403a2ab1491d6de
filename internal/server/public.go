package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AndersD76/portalpili-producao-sub005/internal/api"
	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

func pathToken(r *http.Request) string {
	return chi.URLParam(r, "token")
}

// loadToken resolves a public token of the expected kind. A token of the
// other kind is reported as unknown.
func (s *Server) loadToken(r *http.Request, kind workflow.Kind) (*workflow.Token, error) {
	tok, err := s.svc.Store.GetByToken(r.Context(), pathToken(r), s.now().UTC())
	if err != nil {
		return nil, err
	}
	if tok.Header.Kind != kind {
		return nil, workflow.ErrNotFound
	}
	return tok, nil
}

func (s *Server) handleGetStatusCheck(w http.ResponseWriter, r *http.Request) {
	tok, err := s.loadToken(r, workflow.KindStatusCheck)
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	titles := make(map[int64]string, len(tok.Items))
	for _, item := range tok.Items {
		opp, err := s.svc.Store.GetOpportunity(r.Context(), item.RecordID)
		if err != nil {
			s.writeWorkflowError(w, r, err)
			return
		}
		if opp != nil {
			titles[item.RecordID] = opp.Title
		}
	}
	writeJSON(w, http.StatusOK, api.NewStatusCheckView(tok, titles, s.now().UTC()))
}

func (s *Server) handlePutStatusCheck(w http.ResponseWriter, r *http.Request) {
	var req api.ResponsesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeInvalidRequest, err.Error())
		return
	}
	res, err := s.svc.Reconciler.ApplyResponses(r.Context(), pathToken(r), api.ToResponses(req))
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromResult(res, s.now().UTC()))
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	tok, err := s.loadToken(r, workflow.KindBudgetAnalysis)
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	link := ""
	artifact, err := s.svc.Store.GetArtifact(r.Context(), tok.Header.ID)
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	if artifact != nil {
		link = s.cfg.ArtifactLink(tok.Header.Token)
	}
	writeJSON(w, http.StatusOK, api.NewAnalysisView(tok, link, s.now().UTC()))
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req api.DecisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeInvalidRequest, err.Error())
		return
	}
	header, err := s.svc.Reconciler.ApplyApproval(r.Context(), pathToken(r), req.Decision, req.AdjustedDiscountPercent, req.Note)
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.HeaderResponse{Header: api.FromHeader(*header, s.now().UTC())})
}

func (s *Server) handleUploadArtifact(w http.ResponseWriter, r *http.Request) {
	token := pathToken(r)
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxArtifactBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, api.CodeInvalidRequest, "artifact too large")
			return
		}
		writeError(w, http.StatusBadRequest, api.CodeInvalidRequest, "read artifact body")
		return
	}
	artifact, err := s.svc.Artifacts.AttachArtifact(r.Context(), token, data, r.Header.Get("Content-Type"))
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	link := s.cfg.ArtifactLink(token)
	s.notifyArtifactReady(r, token, link)
	writeJSON(w, http.StatusOK, api.FromArtifact(artifact, link))
}

func (s *Server) handleDownloadArtifact(w http.ResponseWriter, r *http.Request) {
	artifact, data, err := s.svc.Artifacts.FetchArtifact(r.Context(), pathToken(r))
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("ETag", strconv.Quote(artifact.SHA256))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.WithContext(r.Context(), s.logger).Debug("artifact write interrupted", logging.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.svc.Store.CheckHealth(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, api.Health{Status: "degraded", Database: health.Driver, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, api.Health{Status: "ok", Database: health.Driver})
}
