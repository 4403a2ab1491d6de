package server

import (
	"net/http"

	"github.com/AndersD76/portalpili-producao-sub005/internal/api"
	"github.com/AndersD76/portalpili-producao-sub005/internal/issuer"
)

func (s *Server) handleIssueStatusCheck(w http.ResponseWriter, r *http.Request) {
	var req api.IssueStatusCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeInvalidRequest, err.Error())
		return
	}
	tok, err := s.svc.Issuer.IssueStatusCheckToken(r.Context(), req.SubjectID, req.Items, issuer.WithRecipient(req.Recipient))
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	link := s.cfg.StatusCheckLink(tok.Header.Token)
	msg := s.svc.Renderer.RenderStatusCheckLink(link, len(tok.Items), tok.Header.ExpiresAt)
	queued := s.enqueue(r, tok.Header, msg)
	writeJSON(w, http.StatusCreated, api.NewIssueResponse(tok.Header, link, queued))
}

func (s *Server) handleIssueAnalysis(w http.ResponseWriter, r *http.Request) {
	var req api.IssueAnalysisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeInvalidRequest, err.Error())
		return
	}
	tok, err := s.svc.Issuer.IssueBudgetAnalysisToken(r.Context(), req.SubjectID, api.ToProposal(req.Proposal), issuer.WithRecipient(req.Recipient))
	if err != nil {
		s.writeWorkflowError(w, r, err)
		return
	}
	link := s.cfg.AnalysisLink(tok.Header.Token)
	msg := s.svc.Renderer.RenderAnalysisLink(*tok.Proposal, link, tok.Header.ExpiresAt)
	queued := s.enqueue(r, tok.Header, msg)
	writeJSON(w, http.StatusCreated, api.NewIssueResponse(tok.Header, link, queued))
}
