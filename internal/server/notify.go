package server

import (
	"context"
	"net/http"

	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/notifications"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

// enqueue hands a message to the dispatcher without waiting for delivery.
// Failures are logged and never fail the request.
func (s *Server) enqueue(r *http.Request, header workflow.Header, msg notifications.Message) bool {
	if s.svc.Dispatcher == nil || header.NotifyRecipient == "" {
		return false
	}
	_, err := s.svc.Dispatcher.Enqueue(context.WithoutCancel(r.Context()), notifications.Job{
		TokenID:   header.ID,
		Token:     header.Token,
		Recipient: header.NotifyRecipient,
		Message:   msg,
	})
	if err != nil {
		logging.WithContext(r.Context(), s.logger).Warn("notification not queued",
			logging.Int64(logging.FieldTokenID, header.ID),
			logging.Error(err),
			logging.Alert("notification_dropped"),
		)
		return false
	}
	return true
}

func (s *Server) notifyArtifactReady(r *http.Request, token, link string) {
	if s.svc.Dispatcher == nil {
		return
	}
	tok, err := s.svc.Store.LookupToken(r.Context(), token)
	if err != nil {
		logging.WithContext(r.Context(), s.logger).Warn("artifact notification skipped", logging.Error(err))
		return
	}
	if tok.Proposal == nil {
		return
	}
	s.enqueue(r, tok.Header, s.svc.Renderer.RenderArtifactReady(*tok.Proposal, link))
}
