package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pledger/internal/identity"
	id "pledger/pkg/domain"
	"pledger/pkg/requestcontext"
)

type verificationResponse struct {
	Identity    string                      `json:"identity"`
	Status      identity.VerificationStatus `json:"status"`
	SubmittedAt time.Time                   `json:"submitted_at"`
	DecidedAt   *time.Time                  `json:"decided_at,omitempty"`
}

type submitVerificationRequest struct {
	NameHash     string `json:"name_hash"`
	DocumentHash string `json:"document_hash"`
}

func (h *handlers) submitVerification(w http.ResponseWriter, r *http.Request) {
	var req submitVerificationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	caller := requestcontext.CallerID(r.Context())
	if err := h.deps.Identity.SubmitVerification(r.Context(), caller, req.NameHash, req.DocumentHash); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusAccepted, map[string]string{"status": string(identity.StatusPending)})
}

type decideVerificationRequest struct {
	Approve bool `json:"approve"`
}

func (h *handlers) decideVerification(w http.ResponseWriter, r *http.Request) {
	subject, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	var req decideVerificationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	if err := h.deps.Identity.Decide(r.Context(), subject, req.Approve); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusNoContent, nil)
}

func (h *handlers) getVerification(w http.ResponseWriter, r *http.Request) {
	subject, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	record, err := h.deps.Identity.Get(r.Context(), subject)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, verificationResponse{
		Identity:    record.Identity.String(),
		Status:      record.Status,
		SubmittedAt: record.SubmittedAt,
		DecidedAt:   record.DecidedAt,
	})
}
