package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pledger/internal/receipt"
	id "pledger/pkg/domain"
)

type receiptResponse struct {
	ID         id.ReceiptID  `json:"id"`
	CampaignID id.CampaignID `json:"campaign_id"`
	Donor      string        `json:"donor"`
	Amount     int64         `json:"amount"`
	IssuedAt   time.Time     `json:"issued_at"`
}

func toReceiptResponse(rc *receipt.Receipt) receiptResponse {
	return receiptResponse{
		ID:         rc.ID,
		CampaignID: rc.CampaignID,
		Donor:      rc.Donor.String(),
		Amount:     rc.Amount,
		IssuedAt:   rc.IssuedAt,
	}
}

func (h *handlers) getReceipt(w http.ResponseWriter, r *http.Request) {
	receiptID, err := id.ParseReceiptID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	rc, err := h.deps.Receipts.Get(r.Context(), receiptID)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, toReceiptResponse(rc))
}

func (h *handlers) listDonorReceipts(w http.ResponseWriter, r *http.Request) {
	donor, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	receipts, err := h.deps.Receipts.ListByDonor(r.Context(), donor)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	out := make([]receiptResponse, 0, len(receipts))
	for _, rc := range receipts {
		out = append(out, toReceiptResponse(rc))
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, out)
}

func (h *handlers) listCampaignReceipts(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	receipts, err := h.deps.Receipts.ListByCampaign(r.Context(), campaignID)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	out := make([]receiptResponse, 0, len(receipts))
	for _, rc := range receipts {
		out = append(out, toReceiptResponse(rc))
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, out)
}
