package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pledger/internal/campaign"
	campaignservice "pledger/internal/campaign/service"
	"pledger/internal/milestone"
	id "pledger/pkg/domain"
	dErrors "pledger/pkg/domain-errors"
	"pledger/pkg/requestcontext"
)

type campaignResponse struct {
	ID                    id.CampaignID   `json:"id"`
	Owner                 string          `json:"owner"`
	Title                 string          `json:"title"`
	Description           string          `json:"description,omitempty"`
	Target                int64           `json:"target"`
	Deadline              time.Time       `json:"deadline"`
	AmountCollected       int64           `json:"amount_collected"`
	ImageRef              string          `json:"image_ref,omitempty"`
	PaidOut               bool            `json:"paid_out"`
	Milestones            []int64         `json:"milestones"`
	CurrentMilestoneIndex int             `json:"current_milestone_index"`
	Status                campaign.Status `json:"status"`
	TotalBackers          int             `json:"total_backers"`
	CreatedAt             time.Time       `json:"created_at"`
}

func toCampaignResponse(c *campaign.Campaign) campaignResponse {
	return campaignResponse{
		ID:                    c.ID,
		Owner:                 c.Owner.String(),
		Title:                 c.Title,
		Description:           c.Description,
		Target:                c.Target,
		Deadline:              c.Deadline,
		AmountCollected:       c.AmountCollected,
		ImageRef:              c.ImageRef,
		PaidOut:               c.PaidOut,
		Milestones:            c.Milestones,
		CurrentMilestoneIndex: c.CurrentMilestoneIndex,
		Status:                c.Status,
		TotalBackers:          c.TotalBackers(),
		CreatedAt:             c.CreatedAt,
	}
}

type createCampaignRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Target      int64     `json:"target"`
	Deadline    time.Time `json:"deadline"`
	ImageRef    string    `json:"image_ref"`
	Milestones  []int64   `json:"milestones"`
}

func (h *handlers) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	caller := requestcontext.CallerID(r.Context())
	c, err := h.deps.Campaigns.Create(r.Context(), caller, campaignservice.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Target:      req.Target,
		Deadline:    req.Deadline,
		ImageRef:    req.ImageRef,
		Milestones:  req.Milestones,
	})
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusCreated, toCampaignResponse(c))
}

func (h *handlers) getCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	c, err := h.deps.Campaigns.Get(r.Context(), campaignID)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, toCampaignResponse(c))
}

func (h *handlers) listCampaigns(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := parsePage(r)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	campaigns, err := h.deps.Campaigns.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	out := make([]campaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, toCampaignResponse(c))
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, out)
}

func (h *handlers) campaignAnalytics(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	a, err := h.deps.Campaigns.Analytics(r.Context(), campaignID)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, a)
}

type donateRequest struct {
	Amount int64 `json:"amount"`
}

type donateResponse struct {
	ReceiptID id.ReceiptID `json:"receipt_id"`
}

func (h *handlers) donate(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	var req donateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	donor := requestcontext.CallerID(r.Context())
	receiptID, err := h.deps.Campaigns.Donate(r.Context(), campaignID, donor, req.Amount)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusCreated, donateResponse{ReceiptID: receiptID})
}

type statusResponse struct {
	CampaignID id.CampaignID   `json:"campaign_id"`
	Status     campaign.Status `json:"status"`
}

func (h *handlers) evaluateStatus(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	status, err := h.deps.Campaigns.EvaluateStatus(r.Context(), campaignID)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, statusResponse{CampaignID: campaignID, Status: status})
}

type batchEvaluateRequest struct {
	CampaignIDs []id.CampaignID `json:"campaign_ids"`
}

func (h *handlers) batchEvaluateStatus(w http.ResponseWriter, r *http.Request) {
	var req batchEvaluateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	results, err := h.deps.Campaigns.BatchEvaluateStatus(r.Context(), req.CampaignIDs)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, results)
}

type withdrawResponse struct {
	CampaignID id.CampaignID `json:"campaign_id"`
	Amount     int64         `json:"amount"`
}

func (h *handlers) withdraw(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	caller := requestcontext.CallerID(r.Context())
	amount, err := h.deps.Campaigns.Withdraw(r.Context(), campaignID, caller)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, withdrawResponse{CampaignID: campaignID, Amount: amount})
}

type refundResponse struct {
	CampaignID id.CampaignID `json:"campaign_id"`
	Amount     int64         `json:"amount"`
}

func (h *handlers) claimRefund(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	donor := requestcontext.CallerID(r.Context())
	amount, err := h.deps.Refunds.Claim(r.Context(), campaignID, donor)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, refundResponse{CampaignID: campaignID, Amount: amount})
}

type completeMilestoneRequest struct {
	Proof string `json:"proof"`
}

type completeMilestoneResponse struct {
	CampaignID            id.CampaignID `json:"campaign_id"`
	CurrentMilestoneIndex int           `json:"current_milestone_index"`
}

func (h *handlers) completeMilestone(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	var req completeMilestoneRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	caller := requestcontext.CallerID(r.Context())
	newIndex, err := h.deps.Milestones.Complete(r.Context(), campaignID, caller, req.Proof)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, completeMilestoneResponse{
		CampaignID:            campaignID,
		CurrentMilestoneIndex: newIndex,
	})
}

type updateMilestoneRequest struct {
	Value int64 `json:"value"`
}

func (h *handlers) updateMilestone(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, h.deps.Logger, dErrors.New(dErrors.CodeBadRequest, "invalid milestone index"))
		return
	}
	var req updateMilestoneRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	caller := requestcontext.CallerID(r.Context())
	if err := h.deps.Milestones.Update(r.Context(), campaignID, caller, index, req.Value); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusNoContent, nil)
}

type proofResponse struct {
	CampaignID     id.CampaignID `json:"campaign_id"`
	MilestoneIndex int           `json:"milestone_index"`
	Submitter      string        `json:"submitter"`
	Proof          string        `json:"proof"`
	SubmittedAt    time.Time     `json:"submitted_at"`
}

func (h *handlers) listProofs(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	proofs, err := h.deps.Milestones.Proofs(r.Context(), campaignID)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	out := make([]proofResponse, 0, len(proofs))
	for _, p := range proofs {
		out = append(out, toProofResponse(p))
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, out)
}

func toProofResponse(p milestone.Proof) proofResponse {
	return proofResponse{
		CampaignID:     p.CampaignID,
		MilestoneIndex: p.MilestoneIndex,
		Submitter:      p.Submitter.String(),
		Proof:          p.Proof,
		SubmittedAt:    p.SubmittedAt,
	}
}

func parsePage(r *http.Request) (offset, limit int, err error) {
	q := r.URL.Query()
	if raw := q.Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, dErrors.New(dErrors.CodeBadRequest, "invalid offset")
		}
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return 0, 0, dErrors.New(dErrors.CodeBadRequest, "invalid limit")
		}
	}
	return offset, limit, nil
}
