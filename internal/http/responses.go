package http

import (
	"time"

	"planledger/internal/core"
	"planledger/internal/services"
)

// Amounts go over the wire as fixed two-decimal strings.

type planResponse struct {
	ID               string `json:"id"`
	Kind             string `json:"kind"`
	Description      string `json:"description"`
	Counterparty     string `json:"counterparty"`
	CategoryID       string `json:"category_id,omitempty"`
	Total            string `json:"total"`
	Paid             string `json:"paid"`
	Remaining        string `json:"remaining"`
	InstallmentCount int    `json:"installment_count"`
	PaidCount        int    `json:"paid_count"`
	Status           string `json:"status"`
	FirstDueDate     string `json:"first_due_date"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func toPlanResponse(p core.Plan) planResponse {
	return planResponse{
		ID:               p.ID,
		Kind:             string(p.Kind),
		Description:      p.Description,
		Counterparty:     p.Counterparty,
		CategoryID:       p.CategoryID,
		Total:            p.Total.String(),
		Paid:             p.Paid.String(),
		Remaining:        p.Remaining.String(),
		InstallmentCount: p.InstallmentCount,
		PaidCount:        p.PaidCount,
		Status:           string(p.Status),
		FirstDueDate:     p.FirstDueDate.String(),
		CreatedAt:        p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type aggregateResponse struct {
	PlanID           string `json:"plan_id"`
	Total            string `json:"total"`
	Paid             string `json:"paid"`
	Remaining        string `json:"remaining"`
	InstallmentCount int    `json:"installment_count"`
	PaidCount        int    `json:"paid_count"`
	Status           string `json:"status"`
}

func toAggregateResponse(a core.PlanAggregate) aggregateResponse {
	return aggregateResponse{
		PlanID:           a.PlanID,
		Total:            a.Total.String(),
		Paid:             a.Paid.String(),
		Remaining:        a.Remaining.String(),
		InstallmentCount: a.InstallmentCount,
		PaidCount:        a.PaidCount,
		Status:           string(a.Status),
	}
}

type installmentResponse struct {
	ID          string `json:"id"`
	PlanID      string `json:"plan_id"`
	EntryID     string `json:"entry_id"`
	Sequence    int    `json:"sequence"`
	DueDate     string `json:"due_date"`
	Share       string `json:"share"`
	Status      string `json:"status"`
	EntryStatus string `json:"entry_status,omitempty"`
}

func toInstallmentResponse(v core.InstallmentLedgerView) installmentResponse {
	return installmentResponse{
		ID:          v.ID,
		PlanID:      v.PlanID,
		EntryID:     v.EntryID,
		Sequence:    v.Sequence,
		DueDate:     v.DueDate.String(),
		Share:       v.Share.String(),
		Status:      string(v.Status),
		EntryStatus: string(v.EntryStatus),
	}
}

type syncResponse struct {
	Installment  *installmentResponse `json:"installment,omitempty"`
	PlanID       string               `json:"plan_id,omitempty"`
	EntryID      string               `json:"entry_id"`
	EntryStatus  string               `json:"entry_status"`
	Aggregate    *aggregateResponse   `json:"aggregate,omitempty"`
	RecomputeErr string               `json:"recompute_error,omitempty"`
	EnqueueErr   string               `json:"enqueue_error,omitempty"`
}

func toSyncResponse(r services.SyncResult) syncResponse {
	out := syncResponse{
		PlanID:      r.PlanID,
		EntryID:     r.EntryID,
		EntryStatus: string(r.EntryStatus),
	}
	if r.Installment.ID != "" {
		inst := toInstallmentResponse(core.InstallmentLedgerView{Installment: r.Installment, EntryStatus: r.EntryStatus})
		out.Installment = &inst
	}
	if r.Aggregate != nil {
		agg := toAggregateResponse(*r.Aggregate)
		out.Aggregate = &agg
	}
	if r.RecomputeErr != nil {
		out.RecomputeErr = r.RecomputeErr.Error()
	}
	if r.EnqueueErr != nil {
		out.EnqueueErr = r.EnqueueErr.Error()
	}
	return out
}
