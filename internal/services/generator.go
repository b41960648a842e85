package services

import (
	"fmt"
	"strings"

	"planledger/internal/core"
)

// GenerateRequest describes the plan whose periods are being laid out.
type GenerateRequest struct {
	OwnerID      string
	Kind         core.PlanKind
	Description  string
	Counterparty string
	CategoryID   string
	Total        core.Money
	Count        int
	FirstDue     core.Date
}

// PeriodDraft pairs the ledger entry of one period with its installment.
// Installment.PlanID and Installment.EntryID are filled in by the caller once
// the plan row and the entry exist.
type PeriodDraft struct {
	Sequence    int
	Entry       core.LedgerEntryDraft
	Installment core.InstallmentDraft
}

func requestFromDraft(d core.PlanDraft) GenerateRequest {
	return GenerateRequest{
		OwnerID:      d.OwnerID,
		Kind:         d.Kind,
		Description:  d.Description,
		Counterparty: d.Counterparty,
		CategoryID:   d.CategoryID,
		Total:        d.Total,
		Count:        d.InstallmentCount,
		FirstDue:     d.FirstDueDate,
	}
}

// Generate splits req.Total into req.Count monthly periods. Every period gets
// Total/Count cents and the last one also takes the remainder. Period i is due
// FirstDue plus i-1 months, counted from FirstDue itself so a clamped short
// month does not drag later dates back.
func Generate(req GenerateRequest) ([]PeriodDraft, error) {
	if !req.Kind.Valid() {
		return nil, &core.ValidationError{Field: "kind", Reason: "must be payable or receivable"}
	}
	if req.Count < 1 {
		return nil, &core.ValidationError{Field: "installments", Reason: "must be at least 1"}
	}
	if req.Count > core.MaxInstallments {
		return nil, &core.ValidationError{Field: "installments", Reason: fmt.Sprintf("must be at most %d", core.MaxInstallments)}
	}
	if req.Total.Cents < 0 {
		return nil, &core.ValidationError{Field: "total", Reason: "must not be negative"}
	}
	if req.FirstDue.IsZero() {
		return nil, &core.ValidationError{Field: "first_due_date", Reason: "cannot be zero"}
	}

	shares, err := req.Total.Split(req.Count)
	if err != nil {
		return nil, err
	}

	periods := make([]PeriodDraft, 0, req.Count)
	for i := 1; i <= req.Count; i++ {
		due := req.FirstDue.AddMonths(i - 1)
		share := shares[i-1]
		periods = append(periods, PeriodDraft{
			Sequence: i,
			Entry: core.LedgerEntryDraft{
				OwnerID:     req.OwnerID,
				Type:        req.Kind.EntryType(),
				Description: PeriodLabel(req.Description, req.Counterparty, i, req.Count),
				Value:       share,
				Date:        due,
				CategoryID:  req.CategoryID,
				Status:      core.LedgerPending,
			},
			Installment: core.InstallmentDraft{
				Sequence: i,
				DueDate:  due,
				Share:    share,
				Status:   core.InstallmentPending,
			},
		})
	}
	return periods, nil
}

// PeriodLabel is the ledger description of period i of n.
func PeriodLabel(description, counterparty string, i, n int) string {
	return fmt.Sprintf("%s - %s (%d/%d)", strings.TrimSpace(description), strings.TrimSpace(counterparty), i, n)
}
