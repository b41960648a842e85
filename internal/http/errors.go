package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"planledger/internal/core"
	"planledger/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`

	// Partial status write.
	InstallmentWritten *bool `json:"installment_written,omitempty"`
	LedgerWritten      *bool `json:"ledger_written,omitempty"`

	// Partial generation.
	PlanID        string `json:"plan_id,omitempty"`
	Persisted     *int   `json:"persisted,omitempty"`
	Total         *int   `json:"total,omitempty"`
	OrphanEntryID string `json:"orphan_entry_id,omitempty"`

	// Aborted cascade delete.
	RemainingEntries []string `json:"remaining_entries,omitempty"`
}

// writeError maps engine errors onto status codes. Partial failures carry
// enough detail for a client to see which half of the work landed.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		validation *core.ValidationError
		partial    *core.PartialWriteFailure
		generation *core.PartialGenerationFailure
		cascade    *core.CascadeDeleteFailure
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Type: log.ErrorTypeValidation, Field: validation.Field})
	case errors.As(err, &partial):
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:              err.Error(),
			Type:               log.ErrorTypePartial,
			InstallmentWritten: &partial.InstallmentWritten,
			LedgerWritten:      &partial.LedgerWritten,
		})
	case errors.As(err, &generation):
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:         err.Error(),
			Type:          log.ErrorTypePartial,
			PlanID:        generation.PlanID,
			Persisted:     &generation.Persisted,
			Total:         &generation.Total,
			OrphanEntryID: generation.OrphanEntryID,
		})
	case errors.As(err, &cascade):
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:            err.Error(),
			Type:             log.ErrorTypePartial,
			PlanID:           cascade.PlanID,
			RemainingEntries: cascade.Remaining,
		})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error(), Type: log.ErrorTypeNotFound})
	default:
		log.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "Request failed", log.FieldError, err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error", Type: log.ErrorTypeInternal})
	}
}

func badRequest(c *gin.Context, field, reason string) {
	writeError(c, &core.ValidationError{Field: field, Reason: reason})
}
