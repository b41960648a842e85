package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound matches every NotFoundError through errors.Is.
var ErrNotFound = errors.New("not found")

// ValidationError rejects malformed input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing plan, installment or ledger entry.
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PartialWriteFailure reports a status dual write where one half landed.
type PartialWriteFailure struct {
	InstallmentID      string
	EntryID            string
	InstallmentWritten bool
	LedgerWritten      bool
	Err                error
}

func (e *PartialWriteFailure) Error() string {
	return fmt.Sprintf("partial status write for installment %s (installment written=%t, ledger entry %s written=%t): %v",
		e.InstallmentID, e.InstallmentWritten, e.EntryID, e.LedgerWritten, e.Err)
}

func (e *PartialWriteFailure) Unwrap() error { return e.Err }

// PartialGenerationFailure reports a plan whose periods were only partly
// persisted. OrphanEntryID is set when the ledger entry of the failing period
// was written but its installment was not.
type PartialGenerationFailure struct {
	PlanID        string
	Persisted     int
	Total         int
	OrphanEntryID string
	Err           error
}

func (e *PartialGenerationFailure) Error() string {
	msg := fmt.Sprintf("plan %s generated %d of %d installments", e.PlanID, e.Persisted, e.Total)
	if e.OrphanEntryID != "" {
		msg += fmt.Sprintf(" (orphan ledger entry %s)", e.OrphanEntryID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PartialGenerationFailure) Unwrap() error { return e.Err }

// CascadeDeleteFailure reports a plan deletion aborted before the plan row
// was removed. Remaining lists the ledger entries still present.
type CascadeDeleteFailure struct {
	PlanID    string
	Remaining []string
	Err       error
}

func (e *CascadeDeleteFailure) Error() string {
	return fmt.Sprintf("delete plan %s aborted, %d ledger entries remain [%s]: %v",
		e.PlanID, len(e.Remaining), strings.Join(e.Remaining, ", "), e.Err)
}

func (e *CascadeDeleteFailure) Unwrap() error { return e.Err }
