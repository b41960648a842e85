package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"planledger/internal/core"
)

func TestWriteError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	missing := core.NewNotFound("ledger entry", "e1")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		check      func(t *testing.T, body errorResponse)
	}{
		{
			name:       "validation",
			err:        &core.ValidationError{Field: "installments", Reason: "must be at least 1"},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body errorResponse) {
				if body.Field != "installments" {
					t.Errorf("field = %q", body.Field)
				}
			},
		},
		{
			name:       "not found",
			err:        fmt.Errorf("load plan: %w", core.NewNotFound("plan", "p1")),
			wantStatus: http.StatusNotFound,
		},
		{
			name: "partial write caused by a missing entry",
			err: &core.PartialWriteFailure{
				InstallmentID:      "i1",
				EntryID:            "e1",
				InstallmentWritten: true,
				Err:                missing,
			},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body errorResponse) {
				if body.InstallmentWritten == nil || !*body.InstallmentWritten {
					t.Errorf("installment_written = %v, want true", body.InstallmentWritten)
				}
				if body.LedgerWritten == nil || *body.LedgerWritten {
					t.Errorf("ledger_written = %v, want false", body.LedgerWritten)
				}
			},
		},
		{
			name:       "partial generation caused by a missing plan",
			err:        &core.PartialGenerationFailure{PlanID: "p1", Persisted: 2, Total: 3, Err: missing},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body errorResponse) {
				if body.PlanID != "p1" || body.Persisted == nil || *body.Persisted != 2 {
					t.Errorf("body = %+v", body)
				}
			},
		},
		{
			name:       "cascade delete caused by a missing entry",
			err:        &core.CascadeDeleteFailure{PlanID: "p1", Remaining: []string{"e2"}, Err: missing},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body errorResponse) {
				if len(body.RemainingEntries) != 1 || body.RemainingEntries[0] != "e2" {
					t.Errorf("remaining = %v", body.RemainingEntries)
				}
			},
		},
		{
			name:       "unexpected",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body errorResponse) {
				if body.Error != "internal error" {
					t.Errorf("error = %q, want it hidden", body.Error)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			writeError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.check != nil {
				tt.check(t, decode[errorResponse](t, w))
			}
		})
	}
}
