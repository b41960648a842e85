package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"planledger/internal/core"
	"planledger/internal/log"
	"planledger/internal/services"
)

type createPlanRequest struct {
	Kind         string          `json:"kind"`
	Description  string          `json:"description"`
	Counterparty string          `json:"counterparty"`
	CategoryID   string          `json:"category_id"`
	Total        decimal.Decimal `json:"total"`
	Installments int             `json:"installments"`
	FirstDueDate string          `json:"first_due_date"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleCreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "malformed JSON")
		return
	}
	total, err := core.MoneyFromDecimal(req.Total)
	if err != nil {
		badRequest(c, "total", "must be a non-negative amount")
		return
	}
	first, err := core.ParseDate(req.FirstDueDate)
	if err != nil {
		badRequest(c, "first_due_date", "expected YYYY-MM-DD")
		return
	}

	plan, err := s.engine.CreatePlan(c.Request.Context(), core.PlanDraft{
		OwnerID:          ownerOf(c),
		Kind:             core.PlanKind(strings.ToLower(req.Kind)),
		Description:      strings.TrimSpace(req.Description),
		Counterparty:     strings.TrimSpace(req.Counterparty),
		CategoryID:       req.CategoryID,
		Total:            total,
		InstallmentCount: req.Installments,
		FirstDueDate:     first,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPlanResponse(plan))
}

func (s *Server) handleListPlans(c *gin.Context) {
	kind := core.PlanKind(c.DefaultQuery("kind", string(core.Payable)))
	plans, err := s.engine.ListPlans(c.Request.Context(), ownerOf(c), kind)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

// ownedPlan reads through the plan cache, then checks the owner.
func (s *Server) ownedPlan(c *gin.Context) (core.Plan, bool) {
	id := c.Param("id")
	plan, err := s.plans.Plan(c.Request.Context(), id, s.engine.GetPlan)
	if err == nil && plan.OwnerID != ownerOf(c) {
		err = core.NewNotFound("plan", id)
	}
	if err != nil {
		writeError(c, err)
		return core.Plan{}, false
	}
	return plan, true
}

func (s *Server) handleGetPlan(c *gin.Context) {
	plan, ok := s.ownedPlan(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toPlanResponse(plan))
}

func (s *Server) handleListInstallments(c *gin.Context) {
	plan, ok := s.ownedPlan(c)
	if !ok {
		return
	}
	rows, err := s.plans.Installments(c.Request.Context(), plan.ID, s.engine.ListInstallments)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]installmentResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toInstallmentResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleRefreshPlan(c *gin.Context) {
	ctx := c.Request.Context()
	plan, err := s.engine.OwnedPlan(ctx, ownerOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	agg, err := s.engine.Refresh(ctx, plan.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAggregateResponse(agg))
}

func (s *Server) handleDeletePlan(c *gin.Context) {
	ctx := c.Request.Context()
	plan, err := s.engine.OwnedPlan(ctx, ownerOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.engine.DeletePlan(ctx, plan.ID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetInstallmentStatus(c *gin.Context) {
	ctx := c.Request.Context()
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "malformed JSON")
		return
	}
	inst, err := s.engine.OwnedInstallment(ctx, ownerOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := s.engine.SetInstallmentStatus(ctx, inst.ID, core.InstallmentStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSyncResponse(res))
}

func (s *Server) handleDeleteInstallment(c *gin.Context) {
	ctx := c.Request.Context()
	recompute := true
	if raw := c.Query("recompute"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "recompute", "must be true or false")
			return
		}
		recompute = v
	}
	inst, err := s.engine.OwnedInstallment(ctx, ownerOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := s.engine.DeleteInstallment(ctx, inst.ID, recompute)
	if err != nil {
		writeError(c, err)
		return
	}
	if res.Aggregate == nil && !res.Enqueued {
		log.FromContext(ctx).WarnContext(ctx, "Plan left stale after installment delete", log.FieldPlanID, res.PlanID)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetEntryStatus(c *gin.Context) {
	ctx := c.Request.Context()
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "malformed JSON")
		return
	}
	entry, err := s.engine.OwnedEntry(ctx, ownerOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := s.engine.SetEntryStatus(ctx, entry.ID, core.LedgerStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSyncResponse(res))
}

// handleDrain runs the shared pending queue, whoever owns the plans in it.
// The response only names the caller's own plans.
func (s *Server) handleDrain(c *gin.Context) {
	ctx := c.Request.Context()
	report, err := s.engine.Drain(ctx)
	report = s.ownReport(c, report)
	if err != nil {
		log.FromContext(ctx).LogErr(ctx, "Drain finished with errors", err, log.FieldOperation, log.OpDrain)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "drain finished with errors", "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ownReport filters the plan ids of report down to plans the caller owns.
// Drained stays the queue-wide count. Dropped plans no longer have an owner
// and are left out.
func (s *Server) ownReport(c *gin.Context, report services.DrainReport) services.DrainReport {
	ctx := context.WithoutCancel(c.Request.Context())
	owner := ownerOf(c)
	keep := func(ids []string) []string {
		out := []string{}
		for _, id := range ids {
			if _, err := s.engine.OwnedPlan(ctx, owner, id); err == nil {
				out = append(out, id)
			}
		}
		return out
	}
	return services.DrainReport{
		Drained:    report.Drained,
		Recomputed: keep(report.Recomputed),
		Dropped:    []string{},
		Failed:     keep(report.Failed),
	}
}
