package core

// PlanAggregate is the derived part of a plan row. It carries no timestamps so
// two recomputations over the same ledger state compare equal.
type PlanAggregate struct {
	PlanID           string
	Total            Money
	Paid             Money
	Remaining        Money
	InstallmentCount int
	PaidCount        int
	Status           PlanStatus
}

// Apply copies the aggregate fields onto p.
func (a PlanAggregate) Apply(p *Plan) {
	p.Total = a.Total
	p.Paid = a.Paid
	p.Remaining = a.Remaining
	p.InstallmentCount = a.InstallmentCount
	p.PaidCount = a.PaidCount
	p.Status = a.Status
}
