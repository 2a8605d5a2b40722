package core

// PlanSummary is the compact financial view of a single payment plan.
type PlanSummary struct {
	TotalFee    Money
	TotalPaid   Money
	PercentPaid float64 // fraction in [0,1], 0 when TotalFee is zero
}

// ComputeSummary folds a plan into its summary. TotalFee counts every
// installment regardless of status; TotalPaid counts only paid ones.
func ComputeSummary(installments []Installment) PlanSummary {
	var sum PlanSummary
	for _, inst := range installments {
		sum.TotalFee = sum.TotalFee.Add(inst.Amount)
		if inst.Status == StatusPaid {
			sum.TotalPaid = sum.TotalPaid.Add(inst.Amount)
		}
	}
	if sum.TotalFee.Cents > 0 {
		sum.PercentPaid = float64(sum.TotalPaid.Cents) / float64(sum.TotalFee.Cents)
	}
	return sum
}
