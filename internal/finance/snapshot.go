package finance

// Debt is a single liability: outstanding principal plus the monthly
// installment currently servicing it.
type Debt struct {
	Principal   float64
	Installment float64
}

// Snapshot is the raw financial state of one user at a point in time.
// It is assembled fresh for every advisory request; callers must not
// reuse a Snapshot across requests.
type Snapshot struct {
	MonthlyNetIncome float64
	Expenses         []float64
	Debts            []Debt
	GoalCount        int
	RiskTolerance    string
}

// Context is the derived summary handed to advisory providers. All fields
// are plain aggregates; nothing here can fail to compute.
type Context struct {
	MonthlyNetIncome  float64
	TotalExpenses     float64
	TotalInstallments float64
	TotalPrincipal    float64
	Surplus           float64
	DTI               float64
	GoalCount         int
	RiskTolerance     string
}

// BuildContext reduces a Snapshot to its Context. Empty expense or debt
// lists produce zero totals. Surplus may be negative; DTI is zero whenever
// income is zero or negative.
func BuildContext(s Snapshot) Context {
	var expenses float64
	for _, amount := range s.Expenses {
		expenses += amount
	}

	var installments, principal float64
	for _, d := range s.Debts {
		installments += d.Installment
		principal += d.Principal
	}

	return Context{
		MonthlyNetIncome:  s.MonthlyNetIncome,
		TotalExpenses:     expenses,
		TotalInstallments: installments,
		TotalPrincipal:    principal,
		Surplus:           s.MonthlyNetIncome - expenses - installments,
		DTI:               DTI(installments, s.MonthlyNetIncome),
		GoalCount:         s.GoalCount,
		RiskTolerance:     s.RiskTolerance,
	}
}
