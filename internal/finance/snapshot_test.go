package finance

import "testing"

func TestBuildContext(t *testing.T) {
	s := Snapshot{
		MonthlyNetIncome: 80000,
		Expenses:         []float64{12000, 8000, 5000},
		Debts: []Debt{
			{Principal: 400000, Installment: 9000},
			{Principal: 150000, Installment: 4000},
		},
		GoalCount:     2,
		RiskTolerance: "moderate",
	}

	fc := BuildContext(s)

	approxEqual(t, fc.TotalExpenses, 25000, 1e-9, "TotalExpenses")
	approxEqual(t, fc.TotalInstallments, 13000, 1e-9, "TotalInstallments")
	approxEqual(t, fc.TotalPrincipal, 550000, 1e-9, "TotalPrincipal")
	approxEqual(t, fc.Surplus, 42000, 1e-9, "Surplus")
	approxEqual(t, fc.DTI, 0.1625, 1e-9, "DTI")
	if fc.GoalCount != 2 {
		t.Errorf("GoalCount = %d, want 2", fc.GoalCount)
	}
	if fc.RiskTolerance != "moderate" {
		t.Errorf("RiskTolerance = %q, want moderate", fc.RiskTolerance)
	}
}

func TestBuildContext_EmptySnapshot(t *testing.T) {
	fc := BuildContext(Snapshot{})

	if fc.TotalExpenses != 0 || fc.TotalInstallments != 0 || fc.TotalPrincipal != 0 {
		t.Errorf("empty snapshot produced non-zero totals: %+v", fc)
	}
	if fc.Surplus != 0 {
		t.Errorf("Surplus = %f, want 0", fc.Surplus)
	}
	if fc.DTI != 0 {
		t.Errorf("DTI = %f, want 0", fc.DTI)
	}
}

func TestBuildContext_ZeroIncomeDTI(t *testing.T) {
	// Debt with no income must not divide by zero.
	s := Snapshot{
		Expenses: []float64{5000},
		Debts:    []Debt{{Principal: 100000, Installment: 3000}},
	}

	fc := BuildContext(s)
	if fc.DTI != 0 {
		t.Errorf("DTI with zero income = %f, want 0", fc.DTI)
	}
	approxEqual(t, fc.Surplus, -8000, 1e-9, "Surplus")
}

func TestBuildContext_NegativeSurplus(t *testing.T) {
	s := Snapshot{
		MonthlyNetIncome: 30000,
		Expenses:         []float64{25000},
		Debts:            []Debt{{Principal: 200000, Installment: 10000}},
	}

	fc := BuildContext(s)
	approxEqual(t, fc.Surplus, -5000, 1e-9, "Surplus")
}
