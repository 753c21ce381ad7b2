package api

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/peakfin/peakfin/internal/compliance"
	"github.com/peakfin/peakfin/internal/finance"
	"github.com/peakfin/peakfin/internal/storage"
)

type DashboardSummary struct {
	TotalIncome         float64         `json:"total_income"`
	TotalExpenses       float64         `json:"total_expenses"`
	Surplus             float64         `json:"surplus"`
	DTI                 float64         `json:"dti"`
	SafeToSpend         float64         `json:"safe_to_spend"`
	FunBudget           float64         `json:"fun_budget"`
	GoalProgressPct     float64         `json:"goal_progress_pct"`
	DebtPayoffETAMonths *int            `json:"debt_payoff_eta_months"`
	Meta                compliance.Meta `json:"meta"`
}

func handleDashboard(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := buildDashboard(deps.Store, userID(r), deps.FunRatio)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to build dashboard: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summary)
	}
}

// buildDashboard assembles the key-metrics summary for one user. Shared by
// the HTTP handler and the MCP dashboard resource.
func buildDashboard(store *storage.Store, uid string, funRatio float64) (DashboardSummary, error) {
	snap, err := store.Snapshot(uid)
	if err != nil {
		return DashboardSummary{}, err
	}
	goals, err := store.ListGoals(uid)
	if err != nil {
		return DashboardSummary{}, err
	}

	fc := finance.BuildContext(snap)

	// Safe to spend is the surplus minus a 20% goal allocation, taken only
	// when the surplus is positive.
	var goalAllocation float64
	if fc.Surplus > 0 {
		goalAllocation = fc.Surplus * 0.2
	}
	safeSpend := math.Max(0, fc.Surplus-goalAllocation)

	funBudget, err := finance.FunBudget(fc.MonthlyNetIncome, funRatio)
	if err != nil {
		return DashboardSummary{}, err
	}

	var goalTarget, goalSaved float64
	for _, g := range goals {
		goalTarget += g.TargetAmount
		goalSaved += g.SavedAmount
	}
	var goalProgress float64
	if goalTarget > 0 {
		goalProgress = goalSaved / goalTarget * 100
	}

	var debtETA *int
	if fc.TotalInstallments > 0 {
		months := int(fc.TotalPrincipal / fc.TotalInstallments)
		debtETA = &months
	}

	return DashboardSummary{
		TotalIncome:         round2(fc.MonthlyNetIncome),
		TotalExpenses:       round2(fc.TotalExpenses),
		Surplus:             round2(fc.Surplus),
		DTI:                 round4(fc.DTI),
		SafeToSpend:         round2(safeSpend),
		FunBudget:           round2(funBudget),
		GoalProgressPct:     round2(goalProgress),
		DebtPayoffETAMonths: debtETA,
		Meta:                compliance.CalcMeta(),
	}, nil
}
