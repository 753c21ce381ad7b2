package api

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/peakfin/peakfin/internal/compliance"
	"github.com/peakfin/peakfin/internal/finance"
)

type LoanPreAssessmentRequest struct {
	Income              float64 `json:"income"`
	ExistingMonthlyDebt float64 `json:"existing_monthly_debt"`
	AnnualRatePct       float64 `json:"annual_rate_pct"`
	TermMonths          int     `json:"term_months"`
}

type StressTestResult struct {
	Scenario     string  `json:"scenario"`
	NewEMI       float64 `json:"new_emi"`
	DTI          float64 `json:"dti"`
	IsAffordable bool    `json:"is_affordable"`
}

type LoanPreAssessmentResponse struct {
	DTI                float64            `json:"dti"`
	AffordableEMI      float64            `json:"affordable_emi"`
	EstimatedPrincipal float64            `json:"estimated_principal"`
	StressTests        []StressTestResult `json:"stress_tests"`
	Meta               compliance.Meta    `json:"meta"`
}

// handleLoanPreAssessment estimates how much additional loan a user can
// afford under the configured DTI guardrail, with stress scenarios for a
// rate rise and an income drop.
func handleLoanPreAssessment(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req LoanPreAssessmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Income <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "income must be positive")
			return
		}
		if req.ExistingMonthlyDebt < 0 || req.AnnualRatePct < 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "existing_monthly_debt and annual_rate_pct must not be negative")
			return
		}
		if req.TermMonths < 1 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "term_months must be at least 1")
			return
		}

		baseDTI := finance.DTI(req.ExistingMonthlyDebt, req.Income)

		// Maximum total debt servicing allowed under the guardrail.
		maxDebtCapacity := req.Income * deps.MaxDTI
		affordableEMI := math.Max(0, maxDebtCapacity-req.ExistingMonthlyDebt)
		estimatedPrincipal := finance.PrincipalFromEMI(affordableEMI, req.AnnualRatePct, req.TermMonths)

		stressEMI := finance.EMI(estimatedPrincipal, req.AnnualRatePct+2, req.TermMonths)
		stressDTIRate := finance.DTI(req.ExistingMonthlyDebt+stressEMI, req.Income)
		stressDTIIncome := finance.DTI(req.ExistingMonthlyDebt+affordableEMI, req.Income*0.9)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(LoanPreAssessmentResponse{
			DTI:                round4(baseDTI),
			AffordableEMI:      round2(affordableEMI),
			EstimatedPrincipal: round2(estimatedPrincipal),
			StressTests: []StressTestResult{
				{
					Scenario:     "Interest rate +2%",
					NewEMI:       round2(stressEMI),
					DTI:          round4(stressDTIRate),
					IsAffordable: stressDTIRate <= deps.MaxDTI,
				},
				{
					Scenario:     "Income -10%",
					NewEMI:       round2(affordableEMI),
					DTI:          round4(stressDTIIncome),
					IsAffordable: stressDTIIncome <= deps.MaxDTI,
				},
			},
			Meta: compliance.LoanMeta(),
		})
	}
}

type LoanPayoffPlanRequest struct {
	Principal     float64 `json:"principal"`
	AnnualRatePct float64 `json:"annual_rate_pct"`
	TermMonths    int     `json:"term_months"`
	ExtraPayment  float64 `json:"extra_payment"`
}

type LoanPayoffPlanResponse struct {
	MonthlyEMI    float64         `json:"monthly_emi"`
	TotalInterest float64         `json:"total_interest"`
	TotalPaid     float64         `json:"total_paid"`
	MonthsSaved   int             `json:"months_saved"`
	InterestSaved float64         `json:"interest_saved"`
	Meta          compliance.Meta `json:"meta"`
}

// handleLoanPayoffPlan computes the EMI for a loan and the months and
// interest saved when a fixed extra payment is added every month.
func handleLoanPayoffPlan(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req LoanPayoffPlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Principal <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "principal must be positive")
			return
		}
		if req.AnnualRatePct < 0 || req.ExtraPayment < 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "annual_rate_pct and extra_payment must not be negative")
			return
		}
		if req.TermMonths < 1 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "term_months must be at least 1")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payoffPlan(req.Principal, req.AnnualRatePct, req.TermMonths, req.ExtraPayment))
	}
}

// payoffPlan computes the payoff response body. Shared by the HTTP handler
// and the MCP tool; inputs are already validated.
func payoffPlan(principal, annualRatePct float64, termMonths int, extraPayment float64) LoanPayoffPlanResponse {
	baseEMI := finance.EMI(principal, annualRatePct, termMonths)
	totalPaid := baseEMI * float64(termMonths)
	totalInterest := totalPaid - principal

	var monthsSaved int
	var interestSaved float64
	if extraPayment > 0 {
		accelMonths, accelInterest := finance.SimulatePayoff(principal, annualRatePct, baseEMI+extraPayment)
		if accelMonths > 0 && accelMonths < termMonths {
			monthsSaved = termMonths - accelMonths
			interestSaved = math.Max(0, totalInterest-accelInterest)
		}
	}

	return LoanPayoffPlanResponse{
		MonthlyEMI:    round2(baseEMI),
		TotalInterest: round2(totalInterest),
		TotalPaid:     round2(totalPaid),
		MonthsSaved:   monthsSaved,
		InterestSaved: round2(interestSaved),
		Meta:          compliance.CalcMeta(),
	}
}

type InflationForecastRequest struct {
	CurrentPrice  float64  `json:"current_price"`
	AnnualCPIRate *float64 `json:"annual_cpi_rate"` // nil selects the configured default
	Years         int      `json:"years"`
}

type InflationProjection struct {
	Year           int     `json:"year"`
	EstimatedPrice float64 `json:"estimated_price"`
}

type InflationForecastResponse struct {
	Projections []InflationProjection `json:"projections"`
	Meta        compliance.Meta       `json:"meta"`
}

// handleInflationForecast projects the future price of an expense for each
// year of the horizon under a compounding CPI assumption.
func handleInflationForecast(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req InflationForecastRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Years < 1 || req.Years > 50 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "years must be between 1 and 50")
			return
		}

		cpi := deps.DefaultCPI
		if req.AnnualCPIRate != nil {
			cpi = *req.AnnualCPIRate
		}

		resp, err := inflationForecast(req.CurrentPrice, cpi, req.Years)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// inflationForecast builds the per-year projection response. Shared by the
// HTTP handler and the MCP tool.
func inflationForecast(currentPrice, cpi float64, years int) (InflationForecastResponse, error) {
	projections := make([]InflationProjection, 0, years)
	for year := 1; year <= years; year++ {
		price, err := finance.InflationProjection(currentPrice, cpi, year)
		if err != nil {
			return InflationForecastResponse{}, err
		}
		projections = append(projections, InflationProjection{
			Year:           year,
			EstimatedPrice: round2(price),
		})
	}

	return InflationForecastResponse{
		Projections: projections,
		Meta:        compliance.ProjectionMeta(),
	}, nil
}

// round2 and round4 fix response precision for money and ratio fields.
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
