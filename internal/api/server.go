package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peakfin/peakfin/internal/advisor"
	"github.com/peakfin/peakfin/internal/audit"
	"github.com/peakfin/peakfin/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds everything the HTTP surface needs. All fields are fixed at
// startup; handlers never reach into global configuration.
type Deps struct {
	Store    *storage.Store
	Mediator *advisor.Mediator

	MaxDTI     float64 // debt-to-income guardrail for loan pre-assessment
	FunRatio   float64 // share of income suggested as discretionary budget
	DefaultCPI float64 // CPI assumed when a forecast request names none

	BcryptCost int
	SessionTTL time.Duration

	AskPerMinute int // advisory requests allowed per user per minute
	MaxImportMB  int // decoded statement upload cap
}

// NewHandler returns the peakfin REST API. Health, metrics, and the auth
// endpoints are public; everything else sits behind session auth.
func NewHandler(deps Deps) http.Handler {
	limiter := newUserLimiter(deps.AskPerMinute)

	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/v1/auth/register", handleRegister(deps))
	r.Post("/v1/auth/login", handleLogin(deps))

	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(deps.Store))

		r.Post("/v1/advisor/ask", handleAsk(deps, limiter))
		r.Get("/v1/dashboard", handleDashboard(deps))

		r.Post("/v1/calc/loan-pre-assessment", handleLoanPreAssessment(deps))
		r.Post("/v1/calc/loan-payoff-plan", handleLoanPayoffPlan(deps))
		r.Post("/v1/calc/inflation-forecast", handleInflationForecast(deps))

		r.Post("/v1/data/expenses", handleCreateExpense(deps))
		r.Get("/v1/data/expenses", handleListExpenses(deps))
		r.Post("/v1/data/debts", handleCreateDebt(deps))
		r.Get("/v1/data/debts", handleListDebts(deps))
		r.Post("/v1/data/goals", handleCreateGoal(deps))
		r.Get("/v1/data/goals", handleListGoals(deps))

		r.Post("/v1/import/statement", handleImportStatement(deps))
		r.Get("/v1/audit", handleListAudit(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleListAudit(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, 200)

		records, err := deps.Store.ListAudit(userID(r), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list audit records: %v", err)
			return
		}

		if records == nil {
			records = []audit.Record{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
