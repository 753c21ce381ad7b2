package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/peakfin/peakfin/internal/storage"
)

type ExpenseCreateRequest struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Note     string  `json:"note"`
}

type DebtCreateRequest struct {
	Lender        string  `json:"lender"`
	Principal     float64 `json:"principal"`
	AnnualRatePct float64 `json:"annual_rate_pct"`
	CurrentEMI    float64 `json:"current_emi"`
	TermMonths    int     `json:"term_months"`
}

type GoalCreateRequest struct {
	Name         string  `json:"name"`
	TargetAmount float64 `json:"target_amount"`
	SavedAmount  float64 `json:"saved_amount"`
	Priority     int     `json:"priority"`
}

// --- Expenses ---

func handleCreateExpense(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ExpenseCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Amount <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "amount must be positive")
			return
		}
		if req.Category == "" {
			req.Category = "Uncategorized"
		}

		expense := storage.Expense{
			ID:        uuid.New().String(),
			UserID:    userID(r),
			Category:  req.Category,
			Amount:    req.Amount,
			Note:      req.Note,
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.AddExpense(expense); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save expense: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(expense)
	}
}

func handleListExpenses(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		expenses, err := deps.Store.ListExpenses(userID(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list expenses: %v", err)
			return
		}

		if expenses == nil {
			expenses = []storage.Expense{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expenses)
	}
}

// --- Debts ---

func handleCreateDebt(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req DebtCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Lender == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "lender is required")
			return
		}
		if req.Principal <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "principal must be positive")
			return
		}
		if req.AnnualRatePct < 0 || req.CurrentEMI < 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "annual_rate_pct and current_emi must not be negative")
			return
		}

		debt := storage.DebtAccount{
			ID:            uuid.New().String(),
			UserID:        userID(r),
			Lender:        req.Lender,
			Principal:     req.Principal,
			AnnualRatePct: req.AnnualRatePct,
			CurrentEMI:    req.CurrentEMI,
			TermMonths:    req.TermMonths,
			CreatedAt:     time.Now().UTC(),
		}
		if err := deps.Store.AddDebt(debt); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save debt: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(debt)
	}
}

func handleListDebts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		debts, err := deps.Store.ListDebts(userID(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list debts: %v", err)
			return
		}

		if debts == nil {
			debts = []storage.DebtAccount{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(debts)
	}
}

// --- Goals ---

func handleCreateGoal(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req GoalCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}
		if req.TargetAmount <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "target_amount must be positive")
			return
		}
		if req.SavedAmount < 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "saved_amount must not be negative")
			return
		}
		if req.Priority < 1 {
			req.Priority = 1
		}

		goal := storage.Goal{
			ID:           uuid.New().String(),
			UserID:       userID(r),
			Name:         req.Name,
			TargetAmount: req.TargetAmount,
			SavedAmount:  req.SavedAmount,
			Priority:     req.Priority,
			CreatedAt:    time.Now().UTC(),
		}
		if err := deps.Store.AddGoal(goal); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save goal: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(goal)
	}
}

func handleListGoals(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		goals, err := deps.Store.ListGoals(userID(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list goals: %v", err)
			return
		}

		if goals == nil {
			goals = []storage.Goal{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(goals)
	}
}
