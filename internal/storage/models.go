package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User is a registered account. The password hash never serializes.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	FullName         string    `json:"full_name"`
	MonthlyNetIncome float64   `json:"monthly_net_income"`
	RiskTolerance    string    `json:"risk_tolerance"`
	CreatedAt        time.Time `json:"created_at"`
}

// Session is an issued bearer token. Expiry is enforced by the auth
// middleware, not by the store.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expense is one recurring monthly outflow.
type Expense struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DebtAccount is one liability with its servicing installment.
type DebtAccount struct {
	ID            string    `json:"id"`
	UserID        string    `json:"-"`
	Lender        string    `json:"lender"`
	Principal     float64   `json:"principal"`
	AnnualRatePct float64   `json:"annual_rate_pct"`
	CurrentEMI    float64   `json:"current_emi"`
	TermMonths    int       `json:"term_months"`
	CreatedAt     time.Time `json:"created_at"`
}

// Goal is a savings target. Lower priority values list first.
type Goal struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	Name         string    `json:"name"`
	TargetAmount float64   `json:"target_amount"`
	SavedAmount  float64   `json:"saved_amount"`
	Priority     int       `json:"priority"`
	CreatedAt    time.Time `json:"created_at"`
}

// Transaction is one imported bank-statement row. Date stays the string
// the statement carried; statements disagree on formats and the value is
// display-only.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}
