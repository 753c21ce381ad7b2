package finance

import (
	"errors"
	"math"
)

// maxPayoffMonths bounds payoff simulations (100 years).
const maxPayoffMonths = 1200

// DTI returns the debt-to-income ratio as a decimal (0.35 for 35%).
// Non-positive income yields 0 rather than a division error.
func DTI(monthlyDebt, monthlyIncome float64) float64 {
	if monthlyIncome <= 0 {
		return 0
	}
	return monthlyDebt / monthlyIncome
}

// EMI returns the equated monthly installment for a loan:
// P * r * (1+r)^n / ((1+r)^n - 1), with r the monthly rate and n the term.
// A zero rate degenerates to straight division. Invalid input yields 0.
func EMI(principal, annualRatePct float64, termMonths int) float64 {
	if principal <= 0 || termMonths < 1 {
		return 0
	}
	if annualRatePct == 0 {
		return principal / float64(termMonths)
	}

	monthlyRate := annualRatePct / 100 / 12
	growth := math.Pow(1+monthlyRate, float64(termMonths))
	denominator := growth - 1
	if denominator == 0 {
		return 0
	}
	return principal * monthlyRate * growth / denominator
}

// PrincipalFromEMI inverts EMI: the largest principal a given monthly
// payment can service over the term at the given rate.
func PrincipalFromEMI(emi, annualRatePct float64, termMonths int) float64 {
	if emi <= 0 || termMonths < 1 {
		return 0
	}
	if annualRatePct == 0 {
		return emi * float64(termMonths)
	}

	monthlyRate := annualRatePct / 100 / 12
	growth := math.Pow(1+monthlyRate, float64(termMonths))
	denominator := monthlyRate * growth
	if denominator == 0 {
		return 0
	}
	return emi * (growth - 1) / denominator
}

// RequiredEMIToFinish returns the monthly payment that clears the remaining
// principal within monthsRemaining.
func RequiredEMIToFinish(principal, annualRatePct float64, monthsRemaining int) float64 {
	return EMI(principal, annualRatePct, monthsRemaining)
}

// InflationProjection compounds a present cost forward:
// future = present * (1 + cpi)^years.
func InflationProjection(currentCost, annualCPIPct float64, years int) (float64, error) {
	if currentCost < 0 || years < 0 {
		return 0, errors.New("cost and years must be non-negative")
	}
	rate := annualCPIPct / 100
	return currentCost * math.Pow(1+rate, float64(years)), nil
}

// SafeToSpend returns the discretionary amount left after bills, debt
// minimums, reserve, and goal allocations, clamped at zero.
func SafeToSpend(balance, upcomingBills, debtMinimums, reserve, goalAllocations float64) float64 {
	safe := balance - upcomingBills - debtMinimums - reserve - goalAllocations
	return math.Max(0, safe)
}

// FunBudget returns the recommended discretionary budget for the month.
// The ratio must lie in [0, 1] and income must not be negative.
func FunBudget(monthlyIncome, funRatio float64) (float64, error) {
	if monthlyIncome < 0 {
		return 0, errors.New("income cannot be negative")
	}
	if funRatio < 0 || funRatio > 1 {
		return 0, errors.New("fun ratio must be between 0 and 1")
	}
	return monthlyIncome * funRatio, nil
}

// SimulatePayoff walks a loan balance month by month under a fixed payment
// and returns the months to zero plus the total interest paid. The walk
// halts when the payment no longer covers accrued interest, and is capped
// at maxPayoffMonths.
func SimulatePayoff(principal, annualRatePct, monthlyPayment float64) (months int, totalInterest float64) {
	if monthlyPayment <= 0 || principal <= 0 {
		return 0, 0
	}

	monthlyRate := annualRatePct / 100 / 12
	balance := principal

	for balance > 0 && months < maxPayoffMonths {
		var interest float64
		if monthlyRate > 0 {
			interest = balance * monthlyRate
		}
		towardPrincipal := monthlyPayment - interest
		if towardPrincipal <= 0 {
			break
		}

		balance -= towardPrincipal
		if balance < 1e-6 {
			balance = 0
		}

		totalInterest += interest
		months++
	}

	return months, totalInterest
}
