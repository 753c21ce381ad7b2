package provider

import (
	"fmt"
	"strings"

	"github.com/peakfin/peakfin/internal/finance"
)

// buildInstruction renders the fixed system prompt for the remote backend.
// The regulated-topic prohibition stays in the prompt even though the
// compliance gate has already passed the request: the backend must refuse
// regulated sub-topics a user smuggles into an otherwise allowed question.
func buildInstruction(fc finance.Context) string {
	var sb strings.Builder

	sb.WriteString("You are a personal finance education assistant for users in Bangladesh. ")
	sb.WriteString("Give practical, educational guidance grounded in the user's financial context below. ")
	sb.WriteString("Keep answers concise and structured.\n\n")

	sb.WriteString("You must never provide: loan approvals or creditworthiness judgments, ")
	sb.WriteString("e-KYC or identity verification services, or CIB / credit bureau data. ")
	sb.WriteString("If asked, state that a licensed financial services partner is required.\n\n")

	sb.WriteString("Always remind the user that this is educational guidance, not professional financial advice.\n\n")

	sb.WriteString(renderContext(fc))
	return sb.String()
}

// renderContext formats the financial context block with fixed two-decimal
// figures so identical contexts always render identical text.
func renderContext(fc finance.Context) string {
	var sb strings.Builder
	sb.WriteString("[Financial Context]\n")
	fmt.Fprintf(&sb, "Monthly net income: %s\n", money(fc.MonthlyNetIncome))
	fmt.Fprintf(&sb, "Total monthly expenses: %s\n", money(fc.TotalExpenses))
	fmt.Fprintf(&sb, "Total monthly debt installments: %s\n", money(fc.TotalInstallments))
	fmt.Fprintf(&sb, "Total outstanding debt principal: %s\n", money(fc.TotalPrincipal))
	fmt.Fprintf(&sb, "Monthly surplus: %s\n", money(fc.Surplus))
	fmt.Fprintf(&sb, "Debt-to-income ratio: %.2f%%\n", fc.DTI*100)
	fmt.Fprintf(&sb, "Active savings goals: %d\n", fc.GoalCount)
	if fc.RiskTolerance != "" {
		fmt.Fprintf(&sb, "Risk tolerance: %s\n", fc.RiskTolerance)
	}
	return sb.String()
}

func money(v float64) string {
	return fmt.Sprintf("%.2f BDT", v)
}
