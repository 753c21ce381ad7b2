package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/peakfin/peakfin/internal/finance"
)

// Offline is the deterministic advisory fallback used for demo deployments
// and environments without a generative backend. It selects one of three
// canned texts by keyword and renders the user's figures into it. No clock,
// no randomness: identical input produces byte-identical output.
type Offline struct{}

// NewOffline creates the offline provider.
func NewOffline() *Offline {
	return &Offline{}
}

// Keyword groups are the offline provider's own, independent from intent
// classification: a question the classifier files under general education
// can still draw the budgeting text here.
var (
	budgetingCues = []string{"budget", "spend", "expense", "saving", "save"}
	debtCues      = []string{"debt", "loan", "emi", "installment", "interest"}
)

// ProduceAdvice picks the themed text for the question. Budgeting cues are
// checked first, then debt cues, then the general text. Never fails.
func (o *Offline) ProduceAdvice(_ context.Context, question string, fc finance.Context) (string, error) {
	q := strings.ToLower(question)
	switch {
	case matchesAny(q, budgetingCues):
		return budgetingText(fc), nil
	case matchesAny(q, debtCues):
		return debtText(fc), nil
	}
	return generalText(fc), nil
}

func matchesAny(q string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(q, cue) {
			return true
		}
	}
	return false
}

func budgetingText(fc finance.Context) string {
	var sb strings.Builder

	sb.WriteString("Here is a budgeting starting point based on your numbers.\n\n")

	sb.WriteString("## Where your money goes\n")
	fmt.Fprintf(&sb, "Your monthly net income is %s and your recorded expenses total %s. ", money(fc.MonthlyNetIncome), money(fc.TotalExpenses))
	fmt.Fprintf(&sb, "After expenses and %s in debt installments, your monthly surplus is %s.\n\n", money(fc.TotalInstallments), money(fc.Surplus))

	sb.WriteString("## A simple split to try\n")
	sb.WriteString("A common starting rule is 50% of income for needs, 30% for wants, and 20% for savings and debt repayment. ")
	sb.WriteString("Track every expense for one month before adjusting the split; most budgets fail from untracked small purchases, not big ones.\n\n")

	sb.WriteString("## Next steps\n")
	sb.WriteString("1. Separate fixed bills from variable spending.\n")
	sb.WriteString("2. Set one concrete savings target before the next month begins.\n")
	sb.WriteString("3. Review the budget on the same date every month.\n\n")

	sb.WriteString("This is educational guidance, not professional financial advice.")
	return sb.String()
}

func debtText(fc finance.Context) string {
	var sb strings.Builder

	sb.WriteString("Here is an educational look at your debt position.\n\n")

	sb.WriteString("## Your debt picture\n")
	fmt.Fprintf(&sb, "You carry %s in outstanding principal and pay %s in installments each month. ", money(fc.TotalPrincipal), money(fc.TotalInstallments))
	fmt.Fprintf(&sb, "That puts your debt-to-income ratio at %.2f%%; lenders commonly treat 40%% as the ceiling for comfortable servicing.\n\n", fc.DTI*100)

	sb.WriteString("## Paying it down\n")
	sb.WriteString("Two well-known orders of attack: the avalanche (highest interest rate first, cheapest overall) ")
	sb.WriteString("and the snowball (smallest balance first, fastest visible wins). ")
	sb.WriteString("Either works only if you keep total installments inside your monthly surplus.\n\n")

	sb.WriteString("## Guardrails\n")
	sb.WriteString("Avoid taking new debt while the ratio is elevated, and build a small cash buffer so one bad month does not force a missed installment.\n\n")

	sb.WriteString("This is educational guidance, not professional financial advice.")
	return sb.String()
}

func generalText(fc finance.Context) string {
	var sb strings.Builder

	sb.WriteString("Here are general personal finance basics for your situation.\n\n")

	sb.WriteString("## Know your baseline\n")
	fmt.Fprintf(&sb, "With income of %s and a monthly surplus of %s, your first goal is consistency: ", money(fc.MonthlyNetIncome), money(fc.Surplus))
	sb.WriteString("know where every taka goes before optimizing anything.\n\n")

	sb.WriteString("## Emergency fund first\n")
	sb.WriteString("Before investing, hold three to six months of essential expenses in an account you can reach within a day. ")
	sb.WriteString("This is the cheapest insurance available to you.\n\n")

	sb.WriteString("## Keep learning\n")
	fmt.Fprintf(&sb, "You currently track %d savings goal(s). ", fc.GoalCount)
	sb.WriteString("Start with one clear goal, automate a monthly transfer toward it, and review progress quarterly.\n\n")

	sb.WriteString("This is educational guidance, not professional financial advice.")
	return sb.String()
}
