package main

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/peakfin/peakfin/internal/config"
)

// --- register / login ---

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the local server",
	Long: `Create an account on the local server.

Examples:
  peakfin register --email jane@example.com --income 80000
  peakfin register --email jane@example.com --name "Jane Doe" --risk low`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		name, _ := cmd.Flags().GetString("name")
		income, _ := cmd.Flags().GetFloat64("income")
		risk, _ := cmd.Flags().GetString("risk")

		if email == "" {
			return fmt.Errorf("--email is required")
		}
		if password == "" {
			var err error
			password, err = promptPassword("Password: ")
			if err != nil {
				return err
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"email":              email,
			"password":           password,
			"full_name":          name,
			"monthly_net_income": income,
		}
		if risk != "" {
			req["risk_tolerance"] = risk
		}

		resp, err := client.post(cmd.Context(), "/v1/auth/register", req)
		if err != nil {
			return err
		}

		var user struct {
			Email string `json:"email"`
		}
		if err := decodeJSON(resp, &user); err != nil {
			return err
		}

		printSuccess("Registered %s", user.Email)
		printStep("Run `peakfin login --email %s` to start a session", user.Email)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and cache a session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		if email == "" {
			return fmt.Errorf("--email is required")
		}
		if password == "" {
			var err error
			password, err = promptPassword("Password: ")
			if err != nil {
				return err
			}
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/auth/login", map[string]any{
			"email":    email,
			"password": password,
		})
		if err != nil {
			return err
		}

		var token struct {
			AccessToken string `json:"access_token"`
			ExpiresAt   string `json:"expires_at"`
		}
		if err := decodeJSON(resp, &token); err != nil {
			return err
		}

		if err := writeCachedToken(cfg.Storage.DataDir, token.AccessToken); err != nil {
			return fmt.Errorf("caching token: %w", err)
		}

		printSuccess("Logged in as %s (session valid until %s)", email, token.ExpiresAt)
		return nil
	},
}

// promptPassword reads a password from stdin without echoing. When stdin is
// not a terminal (piped input) it falls back to a plain line read so scripts
// still work.
func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	var pw string
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		pw = strings.TrimSpace(string(raw))
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		pw = strings.TrimSpace(line)
	}
	if pw == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return pw, nil
}

func init() {
	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("password", "", "account password (prompted when omitted)")
	registerCmd.Flags().String("name", "", "full name")
	registerCmd.Flags().Float64("income", 0, "monthly net income")
	registerCmd.Flags().String("risk", "", "risk tolerance: low, moderate, or high")

	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (prompted when omitted)")
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the financial advisor a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		client, err := authedClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/advisor/ask", map[string]any{
			"question": question,
		})
		if err != nil {
			return err
		}

		var result struct {
			Answer  string `json:"answer"`
			Blocked bool   `json:"is_blocked"`
			Meta    struct {
				Disclaimer    string `json:"disclaimer"`
				Intent        string `json:"intent"`
				RegulatedMode bool   `json:"regulated_mode"`
			} `json:"meta"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Blocked {
			printWarning("This request was declined by the compliance gate.")
		}
		fmt.Println(result.Answer)
		fmt.Println()
		fmt.Println(colorize(colorYellow, result.Meta.Disclaimer))
		return nil
	},
}

// --- dashboard ---

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the financial dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authedClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/dashboard")
		if err != nil {
			return err
		}

		var d struct {
			TotalIncome         float64 `json:"total_income"`
			TotalExpenses       float64 `json:"total_expenses"`
			Surplus             float64 `json:"surplus"`
			DTI                 float64 `json:"dti"`
			SafeToSpend         float64 `json:"safe_to_spend"`
			FunBudget           float64 `json:"fun_budget"`
			GoalProgressPct     float64 `json:"goal_progress_pct"`
			DebtPayoffETAMonths *int    `json:"debt_payoff_eta_months"`
			Meta                struct {
				Disclaimer string `json:"disclaimer"`
			} `json:"meta"`
		}
		if err := decodeJSON(resp, &d); err != nil {
			return err
		}

		printStatus("Income", "%.2f", d.TotalIncome)
		printStatus("Expenses", "%.2f", d.TotalExpenses)
		printStatus("Surplus", "%.2f", d.Surplus)
		printStatus("DTI", "%.1f%%", d.DTI*100)
		printStatus("Safe to spend", "%.2f", d.SafeToSpend)
		printStatus("Fun budget", "%.2f", d.FunBudget)
		printStatus("Goal progress", "%.1f%%", d.GoalProgressPct)
		if d.DebtPayoffETAMonths != nil {
			printStatus("Debt payoff ETA", "%d months", *d.DebtPayoffETAMonths)
		} else {
			printStatus("Debt payoff ETA", "no active debts")
		}
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, colorize(colorYellow, d.Meta.Disclaimer))
		return nil
	},
}

// --- data ---

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage expenses, debts, and goals",
}

var expensesCmd = &cobra.Command{
	Use:   "expenses",
	Short: "Manage recurring monthly expenses",
}

var expensesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a recurring expense",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, _ := cmd.Flags().GetFloat64("amount")
		category, _ := cmd.Flags().GetString("category")
		note, _ := cmd.Flags().GetString("note")

		client, err := authedClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/data/expenses", map[string]any{
			"amount":   amount,
			"category": category,
			"note":     note,
		})
		if err != nil {
			return err
		}

		var expense struct {
			ID       string  `json:"id"`
			Category string  `json:"category"`
			Amount   float64 `json:"amount"`
		}
		if err := decodeJSON(resp, &expense); err != nil {
			return err
		}

		printSuccess("Added expense %s: %s %.2f", expense.ID[:8], expense.Category, expense.Amount)
		return nil
	},
}

var expensesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded expenses",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authedClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/data/expenses")
		if err != nil {
			return err
		}

		var expenses []struct {
			ID       string  `json:"id"`
			Category string  `json:"category"`
			Amount   float64 `json:"amount"`
			Note     string  `json:"note"`
		}
		if err := decodeJSON(resp, &expenses); err != nil {
			return err
		}

		if len(expenses) == 0 {
			fmt.Println("No expenses recorded.")
			return nil
		}

		total := 0.0
		for _, e := range expenses {
			line := fmt.Sprintf("%s  %-20s %12.2f", colorize(colorCyan, e.ID[:8]), e.Category, e.Amount)
			if e.Note != "" {
				line += "  " + e.Note
			}
			fmt.Println(line)
			total += e.Amount
		}
		fmt.Printf("\n%s %.2f\n", colorize(colorBold, "Total:"), total)
		return nil
	},
}

var debtsCmd = &cobra.Command{
	Use:   "debts",
	Short: "Manage debt accounts",
}

var debtsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a debt account",
	RunE: func(cmd *cobra.Command, args []string) error {
		lender, _ := cmd.Flags().GetString("lender")
		principal, _ := cmd.Flags().GetFloat64("principal")
		rate, _ := cmd.Flags().GetFloat64("rate")
		emi, _ := cmd.Flags().GetFloat64("emi")
		term, _ := cmd.Flags().GetInt("term")

		client, err := authedClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/data/debts", map[string]any{
			"lender":          lender,
			"principal":       principal,
			"annual_rate_pct": rate,
			"current_emi":     emi,
			"term_months":     term,
		})
		if err != nil {
			return err
		}

		var debt struct {
			ID     string `json:"id"`
			Lender string `json:"lender"`
		}
		if err := decodeJSON(resp, &debt); err != nil {
			return err
		}

		printSuccess("Added debt %s: %s", debt.ID[:8], debt.Lender)
		return nil
	},
}

var debtsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List debt accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authedClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/data/debts")
		if err != nil {
			return err
		}

		var debts []struct {
			ID            string  `json:"id"`
			Lender        string  `json:"lender"`
			Principal     float64 `json:"principal"`
			AnnualRatePct float64 `json:"annual_rate_pct"`
			CurrentEMI    float64 `json:"current_emi"`
		}
		if err := decodeJSON(resp, &debts); err != nil {
			return err
		}

		if len(debts) == 0 {
			fmt.Println("No debts recorded.")
			return nil
		}

		for _, d := range debts {
			fmt.Printf("%s  %-20s principal %.2f at %.2f%%, EMI %.2f\n",
				colorize(colorCyan, d.ID[:8]), d.Lender, d.Principal, d.AnnualRatePct, d.CurrentEMI)
		}
		return nil
	},
}

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage savings goals",
}

var goalsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a savings goal",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		target, _ := cmd.Flags().GetFloat64("target")
		saved, _ := cmd.Flags().GetFloat64("saved")
		priority, _ := cmd.Flags().GetInt("priority")

		client, err := authedClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/data/goals", map[string]any{
			"name":          name,
			"target_amount": target,
			"saved_amount":  saved,
			"priority":      priority,
		})
		if err != nil {
			return err
		}

		var goal struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := decodeJSON(resp, &goal); err != nil {
			return err
		}

		printSuccess("Added goal %s: %s", goal.ID[:8], goal.Name)
		return nil
	},
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List savings goals by priority",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authedClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/data/goals")
		if err != nil {
			return err
		}

		var goals []struct {
			ID           string  `json:"id"`
			Name         string  `json:"name"`
			TargetAmount float64 `json:"target_amount"`
			SavedAmount  float64 `json:"saved_amount"`
			Priority     int     `json:"priority"`
		}
		if err := decodeJSON(resp, &goals); err != nil {
			return err
		}

		if len(goals) == 0 {
			fmt.Println("No goals recorded.")
			return nil
		}

		for _, g := range goals {
			pct := 0.0
			if g.TargetAmount > 0 {
				pct = g.SavedAmount / g.TargetAmount * 100
			}
			fmt.Printf("%s  [P%d] %-20s %.2f of %.2f (%.1f%%)\n",
				colorize(colorCyan, g.ID[:8]), g.Priority, g.Name, g.SavedAmount, g.TargetAmount, pct)
		}
		return nil
	},
}

func init() {
	expensesAddCmd.Flags().Float64("amount", 0, "monthly amount")
	expensesAddCmd.Flags().String("category", "", "expense category")
	expensesAddCmd.Flags().String("note", "", "optional note")
	expensesCmd.AddCommand(expensesAddCmd)
	expensesCmd.AddCommand(expensesListCmd)

	debtsAddCmd.Flags().String("lender", "", "lender name")
	debtsAddCmd.Flags().Float64("principal", 0, "outstanding principal")
	debtsAddCmd.Flags().Float64("rate", 0, "annual interest rate in percent")
	debtsAddCmd.Flags().Float64("emi", 0, "current monthly installment")
	debtsAddCmd.Flags().Int("term", 0, "remaining term in months")
	debtsCmd.AddCommand(debtsAddCmd)
	debtsCmd.AddCommand(debtsListCmd)

	goalsAddCmd.Flags().String("name", "", "goal name")
	goalsAddCmd.Flags().Float64("target", 0, "target amount")
	goalsAddCmd.Flags().Float64("saved", 0, "amount saved so far")
	goalsAddCmd.Flags().Int("priority", 1, "priority, 1 is highest")
	goalsCmd.AddCommand(goalsAddCmd)
	goalsCmd.AddCommand(goalsListCmd)

	dataCmd.AddCommand(expensesCmd)
	dataCmd.AddCommand(debtsCmd)
	dataCmd.AddCommand(goalsCmd)
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a bank statement (CSV or PDF)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading statement: %w", err)
		}

		client, err := authedClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/import/statement", map[string]any{
			"filename": filepath.Base(path),
			"content":  base64.StdEncoding.EncodeToString(data),
		})
		if err != nil {
			return err
		}

		var result struct {
			Imported       int                `json:"imported"`
			CategoryTotals map[string]float64 `json:"category_totals"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Imported %d transactions", result.Imported)
		categories := make([]string, 0, len(result.CategoryTotals))
		for c := range result.CategoryTotals {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			printStatus(c, "%.2f", result.CategoryTotals[c])
		}
		return nil
	},
}

// --- audit ---

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List your audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := authedClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/v1/audit?limit=%d", limit))
		if err != nil {
			return err
		}

		var records []struct {
			ID        string `json:"id"`
			Action    string `json:"action"`
			Question  string `json:"question"`
			CreatedAt string `json:"created_at"`
		}
		if err := decodeJSON(resp, &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No audit records found.")
			return nil
		}

		for _, rec := range records {
			line := fmt.Sprintf("%s  %s  %s", colorize(colorCyan, rec.ID[:8]), rec.CreatedAt, rec.Action)
			if rec.Question != "" {
				q := rec.Question
				if len(q) > 80 {
					q = q[:80] + "..."
				}
				line += "  " + q
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().Int("limit", 20, "maximum number of records to list")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
