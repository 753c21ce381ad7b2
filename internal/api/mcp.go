package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/peakfin/peakfin/internal/advisor"
	"github.com/peakfin/peakfin/internal/compliance"
	"github.com/peakfin/peakfin/internal/metrics"
	"github.com/peakfin/peakfin/internal/storage"
)

// MCPDeps holds dependencies for the MCP server. The stdio transport has no
// authentication, so user-scoped tools act as the single user bound at
// startup; with an empty UserRef only the pure calculators work.
type MCPDeps struct {
	Store      *storage.Store
	Mediator   *advisor.Mediator
	UserRef    string
	FunRatio   float64
	DefaultCPI float64
}

// NewMCPServer creates an MCP server with the peakfin tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"peakfin",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("peakfin personal finance assistant: budgeting calculators, dashboard metrics, and compliance-gated AI guidance."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("ask_advisor",
			mcp.WithDescription("Ask the financial advisor a question. Answers are grounded in the bound user's financial data and pass the compliance gate."),
			mcp.WithString("question", mcp.Description("The financial question to ask"), mcp.Required()),
		),
		mcpAskAdvisor(deps),
	)

	s.AddTool(
		mcp.NewTool("loan_payoff_plan",
			mcp.WithDescription("Compute the monthly EMI for a loan and the months and interest saved by a fixed extra payment."),
			mcp.WithNumber("principal", mcp.Description("Outstanding loan principal"), mcp.Required()),
			mcp.WithNumber("annual_rate_pct", mcp.Description("Annual interest rate in percent"), mcp.Required()),
			mcp.WithNumber("term_months", mcp.Description("Loan term in months"), mcp.Required()),
			mcp.WithNumber("extra_payment", mcp.Description("Optional extra payment added every month")),
		),
		mcpLoanPayoffPlan(deps),
	)

	s.AddTool(
		mcp.NewTool("inflation_forecast",
			mcp.WithDescription("Project the future price of an expense year by year under a compounding CPI assumption."),
			mcp.WithNumber("current_price", mcp.Description("Price today"), mcp.Required()),
			mcp.WithNumber("annual_cpi_rate", mcp.Description("Annual CPI in percent (defaults to the configured rate)")),
			mcp.WithNumber("years", mcp.Description("Forecast horizon in years (default 5)")),
		),
		mcpInflationForecast(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"finance://dashboard",
			"Financial Dashboard",
			mcp.WithResourceDescription("Key financial metrics for the bound user as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDashboard(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"finance://disclaimers",
			"Compliance Disclaimers",
			mcp.WithResourceDescription("Disclaimer texts attached to calculator, projection, and advisory output"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDisclaimers(deps),
	)

	return s
}

func mcpAskAdvisor(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		if deps.UserRef == "" {
			return mcpError("no user bound to this session; start the server with --mcp-user"), nil
		}

		snap, err := deps.Store.Snapshot(deps.UserRef)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load financial snapshot: %v", err)), nil
		}

		start := time.Now()
		resp, err := deps.Mediator.Ask(ctx, advisor.Request{
			UserRef:  deps.UserRef,
			Question: question,
			Snapshot: snap,
		})
		metrics.AdvisorDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.AdvisorRequests.WithLabelValues(metrics.OutcomeFailed).Inc()
			return mcpError(fmt.Sprintf("advisory pipeline failed: %v", err)), nil
		}

		if resp.Blocked {
			metrics.AdvisorRequests.WithLabelValues(metrics.OutcomeBlocked).Inc()
		} else {
			metrics.AdvisorRequests.WithLabelValues(metrics.OutcomeAnswered).Inc()
		}

		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpLoanPayoffPlan(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		principal, err := req.RequireFloat("principal")
		if err != nil {
			return mcpError("principal is required"), nil
		}
		annualRatePct, err := req.RequireFloat("annual_rate_pct")
		if err != nil {
			return mcpError("annual_rate_pct is required"), nil
		}
		termMonths, err := req.RequireInt("term_months")
		if err != nil {
			return mcpError("term_months is required"), nil
		}
		extraPayment := req.GetFloat("extra_payment", 0)

		if principal <= 0 {
			return mcpError("principal must be positive"), nil
		}
		if annualRatePct < 0 || extraPayment < 0 {
			return mcpError("annual_rate_pct and extra_payment must not be negative"), nil
		}
		if termMonths < 1 {
			return mcpError("term_months must be at least 1"), nil
		}

		b, err := json.Marshal(payoffPlan(principal, annualRatePct, termMonths, extraPayment))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal plan: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpInflationForecast(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		currentPrice, err := req.RequireFloat("current_price")
		if err != nil {
			return mcpError("current_price is required"), nil
		}
		if currentPrice < 0 {
			return mcpError("current_price must not be negative"), nil
		}

		cpi := req.GetFloat("annual_cpi_rate", deps.DefaultCPI)

		years := req.GetInt("years", 5)
		if years < 1 {
			years = 5
		}
		if years > 50 {
			years = 50
		}

		resp, err := inflationForecast(currentPrice, cpi, years)
		if err != nil {
			return mcpError(fmt.Sprintf("forecast failed: %v", err)), nil
		}

		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal forecast: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceDashboard(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if deps.UserRef == "" {
			return nil, fmt.Errorf("no user bound to this session")
		}

		summary, err := buildDashboard(deps.Store, deps.UserRef, deps.FunRatio)
		if err != nil {
			return nil, fmt.Errorf("failed to build dashboard: %w", err)
		}

		b, err := json.Marshal(summary)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal dashboard: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceDisclaimers(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(map[string]string{
			"calculator": compliance.CalcDisclaimer,
			"loan":       compliance.LoanDisclaimer,
			"ai":         compliance.AIDisclaimer,
			"projection": compliance.ProjectionDisclaimer,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal disclaimers: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
