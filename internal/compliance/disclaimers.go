package compliance

// Disclaimer texts attached to calculator, projection, and advisory
// responses. Wording is part of the compliance posture; do not edit
// without review.
const (
	CalcDisclaimer = "Educational estimates only; not financial advice. " +
		"Actual results may vary based on individual circumstances."

	LoanDisclaimer = "Loan estimates are illustrative; approval and terms are set solely by licensed lenders. " +
		"This is not a loan offer or commitment."

	AIDisclaimer = "AI answers are generated from your inputs; verify before acting. " +
		"This is educational guidance, not professional financial advice."

	ProjectionDisclaimer = "Projections are estimates and may differ from real prices. " +
		"Market conditions and inflation rates vary."
)

// Meta is the disclaimer block embedded in API responses.
type Meta struct {
	Disclaimer string `json:"disclaimer"`
}

// CalcMeta covers plain calculator output.
func CalcMeta() Meta {
	return Meta{Disclaimer: CalcDisclaimer}
}

// LoanMeta covers loan assessments: calculator wording plus the
// lender-authority notice.
func LoanMeta() Meta {
	return Meta{Disclaimer: CalcDisclaimer + " " + LoanDisclaimer}
}

// AIMeta covers generative advisory answers.
func AIMeta() Meta {
	return Meta{Disclaimer: AIDisclaimer}
}

// ProjectionMeta covers inflation and other forward-looking projections.
func ProjectionMeta() Meta {
	return Meta{Disclaimer: CalcDisclaimer + " " + ProjectionDisclaimer}
}
