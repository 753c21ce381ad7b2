package compliance

import (
	"fmt"

	"github.com/peakfin/peakfin/internal/intent"
)

// Mode is the process-wide deployment posture. It is fixed at startup and
// read-only for the lifetime of every request.
type Mode int

const (
	// EducationalOnly deployments may not serve regulated intents.
	EducationalOnly Mode = iota
	// RegulatedPartner deployments run under a licensed partner and may
	// serve every intent.
	RegulatedPartner
)

func (m Mode) String() string {
	if m == RegulatedPartner {
		return "regulated_partner"
	}
	return "educational_only"
}

// ModeFor maps the regulated-partner configuration flag to a Mode.
func ModeFor(regulatedPartner bool) Mode {
	if regulatedPartner {
		return RegulatedPartner
	}
	return EducationalOnly
}

// Decision is the outcome of the compliance gate for one request.
type Decision struct {
	Allowed bool
	Intent  intent.Intent
}

// Decide applies the gate: regulated intents pass only under
// RegulatedPartner, educational intents always pass. Pure lookup,
// never fails.
func Decide(in intent.Intent, mode Mode) Decision {
	if in.Regulated() {
		return Decision{Allowed: mode == RegulatedPartner, Intent: in}
	}
	return Decision{Allowed: true, Intent: in}
}

// Refusal renders the fixed user-facing answer for a blocked request.
// Deterministic per intent; no generative backend is consulted on this path.
func Refusal(in intent.Intent) string {
	return fmt.Sprintf(
		"%s is not available in educational mode. "+
			"This feature requires a licensed financial services partner. "+
			"Please contact support for information about regulated services.",
		featureLabel(in),
	)
}

func featureLabel(in intent.Intent) string {
	switch in {
	case intent.LoanApproval:
		return "Loan approval"
	case intent.EKyc:
		return "e-KYC identity verification"
	case intent.CibAccess:
		return "CIB credit data access"
	}
	return "This feature"
}
