package compliance

import (
	"strings"
	"testing"

	"github.com/peakfin/peakfin/internal/intent"
)

func TestDecide_RegulatedIntents(t *testing.T) {
	regulated := []intent.Intent{intent.LoanApproval, intent.EKyc, intent.CibAccess}

	for _, in := range regulated {
		if d := Decide(in, EducationalOnly); d.Allowed {
			t.Errorf("Decide(%s, EducationalOnly).Allowed = true, want false", in)
		}
		if d := Decide(in, RegulatedPartner); !d.Allowed {
			t.Errorf("Decide(%s, RegulatedPartner).Allowed = false, want true", in)
		}
	}
}

func TestDecide_EducationalIntents(t *testing.T) {
	educational := []intent.Intent{intent.BudgetingAdvice, intent.InvestmentAdvice, intent.GeneralEducation}

	for _, in := range educational {
		for _, mode := range []Mode{EducationalOnly, RegulatedPartner} {
			d := Decide(in, mode)
			if !d.Allowed {
				t.Errorf("Decide(%s, %s).Allowed = false, want true", in, mode)
			}
			if d.Intent != in {
				t.Errorf("Decide(%s, %s).Intent = %s, want %s", in, mode, d.Intent, in)
			}
		}
	}
}

func TestRefusal(t *testing.T) {
	msg := Refusal(intent.LoanApproval)
	if !strings.Contains(msg, "Loan approval") {
		t.Errorf("refusal missing feature label: %q", msg)
	}
	if !strings.Contains(msg, "licensed financial services partner") {
		t.Errorf("refusal missing partner notice: %q", msg)
	}

	// Same request always renders the same refusal.
	if again := Refusal(intent.LoanApproval); again != msg {
		t.Error("refusal text not deterministic")
	}
}

func TestModeFor(t *testing.T) {
	if ModeFor(true) != RegulatedPartner {
		t.Error("ModeFor(true) should be RegulatedPartner")
	}
	if ModeFor(false) != EducationalOnly {
		t.Error("ModeFor(false) should be EducationalOnly")
	}
}

func TestMeta(t *testing.T) {
	if LoanMeta().Disclaimer == CalcMeta().Disclaimer {
		t.Error("loan meta should extend the calculator disclaimer")
	}
	if !strings.HasPrefix(LoanMeta().Disclaimer, CalcDisclaimer) {
		t.Error("loan meta should lead with the calculator disclaimer")
	}
	if !strings.Contains(ProjectionMeta().Disclaimer, "Projections are estimates") {
		t.Error("projection meta missing projection wording")
	}
}
