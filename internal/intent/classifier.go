package intent

import "strings"

// keywordRule binds a lowercase substring cue to the intent it signals.
// Rules are evaluated in slice order and the first match wins, so the
// tables must never be rebuilt from a map.
type keywordRule struct {
	cue    string
	intent Intent
}

// regulatedRules are checked before educationalRules. Text carrying both a
// regulated cue and an educational cue must classify regulated so the
// compliance gate sees it.
var regulatedRules = []keywordRule{
	{"loan approval", LoanApproval},
	{"approve me", LoanApproval},
	{"approve my", LoanApproval},
	{"loan sanction", LoanApproval},
	{"e-kyc", EKyc},
	{"ekyc", EKyc},
	{"kyc", EKyc},
	{"verify my identity", EKyc},
	{"verification", EKyc},
	{"credit report", CibAccess},
	{"credit bureau", CibAccess},
	{"cib", CibAccess},
}

var educationalRules = []keywordRule{
	{"budget", BudgetingAdvice},
	{"spending", BudgetingAdvice},
	{"expense", BudgetingAdvice},
	{"saving", BudgetingAdvice},
	{"save", BudgetingAdvice},
	{"invest", InvestmentAdvice},
	{"stock", InvestmentAdvice},
	{"mutual fund", InvestmentAdvice},
	{"fixed deposit", InvestmentAdvice},
	{"sanchayapatra", InvestmentAdvice},
	{"dps", InvestmentAdvice},
}

// Classify resolves a question to exactly one Intent by case-insensitive
// substring search over the rule tables. Classification is total: text
// matching no cue is GeneralEducation. Cues match inside longer words
// ("verification" fires on any use of the word), which is accepted
// behavior for this gate: over-blocking beats under-blocking.
func Classify(question string) Intent {
	q := strings.ToLower(question)
	for _, r := range regulatedRules {
		if strings.Contains(q, r.cue) {
			return r.intent
		}
	}
	for _, r := range educationalRules {
		if strings.Contains(q, r.cue) {
			return r.intent
		}
	}
	return GeneralEducation
}
