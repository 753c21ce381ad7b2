package intent

// Intent labels what a user question is asking for. The value is the
// snake_case string carried in response metadata and audit records.
type Intent string

const (
	BudgetingAdvice  Intent = "budgeting_advice"
	InvestmentAdvice Intent = "investment_advice"
	LoanApproval     Intent = "loan_approval"
	EKyc             Intent = "e_kyc"
	CibAccess        Intent = "cib_access"
	GeneralEducation Intent = "general_education"
)

// Regulated reports whether the intent falls under BFIU partner licensing
// rules (loan decisioning, e-KYC identity verification, CIB credit data).
func (i Intent) Regulated() bool {
	switch i {
	case LoanApproval, EKyc, CibAccess:
		return true
	}
	return false
}

func (i Intent) String() string {
	return string(i)
}
