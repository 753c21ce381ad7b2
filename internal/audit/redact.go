package audit

import "regexp"

// replacement pairs a PII pattern with its placeholder token.
type replacement struct {
	pattern *regexp.Regexp
	token   string
}

// redactions run in fixed order: phone numbers before emails before account
// numbers. The word boundaries pin the digit patterns to runs of exactly 11
// or 16 digits; longer runs are left alone. Placeholder tokens contain no
// digits or '@', so a second pass finds nothing new.
var redactions = []replacement{
	{regexp.MustCompile(`\b\d{11}\b`), "[PHONE_REDACTED]"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL_REDACTED]"},
	{regexp.MustCompile(`\b\d{16}\b`), "[ACCOUNT_REDACTED]"},
}

// Redact returns text with phone numbers, email addresses, and account
// numbers replaced by placeholder tokens. Pure; the input string is never
// modified. Text without matches passes through unchanged.
func Redact(text string) string {
	for _, r := range redactions {
		text = r.pattern.ReplaceAllString(text, r.token)
	}
	return text
}
