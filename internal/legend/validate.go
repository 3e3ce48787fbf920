// Package legend validates AS batch codes: 10 digits starting with "202".
package legend

import "strings"

// Reason classifies why an input failed validation. Callers use
// ReasonNotNumeric to tell free text apart from a botched code: free text
// that merely isn't a code should not produce an error reply.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonEmpty         Reason = "empty"
	ReasonNotNumeric    Reason = "not_numeric"
	ReasonMissingDigits Reason = "missing_digits"
	ReasonTooManyDigits Reason = "too_many_digits"
	ReasonWrongPrefix   Reason = "wrong_prefix"
)

const (
	codeLength = 10
	codePrefix = "202"
)

type Result struct {
	Valid bool
	Code  string
	// NeedsConfirmation is set for structurally valid codes whose year
	// digit is not 5 or 6 ("2025"/"2026" are current codes, anything else
	// is more likely a typo). The user must confirm before it is accepted.
	NeedsConfirmation bool
	Reason            Reason
	// Missing is how many digits are lacking when Reason is
	// ReasonMissingDigits.
	Missing int
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Validate applies the code format rules in order: empty, non-numeric,
// too short, too long, wrong prefix, then the confirmation rule on the
// fourth digit.
func Validate(text string) Result {
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		return Result{Reason: ReasonEmpty}
	}
	if !isDigits(trimmed) {
		return Result{Reason: ReasonNotNumeric}
	}
	if len(trimmed) < codeLength {
		return Result{Reason: ReasonMissingDigits, Missing: codeLength - len(trimmed)}
	}
	if len(trimmed) > codeLength {
		return Result{Reason: ReasonTooManyDigits}
	}
	if !strings.HasPrefix(trimmed, codePrefix) {
		return Result{Reason: ReasonWrongPrefix}
	}

	switch trimmed[3] {
	case '5', '6':
		return Result{Valid: true, Code: trimmed}
	default:
		return Result{Valid: true, Code: trimmed, NeedsConfirmation: true}
	}
}
