package workflow

import "strings"

// Status is the validator's categorical judgment of an answer.
type Status string

const (
	StatusValid   Status = "VALID"
	StatusInvalid Status = "INVALID"
	StatusPartial Status = "PARTIAL"
)

// ParseVerdict classifies a raw validator response by its leading token,
// case-insensitively. INVALID and PARTIAL carry the full response text back
// as feedback for the next generation; VALID clears it. A response matching
// none of the three tokens is treated as acceptance: terminating on an
// unparseable verdict beats looping on ambiguity.
func ParseVerdict(response string) (Status, string) {
	upper := strings.ToUpper(strings.TrimSpace(response))
	switch {
	case strings.HasPrefix(upper, "VALID"):
		return StatusValid, ""
	case strings.HasPrefix(upper, "INVALID"):
		return StatusInvalid, response
	case strings.HasPrefix(upper, "PARTIAL"):
		return StatusPartial, response
	default:
		return StatusValid, ""
	}
}
