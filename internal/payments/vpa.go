package payments

import "regexp"

var vpaPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z][a-zA-Z0-9.-]*$`)

// ValidateVPA checks the local-part@handle shape of a UPI virtual payment
// address and its 3..50 character length.
func ValidateVPA(vpa string) bool {
	if len(vpa) < 3 || len(vpa) > 50 {
		return false
	}
	return vpaPattern.MatchString(vpa)
}
