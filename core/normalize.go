package core

import "strings"

// NormalizeAccountID maps a raw account identifier to its canonical form
// for the given type. Phone numbers keep digits only, with a leading "+"
// preserved; email addresses are lower-cased; all other types pass through
// unchanged. The function is deterministic and idempotent.
func NormalizeAccountID(accountType AccountType, uniqueID string) string {
	switch accountType.TypeName {
	case AccountTypePhone.TypeName:
		return normalizePhoneNumber(uniqueID)
	case AccountTypeEmail.TypeName:
		return strings.ToLower(uniqueID)
	default:
		return uniqueID
	}
}

func normalizePhoneNumber(phoneNum string) string {
	var b strings.Builder
	for _, r := range phoneNum {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if strings.HasPrefix(phoneNum, "+") {
		return "+" + b.String()
	}
	return b.String()
}
