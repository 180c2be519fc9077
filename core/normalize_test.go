package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAccountID_Phone(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"international with punctuation", "+1 (555) 010-0001", "+15550100001"},
		{"domestic with dashes", "555-010-0001", "5550100001"},
		{"already normalized", "+15550100001", "+15550100001"},
		{"digits only", "5550100001", "5550100001"},
		{"letters stripped", "1-800-FLOWERS", "1800"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAccountID(AccountTypePhone, tt.raw))
		})
	}
}

func TestNormalizeAccountID_Email(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeAccountID(AccountTypeEmail, "Alice@EXAMPLE.com"))
	assert.Equal(t, "bob@x.com", NormalizeAccountID(AccountTypeEmail, "bob@x.com"))
}

func TestNormalizeAccountID_OtherTypesPassThrough(t *testing.T) {
	assert.Equal(t, "Some.Handle-42", NormalizeAccountID(AccountTypeFacebook, "Some.Handle-42"))
	assert.Equal(t, "DEV-001", NormalizeAccountID(AccountTypeDevice, "DEV-001"))
}

// Normalization must be idempotent: normalizing an already-normalized id
// yields the same value.
func TestNormalizeAccountID_Idempotent(t *testing.T) {
	inputs := map[AccountType][]string{
		AccountTypePhone:    {"+1 (555) 010-0001", "555 010 0001", "+447700900123"},
		AccountTypeEmail:    {"Alice@EXAMPLE.com", "bob@x.com"},
		AccountTypeWhatsApp: {"some-raw-id"},
	}

	for accountType, raws := range inputs {
		for _, raw := range raws {
			once := NormalizeAccountID(accountType, raw)
			twice := NormalizeAccountID(accountType, once)
			assert.Equal(t, once, twice, "type %s input %q", accountType.TypeName, raw)
		}
	}
}
