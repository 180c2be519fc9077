// Package core defines the domain model for the communications graph:
// account identities, account instances, evidence artifacts, and the
// filter types consumed by the query layer.
package core

// AccountType identifies a class of communication account (phone, email,
// application handle, ...). Identity is the TypeName alone; DisplayName is
// presentation only and never participates in equality or lookups.
type AccountType struct {
	TypeName    string
	DisplayName string
}

// Equal reports whether two account types denote the same type.
func (t AccountType) Equal(other AccountType) bool {
	return t.TypeName == other.TypeName
}

// Predefined account types. Additional types can be registered at runtime
// through the account type registry.
var (
	AccountTypeCreditCard   = AccountType{TypeName: "credit-card", DisplayName: "Credit Card"}
	AccountTypeDevice       = AccountType{TypeName: "device", DisplayName: "Device"}
	AccountTypeEmail        = AccountType{TypeName: "email", DisplayName: "Email"}
	AccountTypeFacebook     = AccountType{TypeName: "facebook", DisplayName: "Facebook"}
	AccountTypeInstagram    = AccountType{TypeName: "instagram", DisplayName: "Instagram"}
	AccountTypeMessagingApp = AccountType{TypeName: "messaging-app", DisplayName: "Messaging App"}
	AccountTypePhone        = AccountType{TypeName: "phone", DisplayName: "Phone"}
	AccountTypeTwitter      = AccountType{TypeName: "twitter", DisplayName: "Twitter"}
	AccountTypeWebsite      = AccountType{TypeName: "website", DisplayName: "Website"}
	AccountTypeWhatsApp     = AccountType{TypeName: "whatsapp", DisplayName: "WhatsApp"}
)

// PredefinedAccountTypes returns the catalogue seeded into every new case
// database.
func PredefinedAccountTypes() []AccountType {
	return []AccountType{
		AccountTypeCreditCard,
		AccountTypeDevice,
		AccountTypeEmail,
		AccountTypeFacebook,
		AccountTypeInstagram,
		AccountTypeMessagingApp,
		AccountTypePhone,
		AccountTypeTwitter,
		AccountTypeWebsite,
		AccountTypeWhatsApp,
	}
}

// Account is a deduplicated identity: at most one account row exists per
// (type, normalized unique identifier) pair. ID is the persistent row id
// assigned on first creation.
type Account struct {
	ID       int64
	Type     AccountType
	UniqueID string // normalized form, see NormalizeAccountID
}

// AccountInstance is one observed occurrence of an account within a single
// evidence source, evidenced by its marker artifact. Instances are never
// merged; only accounts are deduplicated.
type AccountInstance struct {
	Artifact Artifact
	Account  Account
}

// AccountDeviceInstance identifies an account as observed on a specific
// device. It is a query-result and filter key, not separately persisted.
type AccountDeviceInstance struct {
	Account  Account
	DeviceID string
}
