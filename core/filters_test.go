package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommunicationsFilter_IsEmpty(t *testing.T) {
	var nilFilter *CommunicationsFilter
	assert.True(t, nilFilter.IsEmpty())
	assert.True(t, NewCommunicationsFilter().IsEmpty())
	assert.False(t, NewCommunicationsFilter(DeviceFilter{DeviceIDs: []string{"dev1"}}).IsEmpty())
}

func TestSubFilterKinds(t *testing.T) {
	assert.Equal(t, FilterKindDevice, DeviceFilter{}.Kind())
	assert.Equal(t, FilterKindAccountType, AccountTypeFilter{}.Kind())
	assert.Equal(t, FilterKindRelationshipType, RelationshipTypeFilter{}.Kind())
}

func TestAccountTypeEquality(t *testing.T) {
	// Equality is by type name only; display name is presentation.
	a := AccountType{TypeName: "phone", DisplayName: "Phone"}
	b := AccountType{TypeName: "phone", DisplayName: "Telephone"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(AccountTypeEmail))
}

func TestArtifactTypeSets(t *testing.T) {
	// Contacts evidence relationships but not communications.
	assert.Contains(t, RelationshipArtifactTypeIDs, ArtifactTypeContact)
	assert.NotContains(t, CommunicationArtifactTypeIDs, ArtifactTypeContact)
	assert.Contains(t, CommunicationArtifactTypeIDs, ArtifactTypeMessage)
}
