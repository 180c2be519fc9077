package core

// Artifact type ids for the evidence records this module reads and writes.
// Messages, email messages and call logs evidence actual communication;
// contacts evidence a relationship without a communication event.
const (
	ArtifactTypeMessage  int64 = 1
	ArtifactTypeEmailMsg int64 = 2
	ArtifactTypeCallLog  int64 = 3
	ArtifactTypeContact  int64 = 4

	// ArtifactTypeAccount is the marker artifact recorded for each account
	// instance discovered in a source.
	ArtifactTypeAccount int64 = 5
)

// Attribute type ids carried on account marker artifacts.
const (
	AttributeTypeAccountTypeName int64 = 1
	AttributeTypeAccountID       int64 = 2
)

// RelationshipArtifactTypeIDs lists the artifact types that evidence a
// relationship between accounts.
var RelationshipArtifactTypeIDs = []int64{
	ArtifactTypeMessage,
	ArtifactTypeEmailMsg,
	ArtifactTypeCallLog,
	ArtifactTypeContact,
}

// CommunicationArtifactTypeIDs lists the artifact types that evidence a
// communication event between accounts. A strict subset of the
// relationship types: contacts are relationships but not communications.
var CommunicationArtifactTypeIDs = []int64{
	ArtifactTypeMessage,
	ArtifactTypeEmailMsg,
	ArtifactTypeCallLog,
}

// Attribute is a typed value attached to an artifact. Source names the
// module that recorded it.
type Attribute struct {
	TypeID    int64
	Source    string
	ValueText string
}

// Artifact is an evidentiary record extracted from a source object.
type Artifact struct {
	ID              int64
	ObjID           int64 // originating content object
	DataSourceObjID int64
	TypeID          int64
	Attributes      []Attribute
}

// Attribute returns the first attribute of the given type, if present.
func (a Artifact) Attribute(typeID int64) (Attribute, bool) {
	for _, attr := range a.Attributes {
		if attr.TypeID == typeID {
			return attr, true
		}
	}
	return Attribute{}, false
}
