package core

// FilterKind tags each sub-filter variant. Queries declare the set of
// kinds they honor; sub-filters of other kinds are silently skipped.
type FilterKind int

const (
	FilterKindDevice FilterKind = iota + 1
	FilterKindAccountType
	FilterKindRelationshipType
)

// SubFilter is one composable predicate contributed to a query
// restriction. The variant set is closed: DeviceFilter, AccountTypeFilter
// and RelationshipTypeFilter. Each variant holds its own value set and is
// rendered to SQL by the storage layer.
type SubFilter interface {
	Kind() FilterKind
}

// DeviceFilter restricts results to accounts or communications observed on
// the listed devices. An empty list imposes no restriction.
type DeviceFilter struct {
	DeviceIDs []string
}

func (DeviceFilter) Kind() FilterKind { return FilterKindDevice }

// AccountTypeFilter restricts results to accounts of the listed types.
type AccountTypeFilter struct {
	TypeNames []string
}

func (AccountTypeFilter) Kind() FilterKind { return FilterKindAccountType }

// RelationshipTypeFilter restricts results to relationships evidenced by
// artifacts of the listed types.
type RelationshipTypeFilter struct {
	ArtifactTypeIDs []int64
}

func (RelationshipTypeFilter) Kind() FilterKind { return FilterKindRelationshipType }

// CommunicationsFilter is a conjunction of sub-filters. Each sub-filter
// may internally be a disjunction over its value set. A nil or empty
// filter means "no restriction", never "match nothing".
type CommunicationsFilter struct {
	And []SubFilter
}

// NewCommunicationsFilter builds a filter over the given sub-filters.
func NewCommunicationsFilter(subFilters ...SubFilter) *CommunicationsFilter {
	return &CommunicationsFilter{And: subFilters}
}

// IsEmpty reports whether the filter imposes no restriction at all.
func (f *CommunicationsFilter) IsEmpty() bool {
	return f == nil || len(f.And) == 0
}
