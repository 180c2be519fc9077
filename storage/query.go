package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"commgraph/core"
	"commgraph/metrics"

	"go.uber.org/zap"
)

// QueryEngine answers filtered questions over the relationship graph:
// which accounts communicated on which devices, and the evidence behind
// those edges. Filters compose by conjunction; sub-filters that do not
// apply to a given query shape are ignored rather than rejected.
type QueryEngine struct {
	sqlite      *SQLite
	accounts    *AccountStore
	registry    *AccountTypeRegistry
	datasources *DataSourceStore
	logger      *zap.SugaredLogger
}

func NewQueryEngine(sqlite *SQLite, accounts *AccountStore, registry *AccountTypeRegistry, datasources *DataSourceStore, logger *zap.SugaredLogger) *QueryEngine {
	return &QueryEngine{
		sqlite:      sqlite,
		accounts:    accounts,
		registry:    registry,
		datasources: datasources,
		logger:      logger,
	}
}

// inPlaceholders returns "?, ?, ..." with n placeholders.
func inPlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// subFilterClause renders one sub-filter as a parameterized fragment.
func (q *QueryEngine) subFilterClause(sub core.SubFilter) (string, []any) {
	switch f := sub.(type) {
	case core.DeviceFilter:
		if len(f.DeviceIDs) == 0 {
			return "", nil
		}
		args := make([]any, len(f.DeviceIDs))
		for i, id := range f.DeviceIDs {
			args[i] = id
		}
		return fmt.Sprintf("data_sources.device_id IN (%s)", inPlaceholders(len(f.DeviceIDs))), args
	case core.AccountTypeFilter:
		if len(f.TypeNames) == 0 {
			return "", nil
		}
		// Unknown type names resolve to the 0 sentinel, which matches no
		// account row.
		ids := make([]int64, len(f.TypeNames))
		for i, name := range f.TypeNames {
			ids[i] = q.registry.TypeID(name)
		}
		return fmt.Sprintf("accounts.account_type_id IN (%s)", inPlaceholders(len(ids))), int64Args(ids)
	case core.RelationshipTypeFilter:
		if len(f.ArtifactTypeIDs) == 0 {
			return "", nil
		}
		return fmt.Sprintf("artifacts.artifact_type_id IN (%s)", inPlaceholders(len(f.ArtifactTypeIDs))), int64Args(f.ArtifactTypeIDs)
	default:
		return "", nil
	}
}

// filterClause renders the conjunction of the applicable sub-filters of a
// filter, parenthesized, or "" when nothing restricts the query. Order of
// sub-filters never changes the result set.
func (q *QueryEngine) filterClause(filter *core.CommunicationsFilter, applicable map[core.FilterKind]bool) (string, []any) {
	if filter.IsEmpty() {
		return "", nil
	}

	var fragments []string
	var args []any
	for _, sub := range filter.And {
		if !applicable[sub.Kind()] {
			continue
		}
		fragment, fragmentArgs := q.subFilterClause(sub)
		if fragment == "" {
			continue
		}
		fragments = append(fragments, "("+fragment+")")
		args = append(args, fragmentArgs...)
	}
	if len(fragments) == 0 {
		return "", nil
	}
	return "(" + strings.Join(fragments, " AND ") + ")", args
}

// AccountDeviceInstancesWithCommunications returns every (account, device)
// pair where the account participates in at least one communication
// evidenced on that device. Applicable sub-filters: device, account type.
func (q *QueryEngine) AccountDeviceInstancesWithCommunications(ctx context.Context, filter *core.CommunicationsFilter) ([]core.AccountDeviceInstance, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("account_device_instances").Observe(time.Since(start).Seconds())
	}()

	typeIDs := core.CommunicationArtifactTypeIDs
	typePlaceholders := inPlaceholders(len(typeIDs))

	query := fmt.Sprintf(`
		SELECT DISTINCT accounts.account_id, data_sources.device_id
		FROM accounts
		JOIN account_to_instances_map ON account_to_instances_map.account_id = accounts.account_id
		JOIN artifacts ON artifacts.artifact_id = account_to_instances_map.account_instance_id
		JOIN data_sources ON data_sources.obj_id = artifacts.data_source_obj_id
		WHERE accounts.account_id IN (
			SELECT DISTINCT r.account1_id
			FROM relationships r
			JOIN artifacts ra ON ra.artifact_id = r.communication_artifact_id
			WHERE ra.artifact_type_id IN (%s)
			UNION
			SELECT DISTINCT r.account2_id
			FROM relationships r
			JOIN artifacts ra ON ra.artifact_id = r.communication_artifact_id
			WHERE ra.artifact_type_id IN (%s)
		)`, typePlaceholders, typePlaceholders)

	args := append(int64Args(typeIDs), int64Args(typeIDs)...)

	clause, clauseArgs := q.filterClause(filter, map[core.FilterKind]bool{
		core.FilterKindDevice:      true,
		core.FilterKindAccountType: true,
	})
	if clause != "" {
		query += " AND " + clause
		args = append(args, clauseArgs...)
	}

	rows, err := q.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query account device instances: %w", err)
	}

	type pair struct {
		accountID int64
		deviceID  string
	}
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.accountID, &p.deviceID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan account device instance: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to query account device instances: %w", err)
	}
	rows.Close()

	var instances []core.AccountDeviceInstance
	for _, p := range pairs {
		account, err := q.accounts.GetAccountByID(ctx, p.accountID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			continue
		}
		instances = append(instances, core.AccountDeviceInstance{Account: *account, DeviceID: p.deviceID})
	}
	return instances, nil
}

// RelationshipsCountByDevice counts relationship edges evidenced by
// artifacts on the given device. Applicable sub-filter: relationship type.
func (q *QueryEngine) RelationshipsCountByDevice(ctx context.Context, deviceID string, filter *core.CommunicationsFilter) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("relationships_count").Observe(time.Since(start).Seconds())
	}()

	dsObjIDs, err := q.datasources.DataSourceObjIDs(ctx, deviceID)
	if err != nil {
		return 0, err
	}
	if len(dsObjIDs) == 0 {
		return 0, nil
	}

	typeIDs := core.RelationshipArtifactTypeIDs

	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM relationships r
		JOIN artifacts ON artifacts.artifact_id = r.communication_artifact_id
		WHERE artifacts.data_source_obj_id IN (%s)
		  AND artifacts.artifact_type_id IN (%s)`,
		inPlaceholders(len(dsObjIDs)), inPlaceholders(len(typeIDs)))

	args := append(int64Args(dsObjIDs), int64Args(typeIDs)...)

	clause, clauseArgs := q.filterClause(filter, map[core.FilterKind]bool{
		core.FilterKindRelationshipType: true,
	})
	if clause != "" {
		query += " AND " + clause
		args = append(args, clauseArgs...)
	}

	var count int64
	if err := q.sqlite.ReadDB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count relationships for device %s: %w", deviceID, err)
	}
	return count, nil
}

// CommunicationsCount counts the distinct communication artifacts
// involving one account device instance. Applicable sub-filter:
// relationship type.
func (q *QueryEngine) CommunicationsCount(ctx context.Context, adi core.AccountDeviceInstance, filter *core.CommunicationsFilter) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("communications_count").Observe(time.Since(start).Seconds())
	}()

	clause, args, err := q.adiClause(ctx, adi)
	if err != nil {
		return 0, err
	}
	if clause == "" {
		return 0, nil
	}

	// A relationship-type restriction narrows the fixed communication
	// type set, never widens it.
	if filterFragment, filterArgs := q.filterClause(filter, map[core.FilterKind]bool{
		core.FilterKindRelationshipType: true,
	}); filterFragment != "" {
		clause += " AND " + filterFragment
		args = append(args, filterArgs...)
	}

	// Distinct artifact ids first, then count: one message with several
	// recipients yields several edges but one communication.
	query := `
		SELECT COUNT(*) FROM (
			SELECT DISTINCT artifacts.artifact_id
			FROM artifacts
			JOIN relationships r ON r.communication_artifact_id = artifacts.artifact_id
			WHERE ` + clause + `
		)`

	var count int64
	if err := q.sqlite.ReadDB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count communications for account %d: %w", adi.Account.ID, err)
	}
	return count, nil
}

// Communications returns the distinct communication artifacts involving
// any of the given account device instances. Applicable sub-filter:
// relationship type.
func (q *QueryEngine) Communications(ctx context.Context, adis []core.AccountDeviceInstance, filter *core.CommunicationsFilter) ([]core.Artifact, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("communications").Observe(time.Since(start).Seconds())
	}()

	if len(adis) == 0 {
		return nil, nil
	}

	var clauses []string
	var args []any
	for _, adi := range adis {
		clause, clauseArgs, err := q.adiClause(ctx, adi)
		if err != nil {
			return nil, err
		}
		if clause == "" {
			continue
		}
		clauses = append(clauses, "("+clause+")")
		args = append(args, clauseArgs...)
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	where := "(" + strings.Join(clauses, " OR ") + ")"
	if filterFragment, filterArgs := q.filterClause(filter, map[core.FilterKind]bool{
		core.FilterKindRelationshipType: true,
	}); filterFragment != "" {
		where += " AND " + filterFragment
		args = append(args, filterArgs...)
	}

	query := `
		SELECT DISTINCT artifacts.artifact_id, artifacts.obj_id, artifacts.data_source_obj_id, artifacts.artifact_type_id
		FROM artifacts
		JOIN relationships r ON r.communication_artifact_id = artifacts.artifact_id
		WHERE ` + where + `
		ORDER BY artifacts.artifact_id`

	rows, err := q.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query communications: %w", err)
	}
	return scanArtifactRows(rows)
}

// adiClause renders the restriction for one account device instance: the
// account on either end of the edge, the artifact on that device, of a
// communication type. Empty when the device has no data sources.
func (q *QueryEngine) adiClause(ctx context.Context, adi core.AccountDeviceInstance) (string, []any, error) {
	dsObjIDs, err := q.datasources.DataSourceObjIDs(ctx, adi.DeviceID)
	if err != nil {
		return "", nil, err
	}
	if len(dsObjIDs) == 0 {
		return "", nil, nil
	}

	typeIDs := core.CommunicationArtifactTypeIDs
	clause := fmt.Sprintf(
		"(r.account1_id = ? OR r.account2_id = ?) AND artifacts.data_source_obj_id IN (%s) AND artifacts.artifact_type_id IN (%s)",
		inPlaceholders(len(dsObjIDs)), inPlaceholders(len(typeIDs)))

	args := []any{adi.Account.ID, adi.Account.ID}
	args = append(args, int64Args(dsObjIDs)...)
	args = append(args, int64Args(typeIDs)...)
	return clause, args, nil
}
