package storage

import (
	"context"
	"database/sql"
	"fmt"

	"commgraph/core"
	"commgraph/metrics"

	"go.uber.org/zap"
)

// RelationshipGraphStore persists the undirected relationship edge set.
// An edge is (canonical account pair, evidencing artifact); replaying the
// same artifact never duplicates edges.
type RelationshipGraphStore struct {
	sqlite   *SQLite
	accounts *AccountStore
	logger   *zap.SugaredLogger
}

func NewRelationshipGraphStore(sqlite *SQLite, accounts *AccountStore, logger *zap.SugaredLogger) *RelationshipGraphStore {
	return &RelationshipGraphStore{sqlite: sqlite, accounts: accounts, logger: logger}
}

// AddRelationships records the pairwise relationships among sender and
// recipients evidenced by one communication artifact. Edges are written
// for every unordered pair of distinct participants, in one transaction.
// A nil sender records edges among the recipients alone.
func (s *RelationshipGraphStore) AddRelationships(ctx context.Context, sender *core.AccountInstance, recipients []core.AccountInstance, communicationArtifact core.Artifact) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	accountIDs := make([]int64, 0, len(recipients)+1)
	if sender != nil {
		accountIDs = append(accountIDs, sender.Account.ID)
	}
	for _, r := range recipients {
		accountIDs = append(accountIDs, r.Account.ID)
	}

	pairs := core.UnorderedPairsOf(accountIDs)
	if len(pairs) == 0 {
		return nil
	}

	err := s.sqlite.WithTransaction(func(tx *sql.Tx) error {
		for _, p := range pairs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO relationships (account1_id, account2_id, communication_artifact_id) VALUES (?, ?, ?)`,
				p.First, p.Second, communicationArtifact.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add relationships for artifact %d: %w", communicationArtifact.ID, err)
	}

	metrics.RelationshipsAdded.Add(float64(len(pairs)))
	s.logger.Debugf("recorded %d relationship edges for artifact %d", len(pairs), communicationArtifact.ID)

	return nil
}

// GetRelationships returns the artifacts evidencing a relationship
// between two accounts, regardless of which side of the edge each is
// stored on.
func (s *RelationshipGraphStore) GetRelationships(ctx context.Context, account1, account2 core.Account) ([]core.Artifact, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		`SELECT a.artifact_id, a.obj_id, a.data_source_obj_id, a.artifact_type_id
		 FROM relationships r
		 JOIN artifacts a ON a.artifact_id = r.communication_artifact_id
		 WHERE r.account1_id IN (?, ?) AND r.account2_id IN (?, ?)
		 ORDER BY a.artifact_id`,
		account1.ID, account2.ID, account1.ID, account2.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationships between accounts %d and %d: %w", account1.ID, account2.ID, err)
	}
	return scanArtifactRows(rows)
}

// GetRelationshipsOfType returns relationship artifacts between two
// accounts restricted to one artifact type.
func (s *RelationshipGraphStore) GetRelationshipsOfType(ctx context.Context, account1, account2 core.Account, artifactTypeID int64) ([]core.Artifact, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		`SELECT a.artifact_id, a.obj_id, a.data_source_obj_id, a.artifact_type_id
		 FROM relationships r
		 JOIN artifacts a ON a.artifact_id = r.communication_artifact_id
		 WHERE r.account1_id IN (?, ?) AND r.account2_id IN (?, ?)
		   AND a.artifact_type_id = ?
		 ORDER BY a.artifact_id`,
		account1.ID, account2.ID, account1.ID, account2.ID, artifactTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationships between accounts %d and %d: %w", account1.ID, account2.ID, err)
	}
	return scanArtifactRows(rows)
}

// GetRelationshipTypes returns the distinct artifact types evidencing any
// relationship between two accounts.
func (s *RelationshipGraphStore) GetRelationshipTypes(ctx context.Context, account1, account2 core.Account) ([]int64, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		`SELECT DISTINCT a.artifact_type_id
		 FROM relationships r
		 JOIN artifacts a ON a.artifact_id = r.communication_artifact_id
		 WHERE r.account1_id IN (?, ?) AND r.account2_id IN (?, ?)
		 ORDER BY a.artifact_type_id`,
		account1.ID, account2.ID, account1.ID, account2.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship types between accounts %d and %d: %w", account1.ID, account2.ID, err)
	}
	defer rows.Close()

	var typeIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan relationship type: %w", err)
		}
		typeIDs = append(typeIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get relationship types: %w", err)
	}
	return typeIDs, nil
}

// GetAccountsWithRelationship returns the distinct accounts sharing at
// least one relationship edge with the given account.
func (s *RelationshipGraphStore) GetAccountsWithRelationship(ctx context.Context, accountID int64) ([]core.Account, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		`SELECT account1_id, account2_id FROM relationships
		 WHERE account1_id = ? OR account2_id = ?`,
		accountID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get related accounts for %d: %w", accountID, err)
	}

	seen := make(map[int64]bool)
	var otherIDs []int64
	for rows.Next() {
		var a1, a2 int64
		if err := rows.Scan(&a1, &a2); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		other := a1
		if a1 == accountID {
			other = a2
		}
		if !seen[other] {
			seen[other] = true
			otherIDs = append(otherIDs, other)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to get related accounts for %d: %w", accountID, err)
	}
	rows.Close()

	var accounts []core.Account
	for _, id := range otherIDs {
		account, err := s.accounts.GetAccountByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if account != nil {
			accounts = append(accounts, *account)
		}
	}
	return accounts, nil
}

// AccountsForArtifact returns the accounts on every edge evidenced by the
// given artifact. One account appears once per edge it sits on.
func (s *RelationshipGraphStore) AccountsForArtifact(ctx context.Context, artifactID int64) ([]core.Account, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		`SELECT account1_id, account2_id FROM relationships WHERE communication_artifact_id = ?`,
		artifactID)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts for artifact %d: %w", artifactID, err)
	}

	var accountIDs []int64
	for rows.Next() {
		var a1, a2 int64
		if err := rows.Scan(&a1, &a2); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		accountIDs = append(accountIDs, a1, a2)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to get accounts for artifact %d: %w", artifactID, err)
	}
	rows.Close()

	var accounts []core.Account
	for _, id := range accountIDs {
		account, err := s.accounts.GetAccountByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if account != nil {
			accounts = append(accounts, *account)
		}
	}
	return accounts, nil
}
