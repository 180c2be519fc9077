package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"commgraph/core"
	"commgraph/metrics"

	"go.uber.org/zap"
)

// AccountInstanceLinker records observations of accounts in evidence
// sources. Each observation is backed by an account marker artifact keyed
// by (source object, account type, normalized identifier): re-reporting
// the same account from the same source is idempotent, while a sighting in
// a new source produces a new marker for the same canonical account.
type AccountInstanceLinker struct {
	sqlite    *SQLite
	accounts  *AccountStore
	artifacts *ArtifactStore
	logger    *zap.SugaredLogger
}

func NewAccountInstanceLinker(sqlite *SQLite, accounts *AccountStore, artifacts *ArtifactStore, logger *zap.SugaredLogger) *AccountInstanceLinker {
	return &AccountInstanceLinker{
		sqlite:    sqlite,
		accounts:  accounts,
		artifacts: artifacts,
		logger:    logger,
	}
}

// CreateAccountInstance records that an account was observed in source,
// returning the instance. moduleName names the extraction module for
// attribute provenance.
func (l *AccountInstanceLinker) CreateAccountInstance(ctx context.Context, accountType core.AccountType, rawID, moduleName string, source core.Content) (*core.AccountInstance, error) {
	account, err := l.accounts.GetOrCreateAccount(ctx, accountType, rawID)
	if err != nil {
		return nil, err
	}

	artifact, err := l.getOrCreateInstanceArtifact(ctx, accountType, account.UniqueID, moduleName, source)
	if err != nil {
		return nil, err
	}

	if err := l.addInstanceMapping(ctx, account.ID, artifact.ID); err != nil {
		return nil, err
	}

	return &core.AccountInstance{Artifact: *artifact, Account: *account}, nil
}

// getOrCreateInstanceArtifact finds the marker artifact for this account
// in this source, creating it if absent.
func (l *AccountInstanceLinker) getOrCreateInstanceArtifact(ctx context.Context, accountType core.AccountType, normalizedID, moduleName string, source core.Content) (*core.Artifact, error) {
	var artifactID int64
	err := l.sqlite.ReadDB.QueryRowContext(ctx,
		`SELECT a.artifact_id
		 FROM artifacts a
		 JOIN artifact_attributes tn ON tn.artifact_id = a.artifact_id
		   AND tn.attribute_type_id = ? AND tn.value_text = ?
		 JOIN artifact_attributes ai ON ai.artifact_id = a.artifact_id
		   AND ai.attribute_type_id = ? AND ai.value_text = ?
		 WHERE a.obj_id = ? AND a.artifact_type_id = ?`,
		core.AttributeTypeAccountTypeName, accountType.TypeName,
		core.AttributeTypeAccountID, normalizedID,
		source.ObjID, core.ArtifactTypeAccount).Scan(&artifactID)
	if err == nil {
		return l.artifacts.GetArtifact(ctx, artifactID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up account instance artifact: %w", err)
	}

	artifact, err := l.artifacts.NewArtifact(ctx, core.ArtifactTypeAccount, source)
	if err != nil {
		return nil, err
	}

	attrs := []core.Attribute{
		{TypeID: core.AttributeTypeAccountTypeName, Source: moduleName, ValueText: accountType.TypeName},
		{TypeID: core.AttributeTypeAccountID, Source: moduleName, ValueText: normalizedID},
	}
	if err := l.artifacts.AddAttributes(ctx, artifact.ID, attrs); err != nil {
		return nil, err
	}
	artifact.Attributes = attrs

	metrics.AccountInstancesCreated.Inc()
	l.logger.Debugf("created account instance artifact %d for %s/%s in obj %d",
		artifact.ID, accountType.TypeName, normalizedID, source.ObjID)

	return artifact, nil
}

// addInstanceMapping links an account to its instance artifact.
// Idempotent on replay.
func (l *AccountInstanceLinker) addInstanceMapping(ctx context.Context, accountID, artifactID int64) error {
	err := l.sqlite.WithTransaction(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO account_to_instances_map (account_id, account_instance_id) VALUES (?, ?)`,
			accountID, artifactID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to map account %d to instance artifact %d: %w", accountID, artifactID, err)
	}
	return nil
}

// GetAccountInstance resolves an account marker artifact back to its
// instance. Returns ErrNotAccountArtifact when the artifact is of a
// different type, and nil when the artifact's account is not in the store.
func (l *AccountInstanceLinker) GetAccountInstance(ctx context.Context, artifact core.Artifact) (*core.AccountInstance, error) {
	if artifact.TypeID != core.ArtifactTypeAccount {
		return nil, fmt.Errorf("%w: artifact %d has type %d", ErrNotAccountArtifact, artifact.ID, artifact.TypeID)
	}

	typeName, ok := artifact.Attribute(core.AttributeTypeAccountTypeName)
	if !ok {
		return nil, fmt.Errorf("account artifact %d missing account type attribute", artifact.ID)
	}
	accountID, ok := artifact.Attribute(core.AttributeTypeAccountID)
	if !ok {
		return nil, fmt.Errorf("account artifact %d missing account id attribute", artifact.ID)
	}

	account, err := l.accounts.GetAccount(ctx, core.AccountType{TypeName: typeName.ValueText}, accountID.ValueText)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}

	return &core.AccountInstance{Artifact: artifact, Account: *account}, nil
}

// GetAccountInstances returns every recorded instance of every account of
// the given type.
func (l *AccountInstanceLinker) GetAccountInstances(ctx context.Context, accountType core.AccountType) ([]core.AccountInstance, error) {
	rows, err := l.sqlite.ReadDB.QueryContext(ctx,
		`SELECT m.account_id, m.account_instance_id
		 FROM account_to_instances_map m
		 JOIN accounts a ON a.account_id = m.account_id
		 JOIN account_types t ON t.account_type_id = a.account_type_id
		 WHERE t.type_name = ?
		 ORDER BY m.account_instance_id`,
		accountType.TypeName)
	if err != nil {
		return nil, fmt.Errorf("failed to get account instances of type %s: %w", accountType.TypeName, err)
	}

	type mapping struct{ accountID, artifactID int64 }
	var mappings []mapping
	for rows.Next() {
		var m mapping
		if err := rows.Scan(&m.accountID, &m.artifactID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan account instance mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to get account instances of type %s: %w", accountType.TypeName, err)
	}
	rows.Close()

	var instances []core.AccountInstance
	for _, m := range mappings {
		account, err := l.accounts.GetAccountByID(ctx, m.accountID)
		if err != nil {
			return nil, err
		}
		artifact, err := l.artifacts.GetArtifact(ctx, m.artifactID)
		if err != nil {
			return nil, err
		}
		if account == nil || artifact == nil {
			continue
		}
		instances = append(instances, core.AccountInstance{Artifact: *artifact, Account: *account})
	}
	return instances, nil
}
