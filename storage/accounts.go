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

// AccountStore persists deduplicated account identities. An account is
// unique on (type, normalized identifier): two observations of the same
// phone number in different raw formats resolve to one row.
type AccountStore struct {
	sqlite   *SQLite
	registry *AccountTypeRegistry
	logger   *zap.SugaredLogger
}

func NewAccountStore(sqlite *SQLite, registry *AccountTypeRegistry, logger *zap.SugaredLogger) *AccountStore {
	return &AccountStore{sqlite: sqlite, registry: registry, logger: logger}
}

// GetOrCreateAccount resolves (type, raw identifier) to the canonical
// account, creating it on first sight. The identifier is normalized
// before lookup, so callers may pass any raw form. Safe under concurrent
// callers: an insert losing the unique race degrades to a read of the
// winning row.
func (s *AccountStore) GetOrCreateAccount(ctx context.Context, accountType core.AccountType, rawID string) (*core.Account, error) {
	normalizedID := core.NormalizeAccountID(accountType, rawID)

	account, err := s.getAccountNormalized(ctx, accountType, normalizedID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	typeID, err := s.registry.RequireTypeID(ctx, accountType.TypeName)
	if err != nil {
		return nil, err
	}

	var accountID int64
	err = s.sqlite.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (account_type_id, account_unique_identifier) VALUES (?, ?)`,
			typeID, normalizedID); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			`SELECT account_id FROM accounts WHERE account_type_id = ? AND account_unique_identifier = ?`,
			typeID, normalizedID).Scan(&accountID)
	})
	if isUniqueConstraintErr(err) {
		account, lookupErr := s.getAccountNormalized(ctx, accountType, normalizedID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if account == nil {
			return nil, fmt.Errorf("failed to create account %s/%s: %w", accountType.TypeName, normalizedID, err)
		}
		return account, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account %s/%s: %w", accountType.TypeName, normalizedID, err)
	}

	metrics.AccountsCreated.Inc()
	s.logger.Debugf("created account %s/%s (id %d)", accountType.TypeName, normalizedID, accountID)

	return &core.Account{ID: accountID, Type: accountType, UniqueID: normalizedID}, nil
}

// GetAccount resolves (type, raw identifier) to the stored account, or
// nil when never seen. The identifier is normalized before lookup.
func (s *AccountStore) GetAccount(ctx context.Context, accountType core.AccountType, rawID string) (*core.Account, error) {
	return s.getAccountNormalized(ctx, accountType, core.NormalizeAccountID(accountType, rawID))
}

func (s *AccountStore) getAccountNormalized(ctx context.Context, accountType core.AccountType, normalizedID string) (*core.Account, error) {
	var accountID int64
	var displayName string
	err := s.sqlite.ReadDB.QueryRowContext(ctx,
		`SELECT a.account_id, t.display_name
		 FROM accounts a
		 JOIN account_types t ON a.account_type_id = t.account_type_id
		 WHERE t.type_name = ? AND a.account_unique_identifier = ?`,
		accountType.TypeName, normalizedID).Scan(&accountID, &displayName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s/%s: %w", accountType.TypeName, normalizedID, err)
	}

	return &core.Account{
		ID:       accountID,
		Type:     core.AccountType{TypeName: accountType.TypeName, DisplayName: displayName},
		UniqueID: normalizedID,
	}, nil
}

// GetAccountByID loads an account by its row id, or nil when unknown.
func (s *AccountStore) GetAccountByID(ctx context.Context, accountID int64) (*core.Account, error) {
	var account core.Account
	err := s.sqlite.ReadDB.QueryRowContext(ctx,
		`SELECT a.account_id, t.type_name, t.display_name, a.account_unique_identifier
		 FROM accounts a
		 JOIN account_types t ON a.account_type_id = t.account_type_id
		 WHERE a.account_id = ?`,
		accountID).Scan(&account.ID, &account.Type.TypeName, &account.Type.DisplayName, &account.UniqueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", accountID, err)
	}
	return &account, nil
}

// GetAccounts returns all accounts of one type.
func (s *AccountStore) GetAccounts(ctx context.Context, accountType core.AccountType) ([]core.Account, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		`SELECT a.account_id, t.type_name, t.display_name, a.account_unique_identifier
		 FROM accounts a
		 JOIN account_types t ON a.account_type_id = t.account_type_id
		 WHERE t.type_name = ?
		 ORDER BY a.account_id`,
		accountType.TypeName)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts of type %s: %w", accountType.TypeName, err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Type.TypeName, &a.Type.DisplayName, &a.UniqueID); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get accounts of type %s: %w", accountType.TypeName, err)
	}
	return accounts, nil
}

// GetAccountTypesInUse returns the distinct account types named by the
// account instance artifacts in the case. A type observed in evidence may
// not be registered in the catalogue; unknown names are returned with an
// empty display name.
func (s *AccountStore) GetAccountTypesInUse(ctx context.Context) ([]core.AccountType, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		`SELECT DISTINCT value_text FROM artifact_attributes WHERE attribute_type_id = ?`,
		core.AttributeTypeAccountTypeName)
	if err != nil {
		return nil, fmt.Errorf("failed to get account types in use: %w", err)
	}
	defer rows.Close()

	var typeNames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan account type name: %w", err)
		}
		typeNames = append(typeNames, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get account types in use: %w", err)
	}

	var types []core.AccountType
	for _, name := range typeNames {
		t, err := s.registry.GetAccountType(ctx, name)
		if err != nil {
			return nil, err
		}
		if t == nil {
			t = &core.AccountType{TypeName: name}
		}
		types = append(types, *t)
	}
	return types, nil
}
