package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"commgraph/core"
	"commgraph/metrics"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// defaultTypeCacheSize bounds the registry caches when the caller passes
// no explicit size.
const defaultTypeCacheSize = 256

// AccountTypeRegistry owns the mapping between account type identity and
// its persistent numeric id. Lookups are cached in memory and fall back to
// the store on a miss; every successful insert updates the cache. The
// caches are safe for concurrent use but not transactional with the
// store: a reader may see a transient "not found" for a type another
// writer is committing.
type AccountTypeRegistry struct {
	sqlite *SQLite
	logger *zap.SugaredLogger

	typesByName *lru.Cache[string, core.AccountType]
	idsByName   *lru.Cache[string, int64]
}

// NewAccountTypeRegistry creates a registry backed by the given store.
func NewAccountTypeRegistry(sqlite *SQLite, cacheSize int, logger *zap.SugaredLogger) (*AccountTypeRegistry, error) {
	if cacheSize <= 0 {
		cacheSize = defaultTypeCacheSize
	}

	typesByName, err := lru.New[string, core.AccountType](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create account type cache: %w", err)
	}
	idsByName, err := lru.New[string, int64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create account type id cache: %w", err)
	}

	return &AccountTypeRegistry{
		sqlite:      sqlite,
		logger:      logger,
		typesByName: typesByName,
		idsByName:   idsByName,
	}, nil
}

// InitPredefinedTypes loads the existing account type table into the
// caches and seeds any missing predefined types. Idempotent, and tolerant
// of a concurrent process seeding the same names: an insert losing the
// race degrades to a read of the surviving row.
func (r *AccountTypeRegistry) InitPredefinedTypes(ctx context.Context) error {
	if err := r.loadAll(ctx); err != nil {
		return err
	}

	for _, accountType := range core.PredefinedAccountTypes() {
		if r.typesByName.Contains(accountType.TypeName) {
			continue
		}
		if _, err := r.AddAccountType(ctx, accountType.TypeName, accountType.DisplayName); err != nil {
			return fmt.Errorf("failed to seed account type %q: %w", accountType.TypeName, err)
		}
	}

	return nil
}

// loadAll warms the caches from the account_types table.
func (r *AccountTypeRegistry) loadAll(ctx context.Context) error {
	rows, err := r.sqlite.ReadDB.QueryContext(ctx,
		`SELECT account_type_id, type_name, display_name FROM account_types`)
	if err != nil {
		return fmt.Errorf("failed to read account types: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id int64
		var typeName, displayName string
		if err := rows.Scan(&id, &typeName, &displayName); err != nil {
			return fmt.Errorf("failed to scan account type: %w", err)
		}
		r.cache(core.AccountType{TypeName: typeName, DisplayName: displayName}, id)
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read account types: %w", err)
	}

	if count > 0 {
		r.logger.Debugf("loaded %d account types", count)
	}
	return nil
}

// AddAccountType registers an account type, returning the existing type
// unchanged if the name is already known (first writer wins: a second
// caller's display name for an existing name is ignored).
func (r *AccountTypeRegistry) AddAccountType(ctx context.Context, typeName, displayName string) (core.AccountType, error) {
	if t, ok := r.typesByName.Get(typeName); ok {
		return t, nil
	}

	if t, _, err := r.lookup(ctx, typeName); err != nil {
		return core.AccountType{}, err
	} else if t != nil {
		return *t, nil
	}

	accountType := core.AccountType{TypeName: typeName, DisplayName: displayName}
	var typeID int64
	err := r.sqlite.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO account_types (type_name, display_name) VALUES (?, ?)`,
			typeName, displayName); err != nil {
			return err
		}
		// The insert does not return the generated id; read it back
		// inside the same transaction.
		return tx.QueryRowContext(ctx,
			`SELECT account_type_id FROM account_types WHERE type_name = ?`,
			typeName).Scan(&typeID)
	})
	if isUniqueConstraintErr(err) {
		// A concurrent writer registered the name first; return its row.
		t, id, lookupErr := r.lookup(ctx, typeName)
		if lookupErr != nil {
			return core.AccountType{}, lookupErr
		}
		if t == nil {
			return core.AccountType{}, fmt.Errorf("failed to add account type %q: %w", typeName, err)
		}
		r.cache(*t, id)
		return *t, nil
	}
	if err != nil {
		return core.AccountType{}, fmt.Errorf("failed to add account type %q: %w", typeName, err)
	}

	r.cache(accountType, typeID)
	return accountType, nil
}

// GetAccountType resolves a type name to its account type. A cache miss
// falls back to the store and populates the cache. Returns nil when the
// name is unknown in both; absence is not an error.
func (r *AccountTypeRegistry) GetAccountType(ctx context.Context, typeName string) (*core.AccountType, error) {
	if t, ok := r.typesByName.Get(typeName); ok {
		metrics.AccountTypeCacheHits.Inc()
		return &t, nil
	}
	metrics.AccountTypeCacheMisses.Inc()

	t, id, err := r.lookup(ctx, typeName)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	r.cache(*t, id)
	return t, nil
}

// TypeID returns the persistent numeric id for a type name from the cache
// alone, or 0 when unknown. Callers use it for best-effort filtering, so
// unknown is a sentinel rather than an error.
func (r *AccountTypeRegistry) TypeID(typeName string) int64 {
	if id, ok := r.idsByName.Get(typeName); ok {
		return id
	}
	return 0
}

// RequireTypeID resolves a type name to its persistent id, reading
// through to the store on a cache miss. Used by writers, which cannot
// proceed on the 0 sentinel.
func (r *AccountTypeRegistry) RequireTypeID(ctx context.Context, typeName string) (int64, error) {
	if id, ok := r.idsByName.Get(typeName); ok {
		return id, nil
	}

	t, id, err := r.lookup(ctx, typeName)
	if err != nil {
		return 0, err
	}
	if t == nil {
		return 0, fmt.Errorf("%w: %s", ErrAccountTypeNotFound, typeName)
	}
	r.cache(*t, id)
	return id, nil
}

// lookup reads one account type row; (nil, 0, nil) when absent.
func (r *AccountTypeRegistry) lookup(ctx context.Context, typeName string) (*core.AccountType, int64, error) {
	var id int64
	var displayName string
	err := r.sqlite.ReadDB.QueryRowContext(ctx,
		`SELECT account_type_id, display_name FROM account_types WHERE type_name = ?`,
		typeName).Scan(&id, &displayName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get account type %q: %w", typeName, err)
	}
	return &core.AccountType{TypeName: typeName, DisplayName: displayName}, id, nil
}

func (r *AccountTypeRegistry) cache(t core.AccountType, id int64) {
	r.typesByName.Add(t.TypeName, t)
	r.idsByName.Add(t.TypeName, id)
}
