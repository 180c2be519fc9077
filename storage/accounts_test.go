package storage

import (
	"context"
	"sync"
	"testing"

	"commgraph/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateAccountDeduplicatesRawForms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.accounts.GetOrCreateAccount(ctx, core.AccountTypePhone, "+1 (555) 010-0001")
	require.NoError(t, err)
	assert.Equal(t, "+15550100001", first.UniqueID)

	second, err := env.accounts.GetOrCreateAccount(ctx, core.AccountTypePhone, "+1-555-010-0001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	accounts, err := env.accounts.GetAccounts(ctx, core.AccountTypePhone)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestGetOrCreateAccountDistinctTypesSameIdentifier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fb, err := env.accounts.GetOrCreateAccount(ctx, core.AccountTypeFacebook, "alice")
	require.NoError(t, err)
	ig, err := env.accounts.GetOrCreateAccount(ctx, core.AccountTypeInstagram, "alice")
	require.NoError(t, err)

	assert.NotEqual(t, fb.ID, ig.ID)
}

func TestGetOrCreateAccountConcurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const workers = 8
	ids := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			account, err := env.accounts.GetOrCreateAccount(ctx, core.AccountTypeEmail, "Bob@Example.COM")
			assert.NoError(t, err)
			if account != nil {
				ids[i] = account.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	var count int
	require.NoError(t, env.sqlite.ReadDB.QueryRow(
		`SELECT COUNT(*) FROM accounts`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetAccountAbsent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account, err := env.accounts.GetAccount(ctx, core.AccountTypePhone, "+15550009999")
	require.NoError(t, err)
	assert.Nil(t, account)

	byID, err := env.accounts.GetAccountByID(ctx, 12345)
	require.NoError(t, err)
	assert.Nil(t, byID)
}

func TestGetAccountNormalizesLookup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.accounts.GetOrCreateAccount(ctx, core.AccountTypeEmail, "Bob@Example.COM")
	require.NoError(t, err)

	found, err := env.accounts.GetAccount(ctx, core.AccountTypeEmail, "BOB@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "bob@example.com", found.UniqueID)
}

func TestGetOrCreateAccountUnknownType(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.GetOrCreateAccount(context.Background(),
		core.AccountType{TypeName: "unregistered"}, "someone")
	require.ErrorIs(t, err, ErrAccountTypeNotFound)
}

func TestGetAccountTypesInUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ds, err := env.datasources.AddDataSource(ctx, "dev-1", "image1")
	require.NoError(t, err)
	source := core.Content{ObjID: 100, DataSourceObjID: ds.ObjID}

	_, err = env.instances.CreateAccountInstance(ctx, core.AccountTypePhone, "+15550100001", "test-module", source)
	require.NoError(t, err)
	_, err = env.instances.CreateAccountInstance(ctx, core.AccountTypeEmail, "bob@example.com", "test-module", source)
	require.NoError(t, err)

	types, err := env.accounts.GetAccountTypesInUse(ctx)
	require.NoError(t, err)

	names := make([]string, len(types))
	for i, at := range types {
		names[i] = at.TypeName
	}
	assert.ElementsMatch(t, []string{"phone", "email"}, names)
}
