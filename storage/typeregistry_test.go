package storage

import (
	"context"
	"testing"

	"commgraph/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInitPredefinedTypesSeedsCatalogue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, want := range core.PredefinedAccountTypes() {
		got, err := env.registry.GetAccountType(ctx, want.TypeName)
		require.NoError(t, err)
		require.NotNil(t, got, "missing predefined type %s", want.TypeName)
		assert.Equal(t, want, *got)
	}
}

func TestInitPredefinedTypesIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.registry.InitPredefinedTypes(ctx))

	// A second registry over the same database must not duplicate rows.
	fresh, err := NewAccountTypeRegistry(env.sqlite, 0, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	require.NoError(t, fresh.InitPredefinedTypes(ctx))

	var count int
	require.NoError(t, env.sqlite.ReadDB.QueryRow(
		`SELECT COUNT(*) FROM account_types`).Scan(&count))
	assert.Equal(t, len(core.PredefinedAccountTypes()), count)
}

func TestAddAccountTypeFirstWriterWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.registry.AddAccountType(ctx, "skype", "Skype")
	require.NoError(t, err)
	assert.Equal(t, "Skype", first.DisplayName)

	second, err := env.registry.AddAccountType(ctx, "skype", "Skype Classic")
	require.NoError(t, err)
	assert.Equal(t, "Skype", second.DisplayName)

	// Same name registered through a cold registry still resolves to the
	// original row.
	fresh, err := NewAccountTypeRegistry(env.sqlite, 0, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	third, err := fresh.AddAccountType(ctx, "skype", "Something Else")
	require.NoError(t, err)
	assert.Equal(t, "Skype", third.DisplayName)
}

func TestGetAccountTypeUnknownReturnsNil(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.registry.GetAccountType(context.Background(), "no-such-type")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTypeIDSentinel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.Zero(t, env.registry.TypeID("no-such-type"))

	id := env.registry.TypeID(core.AccountTypePhone.TypeName)
	assert.NotZero(t, id)

	required, err := env.registry.RequireTypeID(ctx, core.AccountTypePhone.TypeName)
	require.NoError(t, err)
	assert.Equal(t, id, required)

	_, err = env.registry.RequireTypeID(ctx, "no-such-type")
	require.ErrorIs(t, err, ErrAccountTypeNotFound)
}

func TestRegistryCacheSurvivesColdStart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.registry.AddAccountType(ctx, "skype", "Skype")
	require.NoError(t, err)

	fresh, err := NewAccountTypeRegistry(env.sqlite, 0, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	require.NoError(t, fresh.InitPredefinedTypes(ctx))

	got, err := fresh.GetAccountType(ctx, "skype")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Skype", got.DisplayName)
	assert.NotZero(t, fresh.TypeID("skype"))
}
