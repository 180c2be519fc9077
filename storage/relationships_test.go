package storage

import (
	"context"
	"testing"

	"commgraph/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commFixture wires a data source and three account instances, the usual
// sender/recipients shape.
type commFixture struct {
	env    *testEnv
	ds     *core.DataSource
	sender *core.AccountInstance
	rcpt1  *core.AccountInstance
	rcpt2  *core.AccountInstance
}

func newCommFixture(t *testing.T) *commFixture {
	t.Helper()
	env := newTestEnv(t)
	ctx := context.Background()

	ds, err := env.datasources.AddDataSource(ctx, "dev-1", "image1")
	require.NoError(t, err)
	source := core.Content{ObjID: 100, DataSourceObjID: ds.ObjID}

	sender, err := env.instances.CreateAccountInstance(ctx, core.AccountTypePhone, "+15550100001", "test-module", source)
	require.NoError(t, err)
	rcpt1, err := env.instances.CreateAccountInstance(ctx, core.AccountTypePhone, "+15550100002", "test-module", source)
	require.NoError(t, err)
	rcpt2, err := env.instances.CreateAccountInstance(ctx, core.AccountTypeEmail, "bob@example.com", "test-module", source)
	require.NoError(t, err)

	return &commFixture{env: env, ds: ds, sender: sender, rcpt1: rcpt1, rcpt2: rcpt2}
}

func (f *commFixture) newMessage(t *testing.T, objID int64) *core.Artifact {
	t.Helper()
	artifact, err := f.env.artifacts.NewArtifact(context.Background(), core.ArtifactTypeMessage,
		core.Content{ObjID: objID, DataSourceObjID: f.ds.ObjID})
	require.NoError(t, err)
	return artifact
}

func TestAddRelationshipsPairwise(t *testing.T) {
	f := newCommFixture(t)
	ctx := context.Background()

	message := f.newMessage(t, 101)
	err := f.env.graph.AddRelationships(ctx, f.sender,
		[]core.AccountInstance{*f.rcpt1, *f.rcpt2}, *message)
	require.NoError(t, err)

	// Three participants yield all three unordered pairs.
	var count int
	require.NoError(t, f.env.sqlite.ReadDB.QueryRow(
		`SELECT COUNT(*) FROM relationships`).Scan(&count))
	assert.Equal(t, 3, count)
}

func TestAddRelationshipsReplayIsIdempotent(t *testing.T) {
	f := newCommFixture(t)
	ctx := context.Background()

	message := f.newMessage(t, 101)
	recipients := []core.AccountInstance{*f.rcpt1, *f.rcpt2}
	require.NoError(t, f.env.graph.AddRelationships(ctx, f.sender, recipients, *message))
	require.NoError(t, f.env.graph.AddRelationships(ctx, f.sender, recipients, *message))

	var count int
	require.NoError(t, f.env.sqlite.ReadDB.QueryRow(
		`SELECT COUNT(*) FROM relationships`).Scan(&count))
	assert.Equal(t, 3, count)
}

func TestAddRelationshipsNoRecipients(t *testing.T) {
	f := newCommFixture(t)

	message := f.newMessage(t, 101)
	err := f.env.graph.AddRelationships(context.Background(), f.sender, nil, *message)
	require.ErrorIs(t, err, ErrNoRecipients)
}

func TestAddRelationshipsNilSender(t *testing.T) {
	f := newCommFixture(t)
	ctx := context.Background()

	message := f.newMessage(t, 101)
	err := f.env.graph.AddRelationships(ctx, nil,
		[]core.AccountInstance{*f.rcpt1, *f.rcpt2}, *message)
	require.NoError(t, err)

	// Only the recipient-recipient edge.
	var count int
	require.NoError(t, f.env.sqlite.ReadDB.QueryRow(
		`SELECT COUNT(*) FROM relationships`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestAddRelationshipsSelfPairSkipped(t *testing.T) {
	f := newCommFixture(t)
	ctx := context.Background()

	message := f.newMessage(t, 101)
	// Sender messaging itself produces no edge.
	err := f.env.graph.AddRelationships(ctx, f.sender,
		[]core.AccountInstance{*f.sender}, *message)
	require.NoError(t, err)

	var count int
	require.NoError(t, f.env.sqlite.ReadDB.QueryRow(
		`SELECT COUNT(*) FROM relationships`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestGetRelationshipsSymmetric(t *testing.T) {
	f := newCommFixture(t)
	ctx := context.Background()

	message := f.newMessage(t, 101)
	require.NoError(t, f.env.graph.AddRelationships(ctx, f.sender,
		[]core.AccountInstance{*f.rcpt1}, *message))

	forward, err := f.env.graph.GetRelationships(ctx, f.sender.Account, f.rcpt1.Account)
	require.NoError(t, err)
	reverse, err := f.env.graph.GetRelationships(ctx, f.rcpt1.Account, f.sender.Account)
	require.NoError(t, err)

	require.Len(t, forward, 1)
	assert.Equal(t, message.ID, forward[0].ID)
	assert.Equal(t, forward, reverse)
}

func TestGetRelationshipTypes(t *testing.T) {
	f := newCommFixture(t)
	ctx := context.Background()

	message := f.newMessage(t, 101)
	require.NoError(t, f.env.graph.AddRelationships(ctx, f.sender,
		[]core.AccountInstance{*f.rcpt1}, *message))

	callLog, err := f.env.artifacts.NewArtifact(ctx, core.ArtifactTypeCallLog,
		core.Content{ObjID: 102, DataSourceObjID: f.ds.ObjID})
	require.NoError(t, err)
	require.NoError(t, f.env.graph.AddRelationships(ctx, f.sender,
		[]core.AccountInstance{*f.rcpt1}, *callLog))

	types, err := f.env.graph.GetRelationshipTypes(ctx, f.sender.Account, f.rcpt1.Account)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{core.ArtifactTypeMessage, core.ArtifactTypeCallLog}, types)

	messages, err := f.env.graph.GetRelationshipsOfType(ctx, f.sender.Account, f.rcpt1.Account, core.ArtifactTypeMessage)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, message.ID, messages[0].ID)
}

func TestGetAccountsWithRelationship(t *testing.T) {
	f := newCommFixture(t)
	ctx := context.Background()

	message := f.newMessage(t, 101)
	require.NoError(t, f.env.graph.AddRelationships(ctx, f.sender,
		[]core.AccountInstance{*f.rcpt1, *f.rcpt2}, *message))

	related, err := f.env.graph.GetAccountsWithRelationship(ctx, f.sender.Account.ID)
	require.NoError(t, err)

	ids := make([]int64, len(related))
	for i, a := range related {
		ids[i] = a.ID
	}
	assert.ElementsMatch(t, []int64{f.rcpt1.Account.ID, f.rcpt2.Account.ID}, ids)

	// Replaying the artifact must not duplicate neighbors.
	require.NoError(t, f.env.graph.AddRelationships(ctx, f.sender,
		[]core.AccountInstance{*f.rcpt1, *f.rcpt2}, *message))
	related, err = f.env.graph.GetAccountsWithRelationship(ctx, f.sender.Account.ID)
	require.NoError(t, err)
	assert.Len(t, related, 2)
}

func TestAccountsForArtifact(t *testing.T) {
	f := newCommFixture(t)
	ctx := context.Background()

	message := f.newMessage(t, 101)
	require.NoError(t, f.env.graph.AddRelationships(ctx, f.sender,
		[]core.AccountInstance{*f.rcpt1, *f.rcpt2}, *message))

	accounts, err := f.env.graph.AccountsForArtifact(ctx, message.ID)
	require.NoError(t, err)

	// Three edges, two endpoints each.
	assert.Len(t, accounts, 6)
	ids := make(map[int64]bool)
	for _, a := range accounts {
		ids[a.ID] = true
	}
	assert.True(t, ids[f.sender.Account.ID])
	assert.True(t, ids[f.rcpt1.Account.ID])
	assert.True(t, ids[f.rcpt2.Account.ID])
}
