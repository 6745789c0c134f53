package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoitoportaali/internal/auth"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStoreLoadMissingSlot(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client)

	_, err := store.Load(context.Background(), "c1", auth.KindStaff)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestRedisStoreKeepsKindsApart(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "c1", auth.KindStaff, &Snapshot{ID: "s", Username: "laakari"}))
	require.NoError(t, store.Save(ctx, "c1", auth.KindPatient, &Snapshot{ID: "p", Role: "patient", PatientID: "P-1"}))
	assert.True(t, mr.Exists("hoitoportaali:session:c1:staff"))
	assert.True(t, mr.Exists("hoitoportaali:session:c1:patient"))

	snap, err := store.Load(ctx, "c1", auth.KindStaff)
	require.NoError(t, err)
	assert.Equal(t, "laakari", snap.Username)
	snap, err = store.Load(ctx, "c1", auth.KindPatient)
	require.NoError(t, err)
	assert.Equal(t, "P-1", snap.PatientID)

	require.NoError(t, store.Delete(ctx, "c1", auth.KindStaff))
	_, err = store.Load(ctx, "c1", auth.KindStaff)
	assert.ErrorIs(t, err, ErrNoSnapshot)
	_, err = store.Load(ctx, "c1", auth.KindPatient)
	assert.NoError(t, err, "deleting one kind leaves the other")

	_, err = store.Load(ctx, "c2", auth.KindPatient)
	assert.ErrorIs(t, err, ErrNoSnapshot, "slots are per client")
}

func TestRedisStoreTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	store := NewRedisStore(client).WithClock(func() time.Time { return now })
	ctx := context.Background()

	later := now.Add(time.Hour)
	require.NoError(t, store.Save(ctx, "c1", auth.KindStaff, &Snapshot{ID: "s", ExpiresAt: &later}))
	assert.Equal(t, time.Hour, mr.TTL("hoitoportaali:session:c1:staff"))

	past := now.Add(-time.Minute)
	require.NoError(t, store.Save(ctx, "c2", auth.KindStaff, &Snapshot{ID: "s", ExpiresAt: &past}))
	assert.Equal(t, time.Second, mr.TTL("hoitoportaali:session:c2:staff"), "already expired snapshots still get a TTL")

	require.NoError(t, store.Save(ctx, "c3", auth.KindPatient, &Snapshot{ID: "p", Role: "patient"}))
	assert.Zero(t, mr.TTL("hoitoportaali:session:c3:patient"), "no expiry means no TTL")

	mr.FastForward(2 * time.Second)
	_, err := store.Load(ctx, "c2", auth.KindStaff)
	assert.ErrorIs(t, err, ErrNoSnapshot)
	_, err = store.Load(ctx, "c1", auth.KindStaff)
	assert.NoError(t, err)
}

func newRedisFixture(t *testing.T) *fixture {
	t.Helper()
	_, client := newTestRedis(t)
	return newFixtureWith(t, func(clock func() time.Time) SnapshotStore {
		return NewRedisStore(client).WithClock(clock)
	})
}

func TestRedisStoreSingleSessionPerClient(t *testing.T) {
	f := newRedisFixture(t)
	ctx := context.Background()

	ok, err := f.manager.Login(ctx, "c1", "laakari", "oikea")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.manager.LoginAsPatient(ctx, "c1", "potilas", "oikea")
	require.NoError(t, err)
	require.True(t, ok)
	_, err = f.snapshots.Load(ctx, "c1", auth.KindStaff)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	state, err := f.manager.State(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, PatientSession, state)

	ok, err = f.manager.Login(ctx, "c1", "laakari", "oikea")
	require.NoError(t, err)
	require.True(t, ok)
	_, err = f.snapshots.Load(ctx, "c1", auth.KindPatient)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	sess, err := f.manager.Restore(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "laakari", sess.Username)
	assert.Equal(t, "Cardiologist", sess.JobTitle)
}

func TestRedisStoreRestoreDiscardsExpiredSnapshot(t *testing.T) {
	f := newRedisFixture(t)
	ctx := context.Background()

	ok, err := f.manager.Login(ctx, "c1", "laakari", "oikea")
	require.NoError(t, err)
	require.True(t, ok)

	f.now = f.now.Add(2 * time.Hour)

	sess, err := f.manager.Restore(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, sess)
	_, err = f.snapshots.Load(ctx, "c1", auth.KindStaff)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	sess, err = f.manager.Restore(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, sess)
}
