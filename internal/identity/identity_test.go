package identity_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"e2estore/internal/cryptocore"
	"e2estore/internal/domain"
	"e2estore/internal/identity"
	"e2estore/internal/keyring"
	"e2estore/internal/notify"
	"e2estore/internal/service"
	"e2estore/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// countingDirectory records how often the operator key is fetched.
type countingDirectory struct {
	identity.Directory
	operatorReads atomic.Int32
}

func (d *countingDirectory) OperatorPublicKey(ctx context.Context) (string, error) {
	d.operatorReads.Add(1)
	return d.Directory.OperatorPublicKey(ctx)
}

func newDirectory(t *testing.T) *service.Service {
	t.Helper()
	return service.New(testutil.OpenStore(t), notify.NewHub(0))
}

func localPublicKey(t *testing.T, ids *identity.Store, role domain.Role) string {
	t.Helper()
	priv, ok, err := ids.LocalPrivateKey(context.Background(), role)
	require.NoError(t, err)
	require.True(t, ok)
	pub, err := cryptocore.PublicKeyOf(priv)
	require.NoError(t, err)
	return pub
}

func TestOperatorKeyCacheInvalidatedOnWrite(t *testing.T) {
	ctx := context.Background()
	dir := &countingDirectory{Directory: newDirectory(t)}
	ids := identity.NewStore(keyring.NewMemory(), dir)

	_, ok, err := ids.OperatorPublicKey(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	first, err := cryptocore.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, ids.SetOperatorPublicKey(ctx, first.PublicKey))

	for range 3 {
		got, ok, err := ids.OperatorPublicKey(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, first.PublicKey, got)
	}
	// One miss before publication, one fill after it.
	require.EqualValues(t, 2, dir.operatorReads.Load())

	second, err := cryptocore.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, ids.SetOperatorPublicKey(ctx, second.PublicKey))

	got, _, err := ids.OperatorPublicKey(ctx)
	require.NoError(t, err)
	require.Equal(t, second.PublicKey, got)
	require.EqualValues(t, 3, dir.operatorReads.Load())
}

// gatedDirectory holds operator key reads after the value is taken, so a
// write can land between the fetch and the cache fill.
type gatedDirectory struct {
	identity.Directory
	mu      sync.Mutex
	key     string
	gated   atomic.Bool
	fetched chan struct{}
	release chan struct{}
}

func (d *gatedDirectory) OperatorPublicKey(context.Context) (string, error) {
	d.mu.Lock()
	key := d.key
	d.mu.Unlock()
	if d.gated.Load() {
		d.fetched <- struct{}{}
		<-d.release
	}
	return key, nil
}

func (d *gatedDirectory) SetOperatorPublicKey(_ context.Context, key string) error {
	d.mu.Lock()
	d.key = key
	d.mu.Unlock()
	return nil
}

func TestOperatorKeyCacheRejectsFetchRacingWrite(t *testing.T) {
	ctx := context.Background()
	old, err := cryptocore.GenerateKeyPair()
	require.NoError(t, err)
	fresh, err := cryptocore.GenerateKeyPair()
	require.NoError(t, err)

	dir := &gatedDirectory{key: old.PublicKey, fetched: make(chan struct{}), release: make(chan struct{})}
	dir.gated.Store(true)
	ids := identity.NewStore(keyring.NewMemory(), dir)

	inFlight := make(chan string, 1)
	go func() {
		key, _, _ := ids.OperatorPublicKey(ctx)
		inFlight <- key
	}()
	<-dir.fetched

	require.NoError(t, ids.SetOperatorPublicKey(ctx, fresh.PublicKey))
	dir.gated.Store(false)
	close(dir.release)
	require.Equal(t, old.PublicKey, <-inFlight)

	got, ok, err := ids.OperatorPublicKey(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fresh.PublicKey, got)
}

func TestKeyCacheFillNeedsCurrentGeneration(t *testing.T) {
	var c identity.KeyCache
	_, ok := c.Get()
	require.False(t, ok)

	gen := c.Generation()
	c.Invalidate()
	require.False(t, c.Fill(gen, "stale"))
	_, ok = c.Get()
	require.False(t, ok)

	require.True(t, c.Fill(c.Generation(), "current"))
	got, ok := c.Get()
	require.True(t, ok)
	require.Equal(t, "current", got)

	c.Invalidate()
	_, ok = c.Get()
	require.False(t, ok)
}

func TestCustomerKeyIsNeverCached(t *testing.T) {
	ctx := context.Background()
	dir := newDirectory(t)
	ids := identity.NewStore(keyring.NewMemory(), dir)

	role, err := ids.EnsureCustomer(ctx, "")
	require.NoError(t, err)
	id, _ := role.CustomerID()

	before, ok, err := ids.PublicKey(ctx, role)
	require.NoError(t, err)
	require.True(t, ok)

	other, err := cryptocore.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, dir.UpdateCustomerPublicKey(ctx, id, other.PublicKey))

	after, _, err := ids.PublicKey(ctx, role)
	require.NoError(t, err)
	require.NotEqual(t, before, after)
	require.Equal(t, other.PublicKey, after)
}

func TestSetLocalPrivateKeyRejectsGarbage(t *testing.T) {
	ids := identity.NewStore(keyring.NewMemory(), newDirectory(t))
	err := ids.SetLocalPrivateKey(context.Background(), domain.OperatorRole(), `{"kty":"EC"}`)
	require.ErrorIs(t, err, cryptocore.ErrKeyFormat)
}

func TestEnsureCustomerBranches(t *testing.T) {
	ctx := context.Background()
	dir := newDirectory(t)

	t.Run("fresh device registers", func(t *testing.T) {
		kr := keyring.NewMemory()
		ids := identity.NewStore(kr, dir)

		role, err := ids.EnsureCustomer(ctx, "")
		require.NoError(t, err)
		id, ok := role.CustomerID()
		require.True(t, ok)

		published, err := dir.CustomerPublicKey(ctx, id)
		require.NoError(t, err)
		require.Equal(t, published, localPublicKey(t, ids, role))

		again, err := ids.EnsureCustomer(ctx, "")
		require.NoError(t, err)
		require.Equal(t, role, again)
		stillPublished, err := dir.CustomerPublicKey(ctx, id)
		require.NoError(t, err)
		require.Equal(t, published, stillPublished)
	})

	t.Run("known id and key links auth account", func(t *testing.T) {
		ids := identity.NewStore(keyring.NewMemory(), dir)
		role, err := ids.EnsureCustomer(ctx, "")
		require.NoError(t, err)

		linked, err := ids.EnsureCustomer(ctx, "acct-link")
		require.NoError(t, err)
		require.Equal(t, role, linked)

		id, _ := role.CustomerID()
		found, err := dir.CustomerByAuthAccount(ctx, "acct-link")
		require.NoError(t, err)
		require.Equal(t, id, found)
	})

	t.Run("lost key is regenerated under the same id", func(t *testing.T) {
		kr := keyring.NewMemory()
		ids := identity.NewStore(kr, dir)
		role, err := ids.EnsureCustomer(ctx, "")
		require.NoError(t, err)
		id, _ := role.CustomerID()
		old, err := dir.CustomerPublicKey(ctx, id)
		require.NoError(t, err)

		require.NoError(t, kr.DeletePrivateKey(ctx, role))

		again, err := ids.EnsureCustomer(ctx, "")
		require.NoError(t, err)
		require.Equal(t, role, again)

		current, err := dir.CustomerPublicKey(ctx, id)
		require.NoError(t, err)
		require.NotEqual(t, old, current)
		require.Equal(t, current, localPublicKey(t, ids, role))
	})

	t.Run("new device adopts customer linked to auth account", func(t *testing.T) {
		first := identity.NewStore(keyring.NewMemory(), dir)
		role, err := first.EnsureCustomer(ctx, "acct-adopt")
		require.NoError(t, err)

		kr := keyring.NewMemory()
		second := identity.NewStore(kr, dir)
		adopted, err := second.EnsureCustomer(ctx, "acct-adopt")
		require.NoError(t, err)
		require.Equal(t, role, adopted)

		id, _ := role.CustomerID()
		storedID, err := kr.CustomerID(ctx)
		require.NoError(t, err)
		require.Equal(t, id, storedID)

		current, err := dir.CustomerPublicKey(ctx, id)
		require.NoError(t, err)
		require.Equal(t, current, localPublicKey(t, second, adopted))
	})

	t.Run("unknown auth account registers and links", func(t *testing.T) {
		ids := identity.NewStore(keyring.NewMemory(), dir)
		role, err := ids.EnsureCustomer(ctx, "acct-new")
		require.NoError(t, err)

		id, _ := role.CustomerID()
		found, err := dir.CustomerByAuthAccount(ctx, "acct-new")
		require.NoError(t, err)
		require.Equal(t, id, found)
	})

	t.Run("stale local id registers again", func(t *testing.T) {
		kr := keyring.NewMemory()
		staleID := uuid.New()
		require.NoError(t, kr.SetCustomerID(ctx, staleID))

		ids := identity.NewStore(kr, dir)
		role, err := ids.EnsureCustomer(ctx, "")
		require.NoError(t, err)
		require.NotEqual(t, domain.CustomerRole(staleID), role)
	})
}

func TestEnsureOperatorPublishesOnce(t *testing.T) {
	ctx := context.Background()
	dir := newDirectory(t)
	ids := identity.NewStore(keyring.NewMemory(), dir)

	require.NoError(t, ids.EnsureOperator(ctx))
	published, err := dir.OperatorPublicKey(ctx)
	require.NoError(t, err)
	require.Equal(t, published, localPublicKey(t, ids, domain.OperatorRole()))

	require.NoError(t, ids.EnsureOperator(ctx))
	again, err := dir.OperatorPublicKey(ctx)
	require.NoError(t, err)
	require.Equal(t, published, again)
}

func TestImportAndRotate(t *testing.T) {
	ctx := context.Background()
	dir := newDirectory(t)
	ids := identity.NewStore(keyring.NewMemory(), dir)
	op := domain.OperatorRole()

	kp, err := cryptocore.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, ids.ImportPrivateKey(ctx, op, kp.PrivateKey))

	exported, err := ids.ExportPrivateKey(ctx, op)
	require.NoError(t, err)
	require.Equal(t, kp.PrivateKey, exported)
	published, _, err := ids.OperatorPublicKey(ctx)
	require.NoError(t, err)
	require.Equal(t, kp.PublicKey, published)

	rotated, err := ids.Rotate(ctx, op)
	require.NoError(t, err)
	require.NotEqual(t, kp.PublicKey, rotated.PublicKey)
	published, _, err = ids.OperatorPublicKey(ctx)
	require.NoError(t, err)
	require.Equal(t, rotated.PublicKey, published)

	require.ErrorIs(t, ids.ImportPrivateKey(ctx, op, "nope"), cryptocore.ErrKeyFormat)
}
