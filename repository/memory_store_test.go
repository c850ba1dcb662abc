package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wagerledger/address"
	"wagerledger/events"
	"wagerledger/models"
	"wagerledger/repository/testutil"
	"wagerledger/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CommitAppliesOverlay(t *testing.T) {
	store := NewMemoryStore(events.NewBus())
	factory := store.UnitOfWorkFactory()
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	repo := uow.AccountRepository()

	wallet := testutil.CreateTestWallet("alice", 500)
	require.NoError(t, repo.Create(ctx, wallet))

	// Visible inside the unit of work, invisible outside it
	inside, err := repo.Get(ctx, wallet.Address)
	require.NoError(t, err)
	require.NotNil(t, inside)
	outside, err := store.Get(ctx, wallet.Address)
	require.NoError(t, err)
	assert.Nil(t, outside)

	require.NoError(t, uow.Commit())

	committed, err := store.Get(ctx, wallet.Address)
	require.NoError(t, err)
	require.NotNil(t, committed)
	assert.Equal(t, uint64(500), committed.Lamports)
	assert.False(t, committed.CreatedAt.IsZero())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_RollbackDiscardsEverything(t *testing.T) {
	bus := events.NewBus()
	var emitted []events.EventType
	for _, eventType := range events.AllEventTypes {
		bus.SubscribeInline(eventType, func(_ context.Context, e events.Event) {
			emitted = append(emitted, e.Type())
		})
	}

	store := NewMemoryStore(bus)
	factory := store.UnitOfWorkFactory()
	ctx := context.Background()

	seed := factory.Create()
	require.NoError(t, seed.Begin(ctx))
	require.NoError(t, seed.AccountRepository().Create(ctx, testutil.CreateTestWallet("bob", 100)))
	require.NoError(t, seed.Commit())
	emitted = nil

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	repo := uow.AccountRepository()

	bob, err := repo.Get(ctx, testutil.TestAddress("bob"))
	require.NoError(t, err)
	bob.Lamports = 0
	require.NoError(t, repo.Update(ctx, bob))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestWallet("carol", 1)))
	uow.EventBus().Publish(events.WalletFundedEvent{Wallet: bob.Address})
	require.NoError(t, uow.Rollback())

	stored, err := store.Get(ctx, bob.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), stored.Lamports)

	carol, err := store.Get(ctx, testutil.TestAddress("carol"))
	require.NoError(t, err)
	assert.Nil(t, carol)
	assert.Empty(t, emitted)
}

func TestMemoryStore_DeleteAndList(t *testing.T) {
	store := NewMemoryStore(events.NewBus())
	factory := store.UnitOfWorkFactory()
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	repo := uow.AccountRepository()
	require.NoError(t, repo.Create(ctx, testutil.CreateTestVault("v1", 1)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestVault("v2", 2)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestWallet("w1", 3)))
	require.NoError(t, uow.Commit())

	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	repo = uow.AccountRepository()
	require.NoError(t, repo.Delete(ctx, testutil.TestAddress("v1")))

	// Tombstones hide committed accounts inside the unit of work
	gone, err := repo.Get(ctx, testutil.TestAddress("v1"))
	require.NoError(t, err)
	assert.Nil(t, gone)

	vaults, err := repo.ListByKind(ctx, models.AccountKindVault)
	require.NoError(t, err)
	require.Len(t, vaults, 1)
	assert.Equal(t, testutil.TestAddress("v2"), vaults[0].Address)

	assert.Error(t, repo.Delete(ctx, testutil.TestAddress("v1")))
	require.NoError(t, uow.Commit())

	vaults, err = store.ListByKind(ctx, models.AccountKindVault)
	require.NoError(t, err)
	assert.Len(t, vaults, 1)
}

func TestMemoryStore_CreateExisting(t *testing.T) {
	store := NewMemoryStore(events.NewBus())
	ctx := context.Background()

	uow := store.UnitOfWorkFactory().Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	repo := uow.AccountRepository()
	require.NoError(t, repo.Create(ctx, testutil.CreateTestWallet("dave", 1)))

	err := repo.Create(ctx, testutil.CreateTestWallet("dave", 2))
	assert.True(t, errors.Is(err, service.ErrAlreadyExists))

	assert.Error(t, repo.Update(ctx, testutil.CreateTestWallet("nobody", 1)))
}

func TestMemoryStore_ReturnedAccountsAreCopies(t *testing.T) {
	store := NewMemoryStore(events.NewBus())
	ctx := context.Background()

	uow := store.UnitOfWorkFactory().Create()
	require.NoError(t, uow.Begin(ctx))
	vault := testutil.CreateTestVault("copy", 7)
	vault.Data = []byte{9}
	require.NoError(t, uow.AccountRepository().Create(ctx, vault))
	require.NoError(t, uow.Commit())

	// Mutating the caller's struct after commit must not leak into the store
	vault.Lamports = 0
	vault.Data[0] = 0

	stored, err := store.Get(ctx, vault.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), stored.Lamports)
	assert.Equal(t, []byte{9}, stored.Data)
}

func TestMemoryStore_UnitsOfWorkSerialize(t *testing.T) {
	store := NewMemoryStore(events.NewBus())
	factory := store.UnitOfWorkFactory()
	ctx := context.Background()

	seed := factory.Create()
	require.NoError(t, seed.Begin(ctx))
	require.NoError(t, seed.AccountRepository().Create(ctx, testutil.CreateTestWallet("counter", 0)))
	require.NoError(t, seed.Commit())

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uow := factory.Create()
			if err := uow.Begin(ctx); err != nil {
				return
			}
			defer uow.Rollback()

			repo := uow.AccountRepository()
			account, err := repo.Get(ctx, testutil.TestAddress("counter"))
			if err != nil || account == nil {
				return
			}
			account.Lamports++
			if repo.Update(ctx, account) == nil {
				uow.Commit()
			}
		}()
	}
	wg.Wait()

	stored, err := store.Get(ctx, testutil.TestAddress("counter"))
	require.NoError(t, err)
	assert.Equal(t, uint64(workers), stored.Lamports)
}

func TestMemoryStore_BeginHonoursContext(t *testing.T) {
	store := NewMemoryStore(events.NewBus())
	factory := store.UnitOfWorkFactory()

	holder := factory.Create()
	require.NoError(t, holder.Begin(context.Background()))
	defer holder.Rollback()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := factory.Create().Begin(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestMemoryStore_CommitPublishesChangedAddresses(t *testing.T) {
	bus := events.NewBus()
	var changed events.AccountsChangedEvent
	bus.SubscribeInline(events.EventTypeAccountsChanged, func(_ context.Context, e events.Event) {
		changed = e.(events.AccountsChangedEvent)
	})

	store := NewMemoryStore(bus)
	ctx := context.Background()

	uow := store.UnitOfWorkFactory().Create()
	require.NoError(t, uow.Begin(ctx))
	repo := uow.AccountRepository()
	first := testutil.CreateTestWallet("first", 1)
	second := testutil.CreateTestWallet("second", 1)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	first.Lamports = 2
	require.NoError(t, repo.Update(ctx, first))
	require.NoError(t, uow.Commit())

	assert.Equal(t, []address.Address{first.Address, second.Address}, changed.Addresses)
}
