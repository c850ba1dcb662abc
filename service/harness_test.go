package service_test

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wagerledger/address"
	"wagerledger/events"
	"wagerledger/instruction"
	"wagerledger/models"
	"wagerledger/repository"
	"wagerledger/service"

	"github.com/stretchr/testify/require"
)

const (
	unit          = uint64(service.LamportsPerUnit)
	startBalance  = 10 * unit
	maxAirdrop    = 1_000 * unit
	oneHour int64 = 3600
)

var testProgram = address.Address(sha256.Sum256([]byte("wagerledger-service-test")))

// ledgerHarness runs the full ledger on the in-memory store with a
// controllable clock.
type ledgerHarness struct {
	t       *testing.T
	ctx     context.Context
	now     time.Time
	bus     *events.Bus
	store   *repository.MemoryStore
	ledger  *service.Ledger
	wallets service.WalletService
	query   service.QueryService

	nonce atomic.Uint64

	mu      sync.Mutex
	emitted []events.Event
}

type testUser struct {
	name    string
	key     ed25519.PrivateKey
	wallet  address.Address
	profile address.Address
}

func newLedgerHarness(t *testing.T) *ledgerHarness {
	t.Helper()

	h := &ledgerHarness{
		t:   t,
		ctx: context.Background(),
		now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		bus: events.NewBus(),
	}
	h.store = repository.NewMemoryStore(h.bus)

	for _, eventType := range events.AllEventTypes {
		h.bus.SubscribeInline(eventType, func(_ context.Context, e events.Event) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.emitted = append(h.emitted, e)
		})
	}

	clock := func() time.Time { return h.now }
	factory := h.store.UnitOfWorkFactory()

	h.ledger = service.NewLedger(testProgram, factory, clock)
	h.wallets = service.NewWalletService(factory, true, maxAirdrop)
	h.query = service.NewQueryService(h.store, testProgram)

	return h
}

// user creates a keypair, funds its wallet and registers its profile
func (h *ledgerHarness) user(name string, lamports uint64) *testUser {
	h.t.Helper()

	u := h.keypair(name)
	if lamports > 0 {
		_, err := h.wallets.Airdrop(h.ctx, u.wallet, lamports)
		require.NoError(h.t, err)
	}

	_, err := h.submit(u, &instruction.CreateProfile{Wallet: u.wallet, Profile: u.profile, Name: name})
	require.NoError(h.t, err)
	return u
}

func (h *ledgerHarness) keypair(name string) *testUser {
	h.t.Helper()

	seed := sha256.Sum256([]byte("seed:" + name))
	key := ed25519.NewKeyFromSeed(seed[:])
	wallet, err := address.FromPublicKey(key.Public().(ed25519.PublicKey))
	require.NoError(h.t, err)

	profile, _, err := address.GetProfileAddress(testProgram, &address.GetProfileAddressArgs{Wallet: wallet})
	require.NoError(h.t, err)

	return &testUser{name: name, key: key, wallet: wallet, profile: profile}
}

// header returns a fresh nonce valid for one minute from the harness clock
func (h *ledgerHarness) header() instruction.Header {
	return instruction.Header{Nonce: h.nonce.Add(1), ExpiresAt: h.now.Unix() + 60}
}

// signed returns the wire encoding of op signed by u under a fresh header
func (h *ledgerHarness) signed(u *testUser, op instruction.Op) []byte {
	h.t.Helper()

	tx, err := instruction.Sign(testProgram, h.header(), op, u.key)
	require.NoError(h.t, err)

	raw, err := tx.Marshal()
	require.NoError(h.t, err)
	return raw
}

// submit signs op with u's key and sends it through the wire path
func (h *ledgerHarness) submit(u *testUser, op instruction.Op) (*service.Receipt, error) {
	h.t.Helper()

	return h.ledger.Submit(h.ctx, h.signed(u, op))
}

func (h *ledgerHarness) betAddresses(creator *testUser, index uint32) (address.Address, address.Address) {
	h.t.Helper()

	bet, _, err := address.GetBetAddress(testProgram, &address.GetBetAddressArgs{Creator: creator.wallet, Index: index})
	require.NoError(h.t, err)
	vault, _, err := address.GetVaultAddress(testProgram, &address.GetVaultAddressArgs{Bet: bet})
	require.NoError(h.t, err)
	return bet, vault
}

func (h *ledgerHarness) friendshipAddress(a, b *testUser) address.Address {
	h.t.Helper()

	addr, _, err := address.GetFriendshipAddress(testProgram, &address.GetFriendshipAddressArgs{UserA: a.wallet, UserB: b.wallet})
	require.NoError(h.t, err)
	return addr
}

// selfBet returns a public self-attested create_bet op at the given index
func (h *ledgerHarness) selfBet(creator *testUser, index uint32, stake, oddsWin, oddsLose uint64) *instruction.CreateBet {
	bet, vault := h.betAddresses(creator, index)
	return &instruction.CreateBet{
		Creator:     creator.wallet,
		Profile:     creator.profile,
		Bet:         bet,
		Vault:       vault,
		Referee:     creator.wallet,
		Friendship:  address.SystemProgram,
		Description: "it rains tomorrow",
		StakeAmount: stake,
		RefereeType: uint8(models.RefereeTypeSelf),
		OddsWin:     oddsWin,
		OddsLose:    oddsLose,
		ExpiresAt:   h.now.Unix() + oneHour,
		Visibility:  uint8(models.VisibilityPublic),
	}
}

// acceptOp agrees to the terms of the bet currently stored at index
func (h *ledgerHarness) acceptOp(acceptor, creator *testUser, index uint32) *instruction.AcceptBet {
	bet, vault := h.betAddresses(creator, index)
	op := &instruction.AcceptBet{
		Acceptor:        acceptor.wallet,
		Creator:         creator.wallet,
		AcceptorProfile: acceptor.profile,
		Bet:             bet,
		Vault:           vault,
	}
	if stored := h.bet(creator, index); stored != nil {
		op.Terms = stored.Terms()
	}
	return op
}

func (h *ledgerHarness) resolveOp(referee, creator, acceptor *testUser, index uint32, creatorWins bool) *instruction.ResolveBet {
	bet, vault := h.betAddresses(creator, index)
	return &instruction.ResolveBet{
		Referee:         referee.wallet,
		Creator:         creator.wallet,
		Acceptor:        acceptor.wallet,
		CreatorProfile:  creator.profile,
		AcceptorProfile: acceptor.profile,
		Bet:             bet,
		Vault:           vault,
		WinnerIsCreator: creatorWins,
	}
}

func (h *ledgerHarness) cancelOp(creator *testUser, index uint32) *instruction.CancelBet {
	bet, vault := h.betAddresses(creator, index)
	return &instruction.CancelBet{Creator: creator.wallet, Profile: creator.profile, Bet: bet, Vault: vault}
}

func (h *ledgerHarness) closeOp(closer, creator *testUser, index uint32) *instruction.CloseBet {
	bet, vault := h.betAddresses(creator, index)
	return &instruction.CloseBet{Closer: closer.wallet, Creator: creator.wallet, Bet: bet, Vault: vault}
}

func (h *ledgerHarness) befriend(a, b *testUser) {
	h.t.Helper()

	friendship := h.friendshipAddress(a, b)
	_, err := h.submit(a, &instruction.AddFriend{
		Requester:        a.wallet,
		RequesterProfile: a.profile,
		TargetProfile:    b.profile,
		Friendship:       friendship,
	})
	require.NoError(h.t, err)

	_, err = h.submit(b, &instruction.AcceptFriend{Accepter: b.wallet, Friendship: friendship})
	require.NoError(h.t, err)
}

func (h *ledgerHarness) balance(addr address.Address) uint64 {
	h.t.Helper()

	account, err := h.store.Get(h.ctx, addr)
	require.NoError(h.t, err)
	if account == nil {
		return 0
	}
	return account.Lamports
}

func (h *ledgerHarness) profile(u *testUser) *models.Profile {
	h.t.Helper()

	account, err := h.store.Get(h.ctx, u.profile)
	require.NoError(h.t, err)
	require.NotNil(h.t, account)

	var profile models.Profile
	require.NoError(h.t, profile.Unmarshal(account.Data))
	return &profile
}

func (h *ledgerHarness) bet(creator *testUser, index uint32) *models.Bet {
	h.t.Helper()

	addr, _ := h.betAddresses(creator, index)
	account, err := h.store.Get(h.ctx, addr)
	require.NoError(h.t, err)
	if account == nil {
		return nil
	}

	var bet models.Bet
	require.NoError(h.t, bet.Unmarshal(account.Data))
	return &bet
}

// updateProfile rewrites u's stored profile outside of any instruction
func (h *ledgerHarness) updateProfile(u *testUser, mutate func(*models.Profile)) {
	h.t.Helper()

	uow := h.store.UnitOfWorkFactory().Create()
	require.NoError(h.t, uow.Begin(h.ctx))
	defer uow.Rollback()

	account, err := uow.AccountRepository().Get(h.ctx, u.profile)
	require.NoError(h.t, err)
	require.NotNil(h.t, account)

	var profile models.Profile
	require.NoError(h.t, profile.Unmarshal(account.Data))
	mutate(&profile)
	account.Data, err = profile.Marshal()
	require.NoError(h.t, err)

	require.NoError(h.t, uow.AccountRepository().Update(h.ctx, account))
	require.NoError(h.t, uow.Commit())
}

// snapshot copies the stored accounts at addrs; missing accounts map to nil
func (h *ledgerHarness) snapshot(addrs ...address.Address) map[address.Address]*models.Account {
	h.t.Helper()

	accounts := make(map[address.Address]*models.Account, len(addrs))
	for _, addr := range addrs {
		account, err := h.store.Get(h.ctx, addr)
		require.NoError(h.t, err)
		accounts[addr] = account.Clone()
	}
	return accounts
}

// totalLamports sums every account in the store
func (h *ledgerHarness) totalLamports() uint64 {
	h.t.Helper()

	var total uint64
	for _, kind := range []models.AccountKind{
		models.AccountKindWallet,
		models.AccountKindProfile,
		models.AccountKindBet,
		models.AccountKindVault,
		models.AccountKindFriendship,
		models.AccountKindSignature,
	} {
		accounts, err := h.store.ListByKind(h.ctx, kind)
		require.NoError(h.t, err)
		for _, account := range accounts {
			total += account.Lamports
		}
	}
	return total
}

func (h *ledgerHarness) eventTypes() []events.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()

	types := make([]events.EventType, 0, len(h.emitted))
	for _, e := range h.emitted {
		types = append(types, e.Type())
	}
	return types
}

func sign(u *testUser, message []byte) []byte {
	return ed25519.Sign(u.key, message)
}
