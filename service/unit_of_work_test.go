package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wagerledger/address"
	"wagerledger/instruction"
	"wagerledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type uowMocks struct {
	factory   *MockUnitOfWorkFactory
	uow       *MockUnitOfWork
	repo      *MockAccountRepository
	publisher *MockEventPublisher
}

func newUOWMocks() *uowMocks {
	m := &uowMocks{
		factory:   new(MockUnitOfWorkFactory),
		uow:       new(MockUnitOfWork),
		repo:      new(MockAccountRepository),
		publisher: new(MockEventPublisher),
	}
	m.uow.SetRepositories(m.repo, m.publisher)
	m.factory.On("Create").Return(m.uow)
	return m
}

func (m *uowMocks) assertExpectations(t *testing.T) {
	m.factory.AssertExpectations(t)
	m.uow.AssertExpectations(t)
	m.repo.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func profileOp(t *testing.T, program address.Address) *instruction.CreateProfile {
	t.Helper()

	wallet := address.Address{0x11, 0x22}
	profile, _, err := address.GetProfileAddress(program, &address.GetProfileAddressArgs{Wallet: wallet})
	require.NoError(t, err)
	return &instruction.CreateProfile{Wallet: wallet, Profile: profile, Name: "alice"}
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestCreateProfile_UnitOfWork(t *testing.T) {
	ctx := context.Background()
	program := address.Address{0x99}

	t.Run("commits and publishes", func(t *testing.T) {
		m := newUOWMocks()
		op := profileOp(t, program)

		m.uow.On("Begin", ctx).Return(nil)
		m.uow.On("Commit").Return(nil)
		m.uow.On("Rollback").Return(nil)
		m.repo.On("Get", ctx, op.Profile).Return(nil, nil)
		m.repo.On("Create", ctx, mock.MatchedBy(func(a *models.Account) bool {
			return a.Address == op.Profile && a.Owner == program && a.Kind == models.AccountKindProfile && len(a.Data) == models.ProfileSize
		})).Return(nil)
		m.publisher.On("Publish", mock.AnythingOfType("events.ProfileCreatedEvent")).Return()

		svc := NewProfileService(m.factory, program, fixedClock)
		profile, err := svc.CreateProfile(ctx, op.Wallet, op)
		require.NoError(t, err)
		assert.Equal(t, "alice", profile.Name)
		assert.Equal(t, fixedClock(), profile.CreatedAt)

		m.assertExpectations(t)
	})

	t.Run("begin failure is wrapped", func(t *testing.T) {
		m := newUOWMocks()
		op := profileOp(t, program)

		m.uow.On("Begin", ctx).Return(assert.AnError)

		svc := NewProfileService(m.factory, program, fixedClock)
		_, err := svc.CreateProfile(ctx, op.Wallet, op)
		require.Error(t, err)
		assert.True(t, errors.Is(err, assert.AnError))
		assert.Contains(t, err.Error(), "failed to begin transaction")

		m.uow.AssertNotCalled(t, "Commit")
		m.uow.AssertNotCalled(t, "Rollback")
		m.assertExpectations(t)
	})

	t.Run("repository failure rolls back", func(t *testing.T) {
		m := newUOWMocks()
		op := profileOp(t, program)

		m.uow.On("Begin", ctx).Return(nil)
		m.uow.On("Rollback").Return(nil)
		m.repo.On("Get", ctx, op.Profile).Return(nil, nil)
		m.repo.On("Create", ctx, mock.Anything).Return(assert.AnError)

		svc := NewProfileService(m.factory, program, fixedClock)
		_, err := svc.CreateProfile(ctx, op.Wallet, op)
		require.Error(t, err)
		assert.True(t, errors.Is(err, assert.AnError))

		m.uow.AssertNotCalled(t, "Commit")
		m.publisher.AssertNotCalled(t, "Publish", mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("existing profile rolls back", func(t *testing.T) {
		m := newUOWMocks()
		op := profileOp(t, program)

		m.uow.On("Begin", ctx).Return(nil)
		m.uow.On("Rollback").Return(nil)
		m.repo.On("Get", ctx, op.Profile).Return(&models.Account{Address: op.Profile, Kind: models.AccountKindProfile}, nil)

		svc := NewProfileService(m.factory, program, fixedClock)
		_, err := svc.CreateProfile(ctx, op.Wallet, op)
		assert.True(t, errors.Is(err, ErrAlreadyExists))

		m.uow.AssertNotCalled(t, "Commit")
		m.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("commit failure is wrapped", func(t *testing.T) {
		m := newUOWMocks()
		op := profileOp(t, program)

		m.uow.On("Begin", ctx).Return(nil)
		m.uow.On("Commit").Return(assert.AnError)
		m.uow.On("Rollback").Return(nil)
		m.repo.On("Get", ctx, op.Profile).Return(nil, nil)
		m.repo.On("Create", ctx, mock.Anything).Return(nil)
		m.publisher.On("Publish", mock.Anything).Return()

		svc := NewProfileService(m.factory, program, fixedClock)
		_, err := svc.CreateProfile(ctx, op.Wallet, op)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit transaction")
		m.assertExpectations(t)
	})
}

func TestAirdrop_RollsBackOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	m := newUOWMocks()
	wallet := address.Address{0x42}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.repo.On("Get", ctx, wallet).Return(&models.Account{Address: wallet, Kind: models.AccountKindWallet, Lamports: 5}, nil)
	m.repo.On("Update", ctx, mock.MatchedBy(func(a *models.Account) bool {
		return a.Address == wallet && a.Lamports == 15
	})).Return(assert.AnError)

	svc := NewWalletService(m.factory, true, 100)
	_, err := svc.Airdrop(ctx, wallet, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, assert.AnError))

	m.uow.AssertNotCalled(t, "Commit")
	m.publisher.AssertNotCalled(t, "Publish", mock.Anything)
	m.assertExpectations(t)
}
