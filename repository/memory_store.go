package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wagerledger/address"
	"wagerledger/events"
	"wagerledger/models"
	"wagerledger/service"
)

// MemoryStore keeps every account in process memory. Units of work are
// serialized: Begin blocks until the previous unit commits or rolls back, so
// each instruction sees and produces a consistent snapshot.
type MemoryStore struct {
	sem      chan struct{}
	mu       sync.RWMutex
	accounts map[address.Address]*models.Account
	eventBus *events.Bus
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory account store
func NewMemoryStore(eventBus *events.Bus) *MemoryStore {
	return &MemoryStore{
		sem:      make(chan struct{}, 1),
		accounts: make(map[address.Address]*models.Account),
		eventBus: eventBus,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UnitOfWorkFactory returns a factory producing units of work on this store
func (s *MemoryStore) UnitOfWorkFactory() service.UnitOfWorkFactory {
	return &memoryUnitOfWorkFactory{store: s}
}

// Get returns a copy of the committed account at addr, or nil
func (s *MemoryStore) Get(_ context.Context, addr address.Address) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[addr].Clone(), nil
}

// ListByKind returns copies of the committed accounts of a kind ordered by address
func (s *MemoryStore) ListByKind(_ context.Context, kind models.AccountKind) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var accounts []*models.Account
	for _, account := range s.accounts {
		if account.Kind == kind {
			accounts = append(accounts, account.Clone())
		}
	}
	sortAccounts(accounts)
	return accounts, nil
}

// Len returns the number of committed accounts
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *MemoryStore) apply(overlay map[address.Address]*models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for addr, account := range overlay {
		if account == nil {
			delete(s.accounts, addr)
			continue
		}
		s.accounts[addr] = account
	}
}

type memoryUnitOfWorkFactory struct {
	store *MemoryStore
}

func (f *memoryUnitOfWorkFactory) Create() service.UnitOfWork {
	return &memoryUnitOfWork{
		store:            f.store,
		transactionalBus: events.NewTransactionalBus(f.store.eventBus),
	}
}

// memoryUnitOfWork buffers writes in an overlay until Commit. A nil entry in
// the overlay marks a deleted account.
type memoryUnitOfWork struct {
	store            *MemoryStore
	ctx              context.Context
	active           bool
	overlay          map[address.Address]*models.Account
	written          *writeSet
	accountRepo      *memoryAccountRepository
	transactionalBus *events.TransactionalBus
}

func (u *memoryUnitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return fmt.Errorf("transaction already started")
	}

	select {
	case u.store.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("failed to begin transaction: %w", ctx.Err())
	}

	u.ctx = ctx
	u.active = true
	u.overlay = make(map[address.Address]*models.Account)
	u.written = newWriteSet()
	u.accountRepo = &memoryAccountRepository{uow: u}

	return nil
}

func (u *memoryUnitOfWork) Commit() error {
	if !u.active {
		return fmt.Errorf("no transaction to commit")
	}

	u.store.apply(u.overlay)
	u.release()

	if changed := u.written.list(); len(changed) > 0 {
		u.transactionalBus.Publish(events.AccountsChangedEvent{Addresses: changed})
	}
	u.transactionalBus.Flush(u.ctx)

	return nil
}

func (u *memoryUnitOfWork) Rollback() error {
	if !u.active {
		return nil
	}

	u.release()
	u.transactionalBus.Discard()

	return nil
}

func (u *memoryUnitOfWork) release() {
	u.active = false
	u.overlay = nil
	<-u.store.sem
}

func (u *memoryUnitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

func (u *memoryUnitOfWork) EventBus() service.EventPublisher {
	return u.transactionalBus
}

type memoryAccountRepository struct {
	uow *memoryUnitOfWork
}

func (r *memoryAccountRepository) lookup(addr address.Address) (*models.Account, error) {
	if !r.uow.active {
		return nil, fmt.Errorf("unit of work is not active")
	}
	if account, ok := r.uow.overlay[addr]; ok {
		return account, nil
	}

	r.uow.store.mu.RLock()
	defer r.uow.store.mu.RUnlock()
	return r.uow.store.accounts[addr], nil
}

func (r *memoryAccountRepository) Get(_ context.Context, addr address.Address) (*models.Account, error) {
	account, err := r.lookup(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", addr, err)
	}
	return account.Clone(), nil
}

func (r *memoryAccountRepository) Create(_ context.Context, account *models.Account) error {
	existing, err := r.lookup(account.Address)
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.Address, err)
	}
	if existing != nil {
		return service.ErrAlreadyExists.WithMessage("account %s already exists", account.Address)
	}

	now := r.uow.store.now()
	account.CreatedAt = now
	account.UpdatedAt = now

	r.uow.overlay[account.Address] = account.Clone()
	r.uow.written.add(account.Address)
	return nil
}

func (r *memoryAccountRepository) Update(_ context.Context, account *models.Account) error {
	existing, err := r.lookup(account.Address)
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", account.Address, err)
	}
	if existing == nil {
		return fmt.Errorf("account %s not found", account.Address)
	}

	updated := existing.Clone()
	updated.Lamports = account.Lamports
	updated.Data = append([]byte(nil), account.Data...)
	updated.UpdatedAt = r.uow.store.now()
	account.CreatedAt = updated.CreatedAt
	account.UpdatedAt = updated.UpdatedAt

	r.uow.overlay[account.Address] = updated
	r.uow.written.add(account.Address)
	return nil
}

func (r *memoryAccountRepository) Delete(_ context.Context, addr address.Address) error {
	existing, err := r.lookup(addr)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", addr, err)
	}
	if existing == nil {
		return fmt.Errorf("account %s not found", addr)
	}

	r.uow.overlay[addr] = nil
	r.uow.written.add(addr)
	return nil
}

func (r *memoryAccountRepository) ListByKind(_ context.Context, kind models.AccountKind) ([]*models.Account, error) {
	if !r.uow.active {
		return nil, fmt.Errorf("failed to list %s accounts: unit of work is not active", kind)
	}

	merged := make(map[address.Address]*models.Account)

	r.uow.store.mu.RLock()
	for addr, account := range r.uow.store.accounts {
		merged[addr] = account
	}
	r.uow.store.mu.RUnlock()

	for addr, account := range r.uow.overlay {
		merged[addr] = account
	}

	var accounts []*models.Account
	for _, account := range merged {
		if account != nil && account.Kind == kind {
			accounts = append(accounts, account.Clone())
		}
	}
	sortAccounts(accounts)
	return accounts, nil
}

func sortAccounts(accounts []*models.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Address.Less(accounts[j].Address)
	})
}
