package events

import (
	"context"
	"sync"

	"wagerledger/address"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeProfileCreated  EventType = "profile_created"
	EventTypeBetCreated      EventType = "bet_created"
	EventTypeBetAccepted     EventType = "bet_accepted"
	EventTypeBetCancelled    EventType = "bet_cancelled"
	EventTypeBetResolved     EventType = "bet_resolved"
	EventTypeBetClosed       EventType = "bet_closed"
	EventTypeFriendRequested EventType = "friend_requested"
	EventTypeFriendAccepted  EventType = "friend_accepted"
	EventTypeWalletFunded    EventType = "wallet_funded"
	EventTypeAccountsChanged EventType = "accounts_changed"
)

// AllEventTypes lists every type the ledger emits
var AllEventTypes = []EventType{
	EventTypeProfileCreated,
	EventTypeBetCreated,
	EventTypeBetAccepted,
	EventTypeBetCancelled,
	EventTypeBetResolved,
	EventTypeBetClosed,
	EventTypeFriendRequested,
	EventTypeFriendAccepted,
	EventTypeWalletFunded,
	EventTypeAccountsChanged,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ProfileCreatedEvent represents a new profile registration
type ProfileCreatedEvent struct {
	Wallet  address.Address `json:"wallet"`
	Profile address.Address `json:"profile"`
	Name    string          `json:"name"`
}

func (e ProfileCreatedEvent) Type() EventType {
	return EventTypeProfileCreated
}

// BetCreatedEvent represents a bet that was opened and funded by its creator
type BetCreatedEvent struct {
	Bet         address.Address `json:"bet"`
	Creator     address.Address `json:"creator"`
	Referee     address.Address `json:"referee"`
	Index       uint32          `json:"index"`
	StakeAmount uint64          `json:"stake_amount"`
	OddsWin     uint64          `json:"odds_win"`
	OddsLose    uint64          `json:"odds_lose"`
	ExpiresAt   int64           `json:"expires_at"`
	Private     bool            `json:"private"`
}

func (e BetCreatedEvent) Type() EventType {
	return EventTypeBetCreated
}

// BetAcceptedEvent represents a counterparty matching an open bet
type BetAcceptedEvent struct {
	Bet           address.Address `json:"bet"`
	Creator       address.Address `json:"creator"`
	Acceptor      address.Address `json:"acceptor"`
	AcceptorStake uint64          `json:"acceptor_stake"`
	VaultBalance  uint64          `json:"vault_balance"`
}

func (e BetAcceptedEvent) Type() EventType {
	return EventTypeBetAccepted
}

// BetCancelledEvent represents a creator withdrawing an open bet
type BetCancelledEvent struct {
	Bet      address.Address `json:"bet"`
	Creator  address.Address `json:"creator"`
	Refunded uint64          `json:"refunded"`
}

func (e BetCancelledEvent) Type() EventType {
	return EventTypeBetCancelled
}

// BetResolvedEvent represents a referee decision and the resulting payout
type BetResolvedEvent struct {
	Bet    address.Address `json:"bet"`
	Winner address.Address `json:"winner"`
	Loser  address.Address `json:"loser"`
	Payout uint64          `json:"payout"`
	Profit uint64          `json:"profit"`
}

func (e BetResolvedEvent) Type() EventType {
	return EventTypeBetResolved
}

// BetClosedEvent represents a terminal bet whose accounts were removed
type BetClosedEvent struct {
	Bet      address.Address `json:"bet"`
	Creator  address.Address `json:"creator"`
	Closer   address.Address `json:"closer"`
	Returned uint64          `json:"returned"`
}

func (e BetClosedEvent) Type() EventType {
	return EventTypeBetClosed
}

// FriendRequestedEvent represents one side of a friendship being requested
type FriendRequestedEvent struct {
	Friendship address.Address `json:"friendship"`
	Requester  address.Address `json:"requester"`
	Target     address.Address `json:"target"`
}

func (e FriendRequestedEvent) Type() EventType {
	return EventTypeFriendRequested
}

// FriendAcceptedEvent represents a friendship becoming mutual
type FriendAcceptedEvent struct {
	Friendship address.Address `json:"friendship"`
	Accepter   address.Address `json:"accepter"`
	Requester  address.Address `json:"requester"`
}

func (e FriendAcceptedEvent) Type() EventType {
	return EventTypeFriendAccepted
}

// WalletFundedEvent represents an administrative airdrop
type WalletFundedEvent struct {
	Wallet     address.Address `json:"wallet"`
	Amount     uint64          `json:"amount"`
	NewBalance uint64          `json:"new_balance"`
}

func (e WalletFundedEvent) Type() EventType {
	return EventTypeWalletFunded
}

// AccountsChangedEvent lists every address written by one committed unit of work
type AccountsChangedEvent struct {
	Addresses []address.Address `json:"addresses"`
}

func (e AccountsChangedEvent) Type() EventType {
	return EventTypeAccountsChanged
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inline   map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		inline:   make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// SubscribeInline adds a handler that runs on the emitting goroutine before
// Emit returns. Inline handlers must be fast and must not block.
func (b *Bus) SubscribeInline(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inline[eventType] = append(b.inline[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.inline[eventType]),
	}).Debug("Subscribed inline handler to event type on main event bus")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	inline := make([]Handler, len(b.inline[event.Type()]))
	copy(inline, b.inline[event.Type()])
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"inlineCount":  len(inline),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	for i, handler := range inline {
		callHandler(ctx, handler, i, event)
	}

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go callHandler(ctx, handler, i, event)
	}
}

func callHandler(ctx context.Context, h Handler, handlerIndex int, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"eventType":    event.Type(),
				"handlerIndex": handlerIndex,
				"panic":        r,
			}).Error("Event handler panicked")
		}
	}()
	h(ctx, event)
}

// A transactional event bus for holding pending events coupled to the Unit of Work.
// Flushes to the underlying event bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Pending returns the events queued so far
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// called after successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus to main event bus")

	// Handlers outlive the request that produced the events
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		if b.real != nil {
			b.real.Emit(eventCtx, ev)
		}
	}
	b.pending = nil
	return nil
}

// called after rollback or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
