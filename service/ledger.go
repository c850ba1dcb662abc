package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"wagerledger/address"
	"wagerledger/instruction"
	"wagerledger/metrics"
)

// Receipt describes one committed instruction
type Receipt struct {
	ID          uuid.UUID         `json:"id"`
	Instruction string            `json:"instruction"`
	Signer      address.Address   `json:"signer"`
	Accounts    []address.Address `json:"accounts"`
	ExecutedAt  time.Time         `json:"executed_at"`
	Result      any               `json:"result,omitempty"`
}

// MaxTransactionLifetime bounds how far in the future a transaction may
// expire. Signature records only need to outlive this window.
const MaxTransactionLifetime = 10 * time.Minute

// Ledger is the single entry point for signed transactions. It verifies the
// signature, decodes the instruction and routes it to the owning service;
// every service call is one unit of work, and that unit of work also spends
// the transaction's signature.
type Ledger struct {
	program     address.Address
	profiles    ProfileService
	bets        BetService
	friendships FriendshipService
	now         Clock
}

// NewLedger creates the instruction dispatcher and the services it routes to
func NewLedger(program address.Address, uowFactory UnitOfWorkFactory, now Clock) *Ledger {
	guarded := newReplayGuard(uowFactory, program, now)
	return &Ledger{
		program:     program,
		profiles:    NewProfileService(guarded, program, now),
		bets:        NewBetService(guarded, program, now),
		friendships: NewFriendshipService(guarded, program, now),
		now:         now,
	}
}

// Program returns the id every account of this ledger is derived from
func (l *Ledger) Program() address.Address {
	return l.program
}

// Submit decodes a wire encoded transaction and executes it
func (l *Ledger) Submit(ctx context.Context, raw []byte) (*Receipt, error) {
	var tx instruction.Transaction
	if err := tx.Unmarshal(raw); err != nil {
		metrics.ObserveInstruction("unknown", ErrInvalidInstruction.Code, time.Now())
		return nil, ErrInvalidInstruction.WithMessage("%v", err)
	}
	return l.Execute(ctx, &tx)
}

// Execute runs one signed transaction
func (l *Ledger) Execute(ctx context.Context, tx *instruction.Transaction) (*Receipt, error) {
	started := time.Now()

	name := instruction.Opcode(0xff).String()
	if tx.Instruction != nil {
		name = tx.Instruction.Opcode.String()
	}

	result, err := l.execute(ctx, tx)
	if err != nil {
		fields := log.Fields{
			"instruction": name,
			"signer":      tx.Signer,
			"error":       err,
		}

		var ledgerErr *LedgerError
		if errors.As(err, &ledgerErr) {
			metrics.ObserveInstruction(name, ledgerErr.Code, started)
			log.WithFields(fields).Warn("Instruction rejected")
		} else {
			metrics.ObserveInstruction(name, "internal", started)
			log.WithFields(fields).Error("Instruction failed")
		}
		return nil, err
	}

	metrics.ObserveInstruction(name, metrics.ResultSuccess, started)

	receipt := &Receipt{
		ID:          uuid.New(),
		Instruction: name,
		Signer:      tx.Signer,
		Accounts:    tx.Instruction.Accounts,
		ExecutedAt:  l.now(),
		Result:      result,
	}

	log.WithFields(log.Fields{
		"receipt":     receipt.ID,
		"instruction": name,
		"signer":      tx.Signer,
		"duration":    time.Since(started),
	}).Info("Instruction committed")

	return receipt, nil
}

func (l *Ledger) execute(ctx context.Context, tx *instruction.Transaction) (any, error) {
	if tx.Instruction == nil {
		return nil, ErrInvalidInstruction.WithMessage("transaction carries no instruction")
	}
	if !tx.Verify(l.program) {
		return nil, ErrInvalidSignature
	}
	if err := l.checkLifetime(tx.Header); err != nil {
		return nil, err
	}

	op, err := instruction.Parse(tx.Instruction)
	if err != nil {
		return nil, ErrInvalidInstruction.WithMessage("%v", err)
	}
	if op.Signer() != tx.Signer {
		return nil, ErrUnauthorized.WithMessage("%s must be signed by %s", op.Opcode(), op.Signer())
	}

	ctx = withSignedTransaction(ctx, tx)

	switch op := op.(type) {
	case *instruction.CreateProfile:
		profile, err := l.profiles.CreateProfile(ctx, tx.Signer, op)
		if err != nil {
			return nil, err
		}
		return newProfileView(op.Profile, profile), nil
	case *instruction.CreateBet:
		bet, err := l.bets.CreateBet(ctx, tx.Signer, op)
		if err != nil {
			return nil, err
		}
		return newBetView(op.Bet, bet), nil
	case *instruction.AcceptBet:
		bet, err := l.bets.AcceptBet(ctx, tx.Signer, op)
		if err != nil {
			return nil, err
		}
		return newBetView(op.Bet, bet), nil
	case *instruction.CancelBet:
		bet, err := l.bets.CancelBet(ctx, tx.Signer, op)
		if err != nil {
			return nil, err
		}
		return newBetView(op.Bet, bet), nil
	case *instruction.ResolveBet:
		bet, err := l.bets.ResolveBet(ctx, tx.Signer, op)
		if err != nil {
			return nil, err
		}
		return newBetView(op.Bet, bet), nil
	case *instruction.CloseBet:
		return nil, l.bets.CloseBet(ctx, tx.Signer, op)
	case *instruction.AddFriend:
		friendship, err := l.friendships.AddFriend(ctx, tx.Signer, op)
		if err != nil {
			return nil, err
		}
		return newFriendshipView(op.Friendship, friendship), nil
	case *instruction.AcceptFriend:
		friendship, err := l.friendships.AcceptFriend(ctx, tx.Signer, op)
		if err != nil {
			return nil, err
		}
		return newFriendshipView(op.Friendship, friendship), nil
	default:
		return nil, ErrInvalidInstruction.WithMessage("unsupported opcode %d", op.Opcode())
	}
}

// checkLifetime rejects transactions past their expiry and those whose expiry
// lies beyond MaxTransactionLifetime
func (l *Ledger) checkLifetime(header instruction.Header) error {
	now := l.now()
	if now.Unix() > header.ExpiresAt {
		return ErrTransactionExpired.WithMessage("transaction expired at %d, now %d", header.ExpiresAt, now.Unix())
	}
	if limit := now.Add(MaxTransactionLifetime).Unix(); header.ExpiresAt > limit {
		return ErrTransactionLifetime.WithMessage("expiry %d is after %d", header.ExpiresAt, limit)
	}
	return nil
}
