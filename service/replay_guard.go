package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"wagerledger/address"
	"wagerledger/instruction"
	"wagerledger/models"
)

type signedTransactionKey struct{}

// signedTransaction is the part of a verified transaction the replay guard
// needs to mark it as spent
type signedTransaction struct {
	signature [instruction.SignatureSize]byte
	signer    address.Address
	header    instruction.Header
}

func withSignedTransaction(ctx context.Context, tx *instruction.Transaction) context.Context {
	return context.WithValue(ctx, signedTransactionKey{}, &signedTransaction{
		signature: tx.Signature,
		signer:    tx.Signer,
		header:    tx.Header,
	})
}

func signedTransactionFrom(ctx context.Context) (*signedTransaction, bool) {
	signed, ok := ctx.Value(signedTransactionKey{}).(*signedTransaction)
	return signed, ok
}

// replayGuard decorates a unit of work factory. Every unit of work begun on
// behalf of a signed transaction first creates the signature record of that
// transaction, so the record commits or rolls back with the instruction's
// effects and a second submission of the same bytes finds the slot taken.
type replayGuard struct {
	factory UnitOfWorkFactory
	program address.Address
	now     Clock
}

func newReplayGuard(factory UnitOfWorkFactory, program address.Address, now Clock) *replayGuard {
	return &replayGuard{factory: factory, program: program, now: now}
}

func (g *replayGuard) Create() UnitOfWork {
	return &guardedUnitOfWork{UnitOfWork: g.factory.Create(), guard: g}
}

// consume records the signature inside uow
func (g *replayGuard) consume(ctx context.Context, uow UnitOfWork, signed *signedTransaction) error {
	addr, bump, err := address.GetSignatureAddress(g.program, &address.GetSignatureAddressArgs{Signature: signed.signature})
	if err != nil {
		return fmt.Errorf("failed to derive signature address: %w", err)
	}

	record := &models.SignatureRecord{
		Signer:      signed.signer,
		Nonce:       signed.header.Nonce,
		ExpiresAt:   time.Unix(signed.header.ExpiresAt, 0).UTC(),
		ProcessedAt: g.now(),
		Version:     models.RecordVersion,
		Bump:        bump,
	}
	data, err := record.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode signature record: %w", err)
	}

	err = uow.AccountRepository().Create(ctx, &models.Account{
		Address: addr,
		Owner:   g.program,
		Kind:    models.AccountKindSignature,
		Data:    data,
	})
	if errors.Is(err, ErrAlreadyExists) {
		return ErrAlreadyProcessed.WithMessage("signature %s was already processed", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to record signature %s: %w", addr, err)
	}
	return nil
}

type guardedUnitOfWork struct {
	UnitOfWork
	guard *replayGuard
}

// Begin starts the inner unit of work and spends the signature carried by
// ctx. Without a signed transaction in ctx it behaves like the inner Begin.
func (u *guardedUnitOfWork) Begin(ctx context.Context) error {
	if err := u.UnitOfWork.Begin(ctx); err != nil {
		return err
	}

	signed, ok := signedTransactionFrom(ctx)
	if !ok {
		return nil
	}

	if err := u.guard.consume(ctx, u.UnitOfWork, signed); err != nil {
		if rbErr := u.UnitOfWork.Rollback(); rbErr != nil {
			log.WithError(rbErr).Warn("Failed to roll back rejected transaction")
		}
		return err
	}
	return nil
}
