package service

import (
	"context"
	"fmt"
	"time"

	"wagerledger/address"
	"wagerledger/events"
	"wagerledger/instruction"
	"wagerledger/metrics"
	"wagerledger/models"

	log "github.com/sirupsen/logrus"
)

type betService struct {
	uowFactory UnitOfWorkFactory
	program    address.Address
	now        Clock
}

// NewBetService creates a new bet service
func NewBetService(uowFactory UnitOfWorkFactory, program address.Address, now Clock) BetService {
	return &betService{
		uowFactory: uowFactory,
		program:    program,
		now:        now,
	}
}

// validateTerms checks every caller supplied economic parameter. It runs
// before the unit of work starts so a bad request never reaches a balance.
func (s *betService) validateTerms(op *instruction.CreateBet, now time.Time) error {
	if len(op.Description) == 0 || len(op.Description) > models.DescriptionSize {
		return ErrInvalidDescription
	}
	if op.StakeAmount == 0 {
		return ErrInvalidStake
	}
	if op.OddsWin == 0 || op.OddsLose == 0 {
		return ErrInvalidOdds.WithMessage("odds %d:%d must both be greater than zero", op.OddsWin, op.OddsLose)
	}
	if op.ExpiresAt <= now.Unix() {
		return ErrInvalidExpiration.WithMessage("expires_at %d is not after %d", op.ExpiresAt, now.Unix())
	}

	refereeType := models.RefereeType(op.RefereeType)
	if !refereeType.IsSupported() {
		return ErrInvalidRefereeType.WithMessage("referee type %d is not supported", op.RefereeType)
	}
	switch refereeType {
	case models.RefereeTypeSelf:
		if op.Referee != op.Creator {
			return ErrInvalidReferee.WithMessage("self attested bets are refereed by their creator")
		}
	case models.RefereeTypeThirdParty:
		if op.Referee == op.Creator || op.Referee.IsZero() {
			return ErrInvalidReferee
		}
	}

	switch models.Visibility(op.Visibility) {
	case models.VisibilityPublic:
		if op.PrivateRecipient != nil {
			return ErrInvalidRecipient.WithMessage("public bets cannot name a recipient")
		}
	case models.VisibilityPrivate:
		if op.PrivateRecipient == nil || *op.PrivateRecipient == op.Creator {
			return ErrInvalidRecipient
		}
	default:
		return ErrInvalidVisibility.WithMessage("visibility %d is not supported", op.Visibility)
	}

	// The acceptor's stake must be representable before anyone commits funds
	if _, err := scaleByOdds(op.StakeAmount, op.OddsWin, op.OddsLose); err != nil {
		return err
	}

	return nil
}

// CreateBet opens a bet in the creator's next slot and escrows their stake
func (s *betService) CreateBet(ctx context.Context, signer address.Address, op *instruction.CreateBet) (*models.Bet, error) {
	if signer != op.Creator {
		return nil, ErrUnauthorized.WithMessage("bet must be created by the signing wallet")
	}

	now := s.now()
	if err := s.validateTerms(op, now); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts := newLedgerAccounts(uow, s.program)

	profileAccount, profile, err := accounts.loadProfile(ctx, op.Creator, op.Profile)
	if err != nil {
		return nil, err
	}

	index := profile.BetsCreated
	bump, err := accounts.betAddress(op.Creator, index, op.Bet)
	if err != nil {
		return nil, err
	}

	if models.RefereeType(op.RefereeType) == models.RefereeTypeThirdParty {
		if err := s.checkRefereeFriendship(ctx, accounts, op); err != nil {
			return nil, err
		}
	}

	betAccount, err := accounts.get(ctx, op.Bet, models.AccountKindBet)
	if err != nil {
		return nil, err
	}
	betExists := betAccount != nil
	if betExists {
		// Cancelling frees its index, so the slot may hold a cancelled bet
		var previous models.Bet
		if err := accounts.decode(betAccount, &previous); err != nil {
			return nil, err
		}
		if previous.Status != models.BetStatusCancelled {
			return nil, ErrSlotOccupied.WithMessage("slot %d holds a %s bet; close it first", index, previous.Status)
		}
	} else {
		betAccount = &models.Account{Address: op.Bet, Owner: s.program, Kind: models.AccountKindBet}
	}

	vault, vaultExists, err := accounts.loadVault(ctx, op.Bet, op.Vault)
	if err != nil {
		return nil, err
	}
	if vault.Lamports != 0 {
		return nil, ErrSlotOccupied.WithMessage("vault %s still holds %d lamports", op.Vault, vault.Lamports)
	}

	wallet, walletExists, err := accounts.loadWallet(ctx, op.Creator)
	if err != nil {
		return nil, err
	}
	if !walletExists {
		return nil, ErrInsufficientFunds.WithMessage("wallet %s has no balance", op.Creator)
	}

	if err := transfer(wallet, vault, op.StakeAmount); err != nil {
		return nil, err
	}

	if profile.BetsCreated, err = incrementCounter(profile.BetsCreated); err != nil {
		return nil, err
	}

	referee := op.Referee
	bet := &models.Bet{
		Creator:          op.Creator,
		Referee:          referee,
		CreatorName:      profile.Name,
		StakeAmount:      op.StakeAmount,
		Description:      op.Description,
		RefereeType:      models.RefereeType(op.RefereeType),
		Category:         op.Category,
		Visibility:       models.Visibility(op.Visibility),
		PrivateRecipient: op.PrivateRecipient,
		OddsWin:          op.OddsWin,
		OddsLose:         op.OddsLose,
		ExpiresAt:        time.Unix(op.ExpiresAt, 0).UTC(),
		Status:           models.BetStatusOpen,
		CreatedAt:        now,
		Index:            index,
		Version:          models.RecordVersion,
		Bump:             bump,
	}

	if err := accounts.save(ctx, wallet, true); err != nil {
		return nil, err
	}
	if err := accounts.save(ctx, vault, vaultExists); err != nil {
		return nil, err
	}
	if err := accounts.saveRecord(ctx, betAccount, bet, betExists); err != nil {
		return nil, err
	}
	if err := accounts.saveRecord(ctx, profileAccount, profile, true); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.BetCreatedEvent{
		Bet:         op.Bet,
		Creator:     op.Creator,
		Referee:     referee,
		Index:       index,
		StakeAmount: op.StakeAmount,
		OddsWin:     op.OddsWin,
		OddsLose:    op.OddsLose,
		ExpiresAt:   op.ExpiresAt,
		Private:     bet.Visibility == models.VisibilityPrivate,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.EscrowLamports.WithLabelValues(metrics.EscrowDeposit).Add(float64(op.StakeAmount))
	metrics.OpenBets.Inc()

	log.WithFields(log.Fields{
		"bet":     op.Bet,
		"creator": op.Creator,
		"index":   index,
		"stake":   op.StakeAmount,
		"odds":    fmt.Sprintf("%d:%d", op.OddsWin, op.OddsLose),
	}).Info("Bet created")

	return bet, nil
}

// checkRefereeFriendship requires a mutual friendship between creator and referee
func (s *betService) checkRefereeFriendship(ctx context.Context, accounts *ledgerAccounts, op *instruction.CreateBet) error {
	if _, err := accounts.friendshipAddress(op.Creator, op.Referee, op.Friendship); err != nil {
		return err
	}

	account, err := accounts.get(ctx, op.Friendship, models.AccountKindFriendship)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrRefereeNotFriend.WithMessage("no friendship between %s and %s", op.Creator, op.Referee)
	}

	var friendship models.Friendship
	if err := accounts.decode(account, &friendship); err != nil {
		return err
	}
	if !friendship.IsMutual() {
		return ErrRefereeNotFriend.WithMessage("friendship with %s is still pending", op.Referee)
	}
	return nil
}

// AcceptBet matches an open bet. The acceptor's stake is derived from the
// odds and rounds down. The bet must still carry the terms the acceptor signed.
func (s *betService) AcceptBet(ctx context.Context, signer address.Address, op *instruction.AcceptBet) (*models.Bet, error) {
	if signer != op.Acceptor {
		return nil, ErrUnauthorized.WithMessage("bet must be accepted by the signing wallet")
	}

	now := s.now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts := newLedgerAccounts(uow, s.program)

	betAccount, bet, err := accounts.loadBet(ctx, op.Bet)
	if err != nil {
		return nil, err
	}
	if bet.Creator != op.Creator {
		return nil, ErrInvalidAccount.WithMessage("bet %s was not created by %s", op.Bet, op.Creator)
	}

	if bet.Status != models.BetStatusOpen {
		return nil, ErrInvalidBetStatus.WithMessage("bet is %s", bet.Status)
	}
	if bet.Terms() != op.Terms {
		return nil, ErrBetTermsMismatch.WithMessage("bet %s no longer has the accepted terms", op.Bet)
	}
	if op.Acceptor == bet.Creator {
		return nil, ErrCannotAcceptOwnBet
	}
	if op.Acceptor == bet.Referee {
		return nil, ErrRefereeCannotBet
	}
	if !bet.CanBeAcceptedBy(op.Acceptor) {
		return nil, ErrNotBetRecipient
	}
	if bet.IsExpired(now) {
		return nil, ErrBetExpired.WithMessage("bet expired at %d", bet.ExpiresAt.Unix())
	}

	vault, vaultExists, err := accounts.loadVault(ctx, op.Bet, op.Vault)
	if err != nil {
		return nil, err
	}

	profileAccount, profile, err := accounts.loadProfile(ctx, op.Acceptor, op.AcceptorProfile)
	if err != nil {
		return nil, err
	}

	stake, err := scaleByOdds(bet.StakeAmount, bet.OddsWin, bet.OddsLose)
	if err != nil {
		return nil, err
	}

	wallet, walletExists, err := accounts.loadWallet(ctx, op.Acceptor)
	if err != nil {
		return nil, err
	}
	if !walletExists && stake > 0 {
		return nil, ErrInsufficientFunds.WithMessage("wallet %s has no balance", op.Acceptor)
	}
	if err := transfer(wallet, vault, stake); err != nil {
		return nil, err
	}

	if profile.BetsAccepted, err = incrementCounter(profile.BetsAccepted); err != nil {
		return nil, err
	}

	acceptor := op.Acceptor
	bet.Acceptor = &acceptor
	bet.Status = models.BetStatusAccepted
	bet.AcceptedAt = &now

	if walletExists {
		if err := accounts.save(ctx, wallet, true); err != nil {
			return nil, err
		}
	}
	if err := accounts.save(ctx, vault, vaultExists); err != nil {
		return nil, err
	}
	if err := accounts.saveRecord(ctx, betAccount, bet, true); err != nil {
		return nil, err
	}
	if err := accounts.saveRecord(ctx, profileAccount, profile, true); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.BetAcceptedEvent{
		Bet:           op.Bet,
		Creator:       bet.Creator,
		Acceptor:      acceptor,
		AcceptorStake: stake,
		VaultBalance:  vault.Lamports,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.EscrowLamports.WithLabelValues(metrics.EscrowDeposit).Add(float64(stake))
	metrics.OpenBets.Dec()

	log.WithFields(log.Fields{
		"bet":      op.Bet,
		"acceptor": acceptor,
		"stake":    stake,
		"vault":    vault.Lamports,
	}).Info("Bet accepted")

	return bet, nil
}

// CancelBet withdraws an open bet, refunding the vault and freeing its index
func (s *betService) CancelBet(ctx context.Context, signer address.Address, op *instruction.CancelBet) (*models.Bet, error) {
	if signer != op.Creator {
		return nil, ErrUnauthorized.WithMessage("bet must be cancelled by the signing wallet")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts := newLedgerAccounts(uow, s.program)

	betAccount, bet, err := accounts.loadBet(ctx, op.Bet)
	if err != nil {
		return nil, err
	}
	if !bet.CanBeCancelledBy(op.Creator) {
		if bet.Creator != op.Creator {
			return nil, ErrUnauthorized.WithMessage("only the creator can cancel a bet")
		}
		return nil, ErrInvalidBetStatus.WithMessage("bet is %s", bet.Status)
	}

	profileAccount, profile, err := accounts.loadProfile(ctx, op.Creator, op.Profile)
	if err != nil {
		return nil, err
	}

	vault, vaultExists, err := accounts.loadVault(ctx, op.Bet, op.Vault)
	if err != nil {
		return nil, err
	}

	wallet, walletExists, err := accounts.loadWallet(ctx, op.Creator)
	if err != nil {
		return nil, err
	}

	refund := vault.Lamports
	if err := transfer(vault, wallet, refund); err != nil {
		return nil, err
	}

	if profile.BetsCreated, err = decrementCounter(profile.BetsCreated); err != nil {
		return nil, err
	}
	if profile.BetsCancelled, err = incrementCounter(profile.BetsCancelled); err != nil {
		return nil, err
	}

	bet.Status = models.BetStatusCancelled

	if err := accounts.save(ctx, wallet, walletExists); err != nil {
		return nil, err
	}
	if err := accounts.save(ctx, vault, vaultExists); err != nil {
		return nil, err
	}
	if err := accounts.saveRecord(ctx, betAccount, bet, true); err != nil {
		return nil, err
	}
	if err := accounts.saveRecord(ctx, profileAccount, profile, true); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.BetCancelledEvent{
		Bet:      op.Bet,
		Creator:  op.Creator,
		Refunded: refund,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.EscrowLamports.WithLabelValues(metrics.EscrowRefund).Add(float64(refund))
	metrics.OpenBets.Dec()

	log.WithFields(log.Fields{
		"bet":      op.Bet,
		"creator":  op.Creator,
		"refunded": refund,
	}).Info("Bet cancelled")

	return bet, nil
}

// ResolveBet pays the whole vault to the winner. The winner books
// stake*odds_win/odds_lose as profit and the loser books -stake.
func (s *betService) ResolveBet(ctx context.Context, signer address.Address, op *instruction.ResolveBet) (*models.Bet, error) {
	if signer != op.Referee {
		return nil, ErrUnauthorized.WithMessage("bet must be resolved by the signing referee")
	}

	now := s.now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts := newLedgerAccounts(uow, s.program)

	betAccount, bet, err := accounts.loadBet(ctx, op.Bet)
	if err != nil {
		return nil, err
	}
	if bet.Referee != op.Referee {
		return nil, ErrUnauthorized.WithMessage("only the designated referee can resolve this bet")
	}
	if bet.Status != models.BetStatusAccepted || bet.Acceptor == nil {
		return nil, ErrInvalidBetStatus.WithMessage("bet is %s", bet.Status)
	}
	if bet.Creator != op.Creator {
		return nil, ErrInvalidAccount.WithMessage("bet %s was not created by %s", op.Bet, op.Creator)
	}
	if *bet.Acceptor != op.Acceptor {
		return nil, ErrInvalidAccount.WithMessage("bet %s was not accepted by %s", op.Bet, op.Acceptor)
	}

	creatorAccount, creatorProfile, err := accounts.loadProfile(ctx, op.Creator, op.CreatorProfile)
	if err != nil {
		return nil, err
	}
	acceptorAccount, acceptorProfile, err := accounts.loadProfile(ctx, op.Acceptor, op.AcceptorProfile)
	if err != nil {
		return nil, err
	}

	vault, vaultExists, err := accounts.loadVault(ctx, op.Bet, op.Vault)
	if err != nil {
		return nil, err
	}

	winner, loser := op.Creator, op.Acceptor
	winnerProfile, loserProfile := creatorProfile, acceptorProfile
	if !op.WinnerIsCreator {
		winner, loser = op.Acceptor, op.Creator
		winnerProfile, loserProfile = acceptorProfile, creatorProfile
	}

	profit, err := scaleByOdds(bet.StakeAmount, bet.OddsWin, bet.OddsLose)
	if err != nil {
		return nil, err
	}
	if winnerProfile.TotalProfit, err = addProfit(winnerProfile.TotalProfit, profit); err != nil {
		return nil, err
	}
	if loserProfile.TotalProfit, err = subProfit(loserProfile.TotalProfit, bet.StakeAmount); err != nil {
		return nil, err
	}

	if op.WinnerIsCreator {
		if creatorProfile.BetsCreatedWon, err = incrementCounter(creatorProfile.BetsCreatedWon); err != nil {
			return nil, err
		}
		if acceptorProfile.BetsAcceptedLost, err = incrementCounter(acceptorProfile.BetsAcceptedLost); err != nil {
			return nil, err
		}
	} else {
		if acceptorProfile.BetsAcceptedWon, err = incrementCounter(acceptorProfile.BetsAcceptedWon); err != nil {
			return nil, err
		}
		if creatorProfile.BetsCreatedLost, err = incrementCounter(creatorProfile.BetsCreatedLost); err != nil {
			return nil, err
		}
	}

	winnerWallet, winnerWalletExists, err := accounts.loadWallet(ctx, winner)
	if err != nil {
		return nil, err
	}

	payout := vault.Lamports
	if err := transfer(vault, winnerWallet, payout); err != nil {
		return nil, err
	}

	bet.Winner = &winner
	bet.Status = models.BetStatusResolved
	bet.ResolvedAt = &now

	if err := accounts.save(ctx, winnerWallet, winnerWalletExists); err != nil {
		return nil, err
	}
	if err := accounts.save(ctx, vault, vaultExists); err != nil {
		return nil, err
	}
	if err := accounts.saveRecord(ctx, betAccount, bet, true); err != nil {
		return nil, err
	}
	if err := accounts.saveRecord(ctx, creatorAccount, creatorProfile, true); err != nil {
		return nil, err
	}
	if err := accounts.saveRecord(ctx, acceptorAccount, acceptorProfile, true); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.BetResolvedEvent{
		Bet:    op.Bet,
		Winner: winner,
		Loser:  loser,
		Payout: payout,
		Profit: profit,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.EscrowLamports.WithLabelValues(metrics.EscrowPayout).Add(float64(payout))

	log.WithFields(log.Fields{
		"bet":     op.Bet,
		"referee": op.Referee,
		"winner":  winner,
		"payout":  payout,
		"profit":  profit,
	}).Info("Bet resolved")

	return bet, nil
}

// CloseBet deletes a cancelled or resolved bet and its vault. Any lamports
// still in the vault go back to the creator.
func (s *betService) CloseBet(ctx context.Context, signer address.Address, op *instruction.CloseBet) error {
	if signer != op.Closer {
		return ErrUnauthorized.WithMessage("close must be signed by the closing wallet")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts := newLedgerAccounts(uow, s.program)

	_, bet, err := accounts.loadBet(ctx, op.Bet)
	if err != nil {
		return err
	}
	if bet.Creator != op.Creator {
		return ErrInvalidAccount.WithMessage("bet %s was not created by %s", op.Bet, op.Creator)
	}
	if !bet.IsTerminal() {
		return ErrInvalidBetStatus.WithMessage("only cancelled or resolved bets can be closed; bet is %s", bet.Status)
	}

	vault, vaultExists, err := accounts.loadVault(ctx, op.Bet, op.Vault)
	if err != nil {
		return err
	}

	returned := vault.Lamports
	if returned > 0 {
		wallet, walletExists, err := accounts.loadWallet(ctx, op.Creator)
		if err != nil {
			return err
		}
		if err := transfer(vault, wallet, returned); err != nil {
			return err
		}
		if err := accounts.save(ctx, wallet, walletExists); err != nil {
			return err
		}
	}

	if vaultExists {
		if err := accounts.delete(ctx, op.Vault); err != nil {
			return err
		}
	}
	if err := accounts.delete(ctx, op.Bet); err != nil {
		return err
	}

	uow.EventBus().Publish(events.BetClosedEvent{
		Bet:      op.Bet,
		Creator:  op.Creator,
		Closer:   op.Closer,
		Returned: returned,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"bet":      op.Bet,
		"closer":   op.Closer,
		"returned": returned,
	}).Info("Bet closed")

	return nil
}
