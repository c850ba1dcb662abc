package service

import (
	"fmt"

	"wagerledger/models"
)

// ErrorClass groups ledger errors by how callers should react to them
type ErrorClass string

const (
	ClassValidation    ErrorClass = "validation"
	ClassAuthorization ErrorClass = "authorization"
	ClassState         ErrorClass = "state"
	ClassArithmetic    ErrorClass = "arithmetic"
	ClassNotFound      ErrorClass = "not_found"
)

// LedgerError is returned for every rejected instruction. Two ledger errors
// match under errors.Is when their codes are equal, so callers compare against
// the exported sentinels regardless of the attached message.
type LedgerError struct {
	Class   ErrorClass
	Code    string
	Message string
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	return ok && t.Code == e.Code
}

// WithMessage returns a copy of the sentinel carrying a more specific message
func (e *LedgerError) WithMessage(format string, args ...any) *LedgerError {
	return &LedgerError{
		Class:   e.Class,
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
	}
}

func newLedgerError(class ErrorClass, code, message string) *LedgerError {
	return &LedgerError{Class: class, Code: code, Message: message}
}

// Validation errors
var (
	ErrInvalidInstruction = newLedgerError(ClassValidation, "InvalidInstruction", "instruction could not be decoded")
	ErrInvalidName        = newLedgerError(ClassValidation, "InvalidName", "name must be between 1 and 32 bytes")
	ErrInvalidDescription = newLedgerError(ClassValidation, "InvalidDescription", "description must be between 1 and 128 bytes")
	ErrInvalidStake       = newLedgerError(ClassValidation, "InvalidStake", "stake amount must be greater than zero")
	ErrInvalidOdds        = newLedgerError(ClassValidation, "InvalidOdds", "odds must be greater than zero")
	ErrInvalidExpiration  = newLedgerError(ClassValidation, "InvalidExpiration", "expiration must be in the future")
	ErrInvalidRefereeType = newLedgerError(ClassValidation, "InvalidRefereeType", "referee type is not supported")
	ErrInvalidReferee     = newLedgerError(ClassValidation, "InvalidReferee", "third party referee must differ from the creator")
	ErrInvalidVisibility  = newLedgerError(ClassValidation, "InvalidVisibility", "visibility is not supported")
	ErrInvalidRecipient   = newLedgerError(ClassValidation, "InvalidRecipient", "private bets need a recipient other than the creator")
	ErrBetExpired         = newLedgerError(ClassValidation, "BetExpired", "bet acceptance window has closed")
	ErrSelfFriendship     = newLedgerError(ClassValidation, "SelfFriendship", "cannot befriend yourself")
	ErrInvalidAmount      = newLedgerError(ClassValidation, "InvalidAmount", "amount is outside the allowed range")

	ErrTransactionExpired  = newLedgerError(ClassValidation, "TransactionExpired", "transaction is past its expiry")
	ErrTransactionLifetime = newLedgerError(ClassValidation, "TransactionLifetime", "transaction expiry is too far in the future")
)

// Authorization errors
var (
	ErrInvalidSignature   = newLedgerError(ClassAuthorization, "InvalidSignature", "transaction signature does not verify")
	ErrUnauthorized       = newLedgerError(ClassAuthorization, "Unauthorized", "signer is not allowed to perform this instruction")
	ErrInvalidAccount     = newLedgerError(ClassAuthorization, "InvalidAccount", "account does not match its derived address")
	ErrCannotAcceptOwnBet = newLedgerError(ClassAuthorization, "CannotAcceptOwnBet", "creator cannot accept their own bet")
	ErrRefereeCannotBet   = newLedgerError(ClassAuthorization, "RefereeCannotBet", "referee cannot take a side of the bet")
	ErrNotBetRecipient    = newLedgerError(ClassAuthorization, "NotBetRecipient", "private bet is reserved for another wallet")
	ErrRefereeNotFriend   = newLedgerError(ClassAuthorization, "RefereeNotFriend", "third party referee must be a mutual friend")
	ErrNotFriendshipParty = newLedgerError(ClassAuthorization, "NotFriendshipParty", "signer is not a party to this friendship")
	ErrAirdropDisabled    = newLedgerError(ClassAuthorization, "AirdropDisabled", "airdrops are disabled")
)

// State errors
var (
	ErrAlreadyExists          = newLedgerError(ClassState, "AlreadyExists", "account already exists")
	ErrSlotOccupied           = newLedgerError(ClassState, "SlotOccupied", "bet slot holds a live bet")
	ErrInvalidBetStatus       = newLedgerError(ClassState, "InvalidBetStatus", "bet is not in the required status")
	ErrInsufficientFunds      = newLedgerError(ClassState, "InsufficientFunds", "wallet balance is too low")
	ErrAlreadyFriends         = newLedgerError(ClassState, "AlreadyFriends", "wallets are already friends")
	ErrFriendRequestPending   = newLedgerError(ClassState, "FriendRequestPending", "friend request already sent")
	ErrIncomingFriendRequest  = newLedgerError(ClassState, "IncomingFriendRequest", "counterparty already requested; use accept_friend")
	ErrNoPendingFriendRequest = newLedgerError(ClassState, "NoPendingFriendRequest", "no pending friend request to accept")
	ErrAlreadyProcessed       = newLedgerError(ClassState, "AlreadyProcessed", "transaction signature was already used")
	ErrBetTermsMismatch       = newLedgerError(ClassState, "BetTermsMismatch", "bet terms differ from the terms that were accepted")
)

// Arithmetic errors
var (
	ErrArithmeticOverflow = newLedgerError(ClassArithmetic, "ArithmeticOverflow", "arithmetic overflow")
)

// Not found errors
var (
	ErrProfileNotFound    = newLedgerError(ClassNotFound, "ProfileNotFound", "profile does not exist")
	ErrBetNotFound        = newLedgerError(ClassNotFound, "BetNotFound", "bet does not exist")
	ErrFriendshipNotFound = newLedgerError(ClassNotFound, "FriendshipNotFound", "friendship does not exist")
	ErrAccountNotFound    = newLedgerError(ClassNotFound, "AccountNotFound", "account does not exist")
)

// friendshipError translates a rejected friendship transition
func friendshipError(err error) error {
	switch err {
	case models.ErrAlreadyFriends:
		return ErrAlreadyFriends
	case models.ErrRequestPending:
		return ErrFriendRequestPending
	case models.ErrIncomingRequest:
		return ErrIncomingFriendRequest
	case models.ErrNoPendingRequest:
		return ErrNoPendingFriendRequest
	case models.ErrNotFriendshipSide:
		return ErrNotFriendshipParty
	default:
		return err
	}
}
