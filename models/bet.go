package models

import (
	"crypto/sha256"
	"fmt"
	"time"

	"wagerledger/address"
)

// BetStatus represents the lifecycle state of a bet
type BetStatus uint8

const (
	BetStatusOpen BetStatus = iota
	BetStatusAccepted
	BetStatusCancelled
	BetStatusResolved
)

func (s BetStatus) String() string {
	switch s {
	case BetStatusOpen:
		return "open"
	case BetStatusAccepted:
		return "accepted"
	case BetStatusCancelled:
		return "cancelled"
	case BetStatusResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// ParseBetStatus maps a lowercase status name back to its value
func ParseBetStatus(s string) (BetStatus, bool) {
	for _, status := range []BetStatus{BetStatusOpen, BetStatusAccepted, BetStatusCancelled, BetStatusResolved} {
		if status.String() == s {
			return status, true
		}
	}
	return 0, false
}

// RefereeType identifies who is allowed to declare the outcome
type RefereeType uint8

const (
	RefereeTypeSelf RefereeType = iota
	RefereeTypeOracle
	RefereeTypeThirdParty
	RefereeTypeAutomated
)

// IsSupported reports whether bets may currently be created with this type
func (r RefereeType) IsSupported() bool {
	return r == RefereeTypeSelf || r == RefereeTypeThirdParty
}

func (r RefereeType) String() string {
	switch r {
	case RefereeTypeSelf:
		return "self"
	case RefereeTypeOracle:
		return "oracle"
	case RefereeTypeThirdParty:
		return "third_party"
	case RefereeTypeAutomated:
		return "automated"
	default:
		return "unknown"
	}
}

// Visibility controls who may accept an open bet
type Visibility uint8

const (
	VisibilityPublic Visibility = iota
	VisibilityPrivate
)

func (v Visibility) String() string {
	if v == VisibilityPrivate {
		return "private"
	}
	return "public"
}

var BetDiscriminator = discriminatorFor("Bet")

const BetSize = (DiscriminatorSize +
	address.Size + // creator
	1 + address.Size + // acceptor
	address.Size + // referee
	1 + address.Size + // winner
	NameSize + // creator_name
	8 + // stake_amount
	DescriptionSize + // description
	1 + // referee_type
	1 + // category
	1 + // visibility
	1 + address.Size + // private_recipient
	8 + // odds_win
	8 + // odds_lose
	8 + // expires_at
	1 + // status
	8 + // created_at
	1 + 8 + // accepted_at
	1 + 8 + // resolved_at
	4 + // index
	1 + // version
	1 + // bump
	betPadding)

const betPadding = 17

// Bet is a two party wager whose stakes are held by its escrow vault
type Bet struct {
	Creator          address.Address
	Acceptor         *address.Address
	Referee          address.Address
	Winner           *address.Address
	CreatorName      string
	StakeAmount      uint64
	Description      string
	RefereeType      RefereeType
	Category         uint8
	Visibility       Visibility
	PrivateRecipient *address.Address
	OddsWin          uint64
	OddsLose         uint64
	ExpiresAt        time.Time
	Status           BetStatus
	CreatedAt        time.Time
	AcceptedAt       *time.Time
	ResolvedAt       *time.Time
	Index            uint32
	Version          uint8
	Bump             uint8
}

// IsParticipant checks if a wallet is one of the two economic parties
func (b *Bet) IsParticipant(wallet address.Address) bool {
	if b.Creator == wallet {
		return true
	}
	return b.Acceptor != nil && *b.Acceptor == wallet
}

// IsTerminal reports whether the bet can no longer change state
func (b *Bet) IsTerminal() bool {
	return b.Status == BetStatusCancelled || b.Status == BetStatusResolved
}

// IsExpired reports whether the acceptance window has closed at now
func (b *Bet) IsExpired(now time.Time) bool {
	return now.Unix() > b.ExpiresAt.Unix()
}

// CanBeAcceptedBy checks visibility and party rules for a prospective acceptor
func (b *Bet) CanBeAcceptedBy(wallet address.Address) bool {
	if b.Status != BetStatusOpen || b.Creator == wallet || b.Referee == wallet {
		return false
	}
	if b.Visibility == VisibilityPrivate {
		return b.PrivateRecipient != nil && *b.PrivateRecipient == wallet
	}
	return true
}

// CanBeCancelledBy checks if the bet can be cancelled by the given wallet
func (b *Bet) CanBeCancelledBy(wallet address.Address) bool {
	return b.Status == BetStatusOpen && b.Creator == wallet
}

// betTermsSize covers creator, index, stake, description, referee type,
// referee, category, visibility, optional recipient, odds, expiry and creation
const betTermsSize = address.Size + 4 + 8 + DescriptionSize + 1 + address.Size + 1 + 1 +
	1 + address.Size + 8 + 8 + 8 + 8

// Terms digests the fields an acceptor commits to. Only values fixed at
// creation are covered, so the digest survives acceptance and resolution but
// differs for a new bet created later in the same slot.
func (b *Bet) Terms() [32]byte {
	data := make([]byte, betTermsSize)
	var offset int

	putKey(data, b.Creator, &offset)
	putUint32(data, b.Index, &offset)
	putUint64(data, b.StakeAmount, &offset)
	putFixedString(data, b.Description, DescriptionSize, &offset)
	putUint8(data, uint8(b.RefereeType), &offset)
	putKey(data, b.Referee, &offset)
	putUint8(data, b.Category, &offset)
	putUint8(data, uint8(b.Visibility), &offset)
	putOptionalKey(data, b.PrivateRecipient, &offset)
	putUint64(data, b.OddsWin, &offset)
	putUint64(data, b.OddsLose, &offset)
	putTime(data, b.ExpiresAt, &offset)
	putTime(data, b.CreatedAt, &offset)

	return sha256.Sum256(data)
}

func (b *Bet) Marshal() ([]byte, error) {
	if len(b.Description) > DescriptionSize || len(b.CreatorName) > NameSize {
		return nil, ErrFieldTooLong
	}

	data := make([]byte, BetSize)
	var offset int

	putDiscriminator(data, BetDiscriminator, &offset)
	putKey(data, b.Creator, &offset)
	putOptionalKey(data, b.Acceptor, &offset)
	putKey(data, b.Referee, &offset)
	putOptionalKey(data, b.Winner, &offset)
	putFixedString(data, b.CreatorName, NameSize, &offset)
	putUint64(data, b.StakeAmount, &offset)
	putFixedString(data, b.Description, DescriptionSize, &offset)
	putUint8(data, uint8(b.RefereeType), &offset)
	putUint8(data, b.Category, &offset)
	putUint8(data, uint8(b.Visibility), &offset)
	putOptionalKey(data, b.PrivateRecipient, &offset)
	putUint64(data, b.OddsWin, &offset)
	putUint64(data, b.OddsLose, &offset)
	putTime(data, b.ExpiresAt, &offset)
	putUint8(data, uint8(b.Status), &offset)
	putTime(data, b.CreatedAt, &offset)
	putOptionalTime(data, b.AcceptedAt, &offset)
	putOptionalTime(data, b.ResolvedAt, &offset)
	putUint32(data, b.Index, &offset)
	putUint8(data, b.Version, &offset)
	putUint8(data, b.Bump, &offset)

	return data, nil
}

func (b *Bet) Unmarshal(data []byte) error {
	if len(data) != BetSize {
		return ErrInvalidAccountData
	}

	var offset int
	if !checkDiscriminator(data, BetDiscriminator, &offset) {
		return ErrInvalidAccountData
	}

	var refereeType, visibility, status uint8

	getKey(data, &b.Creator, &offset)
	getOptionalKey(data, &b.Acceptor, &offset)
	getKey(data, &b.Referee, &offset)
	getOptionalKey(data, &b.Winner, &offset)
	getFixedString(data, &b.CreatorName, NameSize, &offset)
	getUint64(data, &b.StakeAmount, &offset)
	getFixedString(data, &b.Description, DescriptionSize, &offset)
	getUint8(data, &refereeType, &offset)
	getUint8(data, &b.Category, &offset)
	getUint8(data, &visibility, &offset)
	getOptionalKey(data, &b.PrivateRecipient, &offset)
	getUint64(data, &b.OddsWin, &offset)
	getUint64(data, &b.OddsLose, &offset)
	getTime(data, &b.ExpiresAt, &offset)
	getUint8(data, &status, &offset)
	getTime(data, &b.CreatedAt, &offset)
	getOptionalTime(data, &b.AcceptedAt, &offset)
	getOptionalTime(data, &b.ResolvedAt, &offset)
	getUint32(data, &b.Index, &offset)
	getUint8(data, &b.Version, &offset)
	getUint8(data, &b.Bump, &offset)

	b.RefereeType = RefereeType(refereeType)
	b.Visibility = Visibility(visibility)
	b.Status = BetStatus(status)

	return nil
}

func (b *Bet) String() string {
	return fmt.Sprintf(
		"Bet{creator=%s,index=%d,status=%s,stake=%d,odds=%d:%d}",
		b.Creator,
		b.Index,
		b.Status,
		b.StakeAmount,
		b.OddsWin,
		b.OddsLose,
	)
}
