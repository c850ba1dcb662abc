package models

import (
	"fmt"
	"time"

	"wagerledger/address"
)

var ProfileDiscriminator = discriminatorFor("Profile")

const ProfileSize = (DiscriminatorSize +
	address.Size + // wallet
	NameSize + // name
	4 + // bets_created
	4 + // bets_cancelled
	4 + // bets_accepted
	4 + // bets_created_won
	4 + // bets_created_lost
	4 + // bets_accepted_won
	4 + // bets_accepted_lost
	8 + // total_profit
	8 + // created_at
	1 + // version
	1 + // bump
	profilePadding)

const profilePadding = 10

// Profile holds a wallet's display name and lifetime betting statistics
type Profile struct {
	Wallet           address.Address
	Name             string
	BetsCreated      uint32
	BetsCancelled    uint32
	BetsAccepted     uint32
	BetsCreatedWon   uint32
	BetsCreatedLost  uint32
	BetsAcceptedWon  uint32
	BetsAcceptedLost uint32
	TotalProfit      int64
	CreatedAt        time.Time
	Version          uint8
	Bump             uint8
}

// TotalWins returns wins across both created and accepted bets
func (p *Profile) TotalWins() uint64 {
	return uint64(p.BetsCreatedWon) + uint64(p.BetsAcceptedWon)
}

// TotalLosses returns losses across both created and accepted bets
func (p *Profile) TotalLosses() uint64 {
	return uint64(p.BetsCreatedLost) + uint64(p.BetsAcceptedLost)
}

func (p *Profile) Marshal() ([]byte, error) {
	if len(p.Name) > NameSize {
		return nil, ErrFieldTooLong
	}

	b := make([]byte, ProfileSize)
	var offset int

	putDiscriminator(b, ProfileDiscriminator, &offset)
	putKey(b, p.Wallet, &offset)
	putFixedString(b, p.Name, NameSize, &offset)
	putUint32(b, p.BetsCreated, &offset)
	putUint32(b, p.BetsCancelled, &offset)
	putUint32(b, p.BetsAccepted, &offset)
	putUint32(b, p.BetsCreatedWon, &offset)
	putUint32(b, p.BetsCreatedLost, &offset)
	putUint32(b, p.BetsAcceptedWon, &offset)
	putUint32(b, p.BetsAcceptedLost, &offset)
	putInt64(b, p.TotalProfit, &offset)
	putTime(b, p.CreatedAt, &offset)
	putUint8(b, p.Version, &offset)
	putUint8(b, p.Bump, &offset)

	return b, nil
}

func (p *Profile) Unmarshal(data []byte) error {
	if len(data) != ProfileSize {
		return ErrInvalidAccountData
	}

	var offset int
	if !checkDiscriminator(data, ProfileDiscriminator, &offset) {
		return ErrInvalidAccountData
	}

	getKey(data, &p.Wallet, &offset)
	getFixedString(data, &p.Name, NameSize, &offset)
	getUint32(data, &p.BetsCreated, &offset)
	getUint32(data, &p.BetsCancelled, &offset)
	getUint32(data, &p.BetsAccepted, &offset)
	getUint32(data, &p.BetsCreatedWon, &offset)
	getUint32(data, &p.BetsCreatedLost, &offset)
	getUint32(data, &p.BetsAcceptedWon, &offset)
	getUint32(data, &p.BetsAcceptedLost, &offset)
	getInt64(data, &p.TotalProfit, &offset)
	getTime(data, &p.CreatedAt, &offset)
	getUint8(data, &p.Version, &offset)
	getUint8(data, &p.Bump, &offset)

	return nil
}

func (p *Profile) String() string {
	return fmt.Sprintf(
		"Profile{wallet=%s,name=%s,created=%d,accepted=%d,profit=%d}",
		p.Wallet,
		p.Name,
		p.BetsCreated,
		p.BetsAccepted,
		p.TotalProfit,
	)
}
