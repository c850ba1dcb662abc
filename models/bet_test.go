package models

import (
	"testing"
	"time"

	"wagerledger/address"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBet() *Bet {
	return &Bet{
		Creator:     testKey(1),
		Referee:     testKey(1),
		CreatorName: "alice",
		StakeAmount: 1_000_000_000,
		Description: "Lakers win tonight",
		RefereeType: RefereeTypeSelf,
		Category:    3,
		Visibility:  VisibilityPublic,
		OddsWin:     3,
		OddsLose:    1,
		ExpiresAt:   time.Unix(1_700_086_400, 0).UTC(),
		Status:      BetStatusOpen,
		CreatedAt:   time.Unix(1_700_000_000, 0).UTC(),
		Index:       9,
		Version:     RecordVersion,
		Bump:        253,
	}
}

func TestBet_MarshalUnmarshal_Open(t *testing.T) {
	original := newTestBet()

	data, err := original.Marshal()
	require.NoError(t, err)
	require.Len(t, data, BetSize)

	var decoded Bet
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, *original, decoded)
	assert.Nil(t, decoded.Acceptor)
	assert.Nil(t, decoded.AcceptedAt)
}

func TestBet_MarshalUnmarshal_Resolved(t *testing.T) {
	original := newTestBet()
	acceptor := testKey(2)
	recipient := testKey(2)
	accepted := time.Unix(1_700_000_100, 0).UTC()
	resolved := time.Unix(1_700_000_200, 0).UTC()

	original.Acceptor = &acceptor
	original.Winner = &acceptor
	original.Visibility = VisibilityPrivate
	original.PrivateRecipient = &recipient
	original.Status = BetStatusResolved
	original.AcceptedAt = &accepted
	original.ResolvedAt = &resolved

	data, err := original.Marshal()
	require.NoError(t, err)

	var decoded Bet
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, *original, decoded)
}

func TestBet_DescriptionTooLong(t *testing.T) {
	b := newTestBet()
	b.Description = string(make([]byte, DescriptionSize+1))
	_, err := b.Marshal()
	assert.ErrorIs(t, err, ErrFieldTooLong)
}

func TestBet_CanBeAcceptedBy(t *testing.T) {
	creator := testKey(1)
	other := testKey(2)
	referee := testKey(3)
	stranger := testKey(4)

	tests := []struct {
		name     string
		mutate   func(b *Bet)
		wallet   address.Address
		expected bool
	}{
		{"public bet by stranger", func(b *Bet) {}, other, true},
		{"own bet", func(b *Bet) {}, creator, false},
		{"referee cannot accept", func(b *Bet) { b.Referee = referee }, referee, false},
		{"accepted bet", func(b *Bet) { b.Status = BetStatusAccepted }, other, false},
		{"private bet by recipient", func(b *Bet) {
			b.Visibility = VisibilityPrivate
			b.PrivateRecipient = &other
		}, other, true},
		{"private bet by stranger", func(b *Bet) {
			b.Visibility = VisibilityPrivate
			b.PrivateRecipient = &other
		}, stranger, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBet()
			tt.mutate(b)
			assert.Equal(t, tt.expected, b.CanBeAcceptedBy(tt.wallet))
		})
	}
}

func TestBet_IsExpired(t *testing.T) {
	b := newTestBet()

	assert.False(t, b.IsExpired(b.ExpiresAt.Add(-time.Second)))
	assert.False(t, b.IsExpired(b.ExpiresAt), "the expiry second itself is still open")
	assert.True(t, b.IsExpired(b.ExpiresAt.Add(time.Second)))
}

func TestBet_Predicates(t *testing.T) {
	b := newTestBet()
	acceptor := testKey(2)

	assert.True(t, b.CanBeCancelledBy(b.Creator))
	assert.False(t, b.CanBeCancelledBy(acceptor))
	assert.False(t, b.IsParticipant(acceptor))

	b.Acceptor = &acceptor
	b.Status = BetStatusAccepted
	assert.True(t, b.IsParticipant(acceptor))
	assert.False(t, b.CanBeCancelledBy(b.Creator))
	assert.False(t, b.IsTerminal())

	b.Status = BetStatusResolved
	assert.True(t, b.IsTerminal())
}

func TestParseBetStatus(t *testing.T) {
	status, ok := ParseBetStatus("cancelled")
	assert.True(t, ok)
	assert.Equal(t, BetStatusCancelled, status)

	_, ok = ParseBetStatus("pending")
	assert.False(t, ok)
}

func TestRefereeType_IsSupported(t *testing.T) {
	assert.True(t, RefereeTypeSelf.IsSupported())
	assert.True(t, RefereeTypeThirdParty.IsSupported())
	assert.False(t, RefereeTypeOracle.IsSupported())
	assert.False(t, RefereeTypeAutomated.IsSupported())
}

func TestBet_TermsIgnoreLifecycle(t *testing.T) {
	bet := newTestBet()
	before := bet.Terms()

	acceptor := testKey(2)
	acceptedAt := bet.CreatedAt.Add(time.Minute)
	bet.Acceptor = &acceptor
	bet.AcceptedAt = &acceptedAt
	bet.Status = BetStatusAccepted
	bet.Winner = &acceptor

	assert.Equal(t, before, bet.Terms())
}

func TestBet_TermsCoverAgreedFields(t *testing.T) {
	recipient := testKey(5)

	tests := []struct {
		name   string
		modify func(*Bet)
	}{
		{"odds", func(b *Bet) { b.OddsWin = 5 }},
		{"stake", func(b *Bet) { b.StakeAmount++ }},
		{"description", func(b *Bet) { b.Description = "Lakers lose tonight" }},
		{"referee", func(b *Bet) { b.RefereeType, b.Referee = RefereeTypeThirdParty, testKey(4) }},
		{"recipient", func(b *Bet) { b.Visibility, b.PrivateRecipient = VisibilityPrivate, &recipient }},
		{"expiry", func(b *Bet) { b.ExpiresAt = b.ExpiresAt.Add(time.Second) }},
		{"recreated", func(b *Bet) { b.CreatedAt = b.CreatedAt.Add(time.Second) }},
	}

	original := newTestBet().Terms()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bet := newTestBet()
			tt.modify(bet)
			assert.NotEqual(t, original, bet.Terms())
		})
	}
}
