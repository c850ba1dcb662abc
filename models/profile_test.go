package models

import (
	"testing"
	"time"

	"wagerledger/address"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) address.Address {
	var a address.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestProfile_LayoutIsStable(t *testing.T) {
	assert.Equal(t, 128, ProfileSize)
	assert.Equal(t, 416, BetSize)
	assert.Equal(t, 160, FriendshipSize)
}

func TestProfile_MarshalUnmarshal(t *testing.T) {
	original := &Profile{
		Wallet:           testKey(7),
		Name:             "alice",
		BetsCreated:      4,
		BetsCancelled:    1,
		BetsAccepted:     2,
		BetsCreatedWon:   1,
		BetsCreatedLost:  2,
		BetsAcceptedWon:  1,
		BetsAcceptedLost: 0,
		TotalProfit:      -1_500_000_000,
		CreatedAt:        time.Unix(1_700_000_000, 0).UTC(),
		Version:          RecordVersion,
		Bump:             254,
	}

	data, err := original.Marshal()
	require.NoError(t, err)
	require.Len(t, data, ProfileSize)
	assert.Equal(t, ProfileDiscriminator[:], data[:DiscriminatorSize])

	var decoded Profile
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, *original, decoded)
	assert.Equal(t, uint64(2), decoded.TotalWins())
	assert.Equal(t, uint64(2), decoded.TotalLosses())
}

func TestProfile_NameTooLong(t *testing.T) {
	p := &Profile{Name: "this name is definitely longer than 32 bytes"}
	_, err := p.Marshal()
	assert.ErrorIs(t, err, ErrFieldTooLong)
}

func TestProfile_UnmarshalRejectsForeignData(t *testing.T) {
	var p Profile

	assert.ErrorIs(t, p.Unmarshal(make([]byte, ProfileSize-1)), ErrInvalidAccountData)

	// Right size, wrong tag
	data := make([]byte, ProfileSize)
	copy(data, BetDiscriminator[:])
	assert.ErrorIs(t, p.Unmarshal(data), ErrInvalidAccountData)
}

func TestFixedString(t *testing.T) {
	fixed, err := FixedString("bob", NameSize)
	require.NoError(t, err)
	assert.Len(t, fixed, NameSize)
	assert.Equal(t, "bob", trimPadding(fixed))

	_, err = FixedString(string(make([]byte, NameSize+1)), NameSize)
	assert.ErrorIs(t, err, ErrFieldTooLong)
}
