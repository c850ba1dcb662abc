package address

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProgramAddress(t *testing.T) {
	exceededSeed := make([]byte, maxSeedLength+1)
	maxSeed := make([]byte, maxSeedLength)

	rawKey, err := base58.Decode("SeedPubey1111111111111111111111111111111111")
	require.NoError(t, err)
	programID := MustParse("BPFLoader1111111111111111111111111111111111")

	_, err = CreateProgramAddress(programID, exceededSeed)
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)
	_, err = CreateProgramAddress(programID, []byte("short seed"), exceededSeed)
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)

	_, err = CreateProgramAddress(programID, maxSeed)
	assert.NoError(t, err)

	cases := []struct {
		expected string
		input    [][]byte
	}{
		{
			expected: "3gF2KMe9KiC6FNVBmfg9i267aMPvK37FewCip4eGBFcT",
			input:    [][]byte{{}, {1}},
		},
		{
			expected: "7ytmC1nT1xY4RfxCV2ZgyA7UakC93do5ZdyhdF3EtPj7",
			input:    [][]byte{[]byte("☉")},
		},
		{
			expected: "HwRVBufQ4haG5XSgpspwKtNd3PC9GM9m1196uJW36vds",
			input:    [][]byte{[]byte("Talking"), []byte("Squirrels")},
		},
		{
			expected: "GUs5qLUfsEHkcMB9T38vjr18ypEhRuNWiePW2LoK4E3K",
			input:    [][]byte{rawKey},
		},
	}

	for _, tc := range cases {
		key, err := CreateProgramAddress(programID, tc.input...)
		assert.NoError(t, err)
		assert.Equal(t, tc.expected, key.String())
	}
}

func TestCreateProgramAddress_TooManySeeds(t *testing.T) {
	seeds := make([][]byte, maxSeeds+1)
	_, err := CreateProgramAddress(newProgramID(t), seeds...)
	assert.Equal(t, ErrTooManySeeds, err)
}

func TestFindProgramAddress_OffCurve(t *testing.T) {
	for i := 0; i < 200; i++ {
		program := newProgramID(t)

		addr, bump, err := FindProgramAddressAndBump(program, []byte("Lil'"), []byte("Bits"))
		require.NoError(t, err)
		assert.False(t, IsOnCurve(addr))

		recreated, err := CreateProgramAddress(program, []byte("Lil'"), []byte("Bits"), []byte{bump})
		require.NoError(t, err)
		assert.Equal(t, addr, recreated)
	}
}

func TestWalletKeysAreOnCurve(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	wallet, err := FromPublicKey(pub)
	require.NoError(t, err)
	assert.True(t, IsOnCurve(wallet))
}

func TestParse(t *testing.T) {
	program := newProgramID(t)

	parsed, err := Parse(program.String())
	require.NoError(t, err)
	assert.Equal(t, program, parsed)

	_, err = Parse("not-base58-0OIl")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = Parse(base58.Encode([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddress_TextRoundTrip(t *testing.T) {
	program := newProgramID(t)

	text, err := program.MarshalText()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, program, decoded)
}

func newProgramID(t *testing.T) Address {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	a, err := FromPublicKey(pub)
	require.NoError(t, err)
	return a
}
