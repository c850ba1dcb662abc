// Package address derives the deterministic account addresses used by the
// ledger. Derived addresses are sha256 digests of a seed list and the program
// id that are guaranteed to fall off the ed25519 curve, so no private key can
// ever sign for them.
package address

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"math"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

const (
	Size = ed25519.PublicKeySize

	maxSeeds      = 16
	maxSeedLength = 32
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")
	ErrInvalidPublicKey      = errors.New("invalid public key")
	ErrNoViableBump          = errors.New("unable to find a viable bump seed")
	ErrInvalidAddress        = errors.New("invalid address")
)

var programAddressMarker = []byte("ProgramDerivedAddress")

// Address is a 32 byte account identifier. Wallets use their ed25519 public
// key; ledger records use a derived address.
type Address [Size]byte

// Zero is the empty address. It is used where an instruction slot is unused.
var Zero Address

// FromPublicKey converts an ed25519 public key into an Address.
func FromPublicKey(pub ed25519.PublicKey) (Address, error) {
	var a Address
	if len(pub) != Size {
		return a, ErrInvalidAddress
	}
	copy(a[:], pub)
	return a, nil
}

// FromBytes converts a raw 32 byte slice into an Address.
func FromBytes(b []byte) (Address, error) {
	return FromPublicKey(b)
}

// Parse decodes a base58 encoded address.
func Parse(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Zero, errors.Wrap(ErrInvalidAddress, err.Error())
	}
	return FromBytes(raw)
}

// MustParse is Parse for package level constants and tests.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) PublicKey() ed25519.PublicKey {
	return ed25519.PublicKey(a[:])
}

func (a Address) IsZero() bool {
	return a == Zero
}

// Less orders addresses bytewise.
func (a Address) Less(b Address) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// CreateProgramAddress hashes the seeds, the program id and a fixed marker.
// If the digest is a valid compressed edwards point, ErrInvalidPublicKey is
// returned and the caller must try a different bump.
func CreateProgramAddress(program Address, seeds ...[]byte) (Address, error) {
	if len(seeds) > maxSeeds {
		return Zero, ErrTooManySeeds
	}

	h := sha256.New()
	for _, s := range seeds {
		if len(s) > maxSeedLength {
			return Zero, ErrMaxSeedLengthExceeded
		}
		if _, err := h.Write(s); err != nil {
			return Zero, errors.Wrap(err, "failed to hash seed")
		}
	}
	for _, v := range [][]byte{program[:], programAddressMarker} {
		if _, err := h.Write(v); err != nil {
			return Zero, errors.Wrap(err, "failed to hash seed")
		}
	}

	var pub [32]byte
	copy(pub[:], h.Sum(nil))

	var A edwards25519.ExtendedGroupElement
	if A.FromBytes(&pub) {
		return Zero, ErrInvalidPublicKey
	}

	return Address(pub), nil
}

// FindProgramAddressAndBump searches bump seeds from 255 downwards and
// returns the first off-curve address together with its bump.
func FindProgramAddressAndBump(program Address, seeds ...[]byte) (Address, uint8, error) {
	bumpSeed := []byte{math.MaxUint8}
	for i := 0; i < math.MaxUint8; i++ {
		addr, err := CreateProgramAddress(program, append(seeds, bumpSeed)...)
		if err == nil {
			return addr, bumpSeed[0], nil
		}
		if err != ErrInvalidPublicKey {
			return Zero, 0, err
		}
		bumpSeed[0]--
	}
	return Zero, 0, ErrNoViableBump
}

// IsOnCurve reports whether the address is a valid ed25519 public key, i.e.
// whether some private key could sign for it.
func IsOnCurve(a Address) bool {
	var A edwards25519.ExtendedGroupElement
	pub := [32]byte(a)
	return A.FromBytes(&pub)
}
