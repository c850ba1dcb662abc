package instruction

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"wagerledger/address"
)

const (
	nameSize        = 32
	descriptionSize = 128

	// TermsSize is the length of the bet terms digest an acceptor signs
	TermsSize = 32
)

// CreateProfile registers a display name for the signing wallet
type CreateProfile struct {
	Wallet  address.Address
	Profile address.Address
	Name    string
}

func (op *CreateProfile) Opcode() Opcode          { return OpCreateProfile }
func (op *CreateProfile) Signer() address.Address { return op.Wallet }

func (op *CreateProfile) Instruction() (*Instruction, error) {
	if len(op.Name) > nameSize {
		return nil, errors.Wrap(ErrInvalidInstruction, "name exceeds 32 bytes")
	}
	var w writer
	w.fixed(op.Name, nameSize)
	return &Instruction{
		Opcode:   OpCreateProfile,
		Accounts: []address.Address{op.Wallet, op.Profile},
		Data:     w.bytes(),
	}, nil
}

func (op *CreateProfile) decode(accounts []address.Address, data []byte) error {
	if err := expectAccounts(accounts, 2); err != nil {
		return err
	}
	op.Wallet, op.Profile = accounts[0], accounts[1]

	r := reader{data: data}
	op.Name = r.fixed(nameSize)
	return r.done()
}

// CreateBet opens a new bet funded by the creator's stake
type CreateBet struct {
	Creator          address.Address
	Profile          address.Address
	Bet              address.Address
	Vault            address.Address
	Referee          address.Address
	Friendship       address.Address
	Description      string
	StakeAmount      uint64
	RefereeType      uint8
	Category         uint8
	OddsWin          uint64
	OddsLose         uint64
	ExpiresAt        int64
	Visibility       uint8
	PrivateRecipient *address.Address
}

func (op *CreateBet) Opcode() Opcode          { return OpCreateBet }
func (op *CreateBet) Signer() address.Address { return op.Creator }

func (op *CreateBet) Instruction() (*Instruction, error) {
	if len(op.Description) > descriptionSize {
		return nil, errors.Wrap(ErrInvalidInstruction, "description exceeds 128 bytes")
	}
	var w writer
	w.uint8(uint8(len(op.Description)))
	w.raw([]byte(op.Description))
	w.uint64(op.StakeAmount)
	w.uint8(op.RefereeType)
	w.uint8(op.Category)
	w.uint64(op.OddsWin)
	w.uint64(op.OddsLose)
	w.uint64(uint64(op.ExpiresAt))
	w.uint8(op.Visibility)
	w.optionalKey(op.PrivateRecipient)
	return &Instruction{
		Opcode:   OpCreateBet,
		Accounts: []address.Address{op.Creator, op.Profile, op.Bet, op.Vault, op.Referee, op.Friendship},
		Data:     w.bytes(),
	}, nil
}

func (op *CreateBet) decode(accounts []address.Address, data []byte) error {
	if err := expectAccounts(accounts, 6); err != nil {
		return err
	}
	op.Creator, op.Profile, op.Bet = accounts[0], accounts[1], accounts[2]
	op.Vault, op.Referee, op.Friendship = accounts[3], accounts[4], accounts[5]

	r := reader{data: data}
	length := int(r.uint8())
	if length > descriptionSize {
		return errors.Wrap(ErrInvalidInstruction, "description exceeds 128 bytes")
	}
	op.Description = string(r.raw(length))
	op.StakeAmount = r.uint64()
	op.RefereeType = r.uint8()
	op.Category = r.uint8()
	op.OddsWin = r.uint64()
	op.OddsLose = r.uint64()
	op.ExpiresAt = int64(r.uint64())
	op.Visibility = r.uint8()
	op.PrivateRecipient = r.optionalKey()
	return r.done()
}

// AcceptBet matches an open bet with the acceptor's derived stake. Terms is
// the digest of the bet the acceptor agreed to; a bet whose terms differ is
// never accepted.
type AcceptBet struct {
	Acceptor        address.Address
	Creator         address.Address
	AcceptorProfile address.Address
	Bet             address.Address
	Vault           address.Address
	Terms           [TermsSize]byte
}

func (op *AcceptBet) Opcode() Opcode          { return OpAcceptBet }
func (op *AcceptBet) Signer() address.Address { return op.Acceptor }

func (op *AcceptBet) Instruction() (*Instruction, error) {
	return &Instruction{
		Opcode:   OpAcceptBet,
		Accounts: []address.Address{op.Acceptor, op.Creator, op.AcceptorProfile, op.Bet, op.Vault},
		Data:     append([]byte(nil), op.Terms[:]...),
	}, nil
}

func (op *AcceptBet) decode(accounts []address.Address, data []byte) error {
	if err := expectAccounts(accounts, 5); err != nil {
		return err
	}
	op.Acceptor, op.Creator, op.AcceptorProfile = accounts[0], accounts[1], accounts[2]
	op.Bet, op.Vault = accounts[3], accounts[4]

	r := &reader{data: data}
	copy(op.Terms[:], r.take(TermsSize))
	return r.done()
}

// CancelBet withdraws an open bet and refunds the creator
type CancelBet struct {
	Creator address.Address
	Profile address.Address
	Bet     address.Address
	Vault   address.Address
}

func (op *CancelBet) Opcode() Opcode          { return OpCancelBet }
func (op *CancelBet) Signer() address.Address { return op.Creator }

func (op *CancelBet) Instruction() (*Instruction, error) {
	return &Instruction{
		Opcode:   OpCancelBet,
		Accounts: []address.Address{op.Creator, op.Profile, op.Bet, op.Vault},
	}, nil
}

func (op *CancelBet) decode(accounts []address.Address, data []byte) error {
	if err := expectAccounts(accounts, 4); err != nil {
		return err
	}
	op.Creator, op.Profile, op.Bet, op.Vault = accounts[0], accounts[1], accounts[2], accounts[3]
	return (&reader{data: data}).done()
}

// ResolveBet records the referee's decision and pays out the vault
type ResolveBet struct {
	Referee         address.Address
	Creator         address.Address
	Acceptor        address.Address
	CreatorProfile  address.Address
	AcceptorProfile address.Address
	Bet             address.Address
	Vault           address.Address
	WinnerIsCreator bool
}

func (op *ResolveBet) Opcode() Opcode          { return OpResolveBet }
func (op *ResolveBet) Signer() address.Address { return op.Referee }

func (op *ResolveBet) Instruction() (*Instruction, error) {
	var w writer
	w.bool(op.WinnerIsCreator)
	return &Instruction{
		Opcode: OpResolveBet,
		Accounts: []address.Address{
			op.Referee,
			op.Creator,
			op.Acceptor,
			op.CreatorProfile,
			op.AcceptorProfile,
			op.Bet,
			op.Vault,
		},
		Data: w.bytes(),
	}, nil
}

func (op *ResolveBet) decode(accounts []address.Address, data []byte) error {
	if err := expectAccounts(accounts, 7); err != nil {
		return err
	}
	op.Referee, op.Creator, op.Acceptor = accounts[0], accounts[1], accounts[2]
	op.CreatorProfile, op.AcceptorProfile = accounts[3], accounts[4]
	op.Bet, op.Vault = accounts[5], accounts[6]

	r := reader{data: data}
	op.WinnerIsCreator = r.bool()
	return r.done()
}

// AddFriend requests a friendship with the owner of the target profile
type AddFriend struct {
	Requester        address.Address
	RequesterProfile address.Address
	TargetProfile    address.Address
	Friendship       address.Address
}

func (op *AddFriend) Opcode() Opcode          { return OpAddFriend }
func (op *AddFriend) Signer() address.Address { return op.Requester }

func (op *AddFriend) Instruction() (*Instruction, error) {
	return &Instruction{
		Opcode:   OpAddFriend,
		Accounts: []address.Address{op.Requester, op.RequesterProfile, op.TargetProfile, op.Friendship},
	}, nil
}

func (op *AddFriend) decode(accounts []address.Address, data []byte) error {
	if err := expectAccounts(accounts, 4); err != nil {
		return err
	}
	op.Requester, op.RequesterProfile = accounts[0], accounts[1]
	op.TargetProfile, op.Friendship = accounts[2], accounts[3]
	return (&reader{data: data}).done()
}

// AcceptFriend answers a pending friend request
type AcceptFriend struct {
	Accepter   address.Address
	Friendship address.Address
}

func (op *AcceptFriend) Opcode() Opcode          { return OpAcceptFriend }
func (op *AcceptFriend) Signer() address.Address { return op.Accepter }

func (op *AcceptFriend) Instruction() (*Instruction, error) {
	return &Instruction{
		Opcode:   OpAcceptFriend,
		Accounts: []address.Address{op.Accepter, op.Friendship},
	}, nil
}

func (op *AcceptFriend) decode(accounts []address.Address, data []byte) error {
	if err := expectAccounts(accounts, 2); err != nil {
		return err
	}
	op.Accepter, op.Friendship = accounts[0], accounts[1]
	return (&reader{data: data}).done()
}

// CloseBet removes a cancelled or resolved bet and its vault. Anyone may
// sign; leftover vault lamports go to the creator.
type CloseBet struct {
	Closer  address.Address
	Creator address.Address
	Bet     address.Address
	Vault   address.Address
}

func (op *CloseBet) Opcode() Opcode          { return OpCloseBet }
func (op *CloseBet) Signer() address.Address { return op.Closer }

func (op *CloseBet) Instruction() (*Instruction, error) {
	return &Instruction{
		Opcode:   OpCloseBet,
		Accounts: []address.Address{op.Closer, op.Creator, op.Bet, op.Vault},
	}, nil
}

func (op *CloseBet) decode(accounts []address.Address, data []byte) error {
	if err := expectAccounts(accounts, 4); err != nil {
		return err
	}
	op.Closer, op.Creator, op.Bet, op.Vault = accounts[0], accounts[1], accounts[2], accounts[3]
	return (&reader{data: data}).done()
}

type writer struct {
	buf []byte
}

func (w *writer) bytes() []byte { return w.buf }

func (w *writer) raw(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) uint8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) bool(v bool) {
	if v {
		w.uint8(1)
	} else {
		w.uint8(0)
	}
}

func (w *writer) uint64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *writer) fixed(v string, size int) {
	field := make([]byte, size)
	copy(field, v)
	w.raw(field)
}

func (w *writer) optionalKey(v *address.Address) {
	if v == nil {
		w.uint8(0)
		return
	}
	w.uint8(1)
	w.raw(v[:])
}

// reader records the first short read and returns zero values afterwards so
// decoders can read every field and check once at the end.
type reader struct {
	data   []byte
	offset int
	err    error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if len(r.data)-r.offset < n {
		r.err = errors.Wrap(ErrInvalidInstruction, "truncated arguments")
		return make([]byte, n)
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

func (r *reader) raw(n int) []byte { return append([]byte(nil), r.take(n)...) }

func (r *reader) uint8() uint8 { return r.take(1)[0] }

func (r *reader) bool() bool {
	switch v := r.uint8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		if r.err == nil {
			r.err = errors.Wrapf(ErrInvalidInstruction, "invalid bool %d", v)
		}
		return false
	}
}

func (r *reader) uint64() uint64 { return binary.LittleEndian.Uint64(r.take(8)) }

func (r *reader) fixed(size int) string {
	b := r.take(size)
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}

func (r *reader) optionalKey() *address.Address {
	switch tag := r.uint8(); tag {
	case 0:
		return nil
	case 1:
		var key address.Address
		copy(key[:], r.take(address.Size))
		return &key
	default:
		if r.err == nil {
			r.err = errors.Wrapf(ErrInvalidInstruction, "invalid option tag %d", tag)
		}
		return nil
	}
}

func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.offset != len(r.data) {
		return errors.Wrapf(ErrInvalidInstruction, "%d trailing bytes", len(r.data)-r.offset)
	}
	return nil
}
