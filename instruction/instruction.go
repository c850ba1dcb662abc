package instruction

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"wagerledger/address"
)

// Opcode selects the ledger operation an instruction performs
type Opcode uint8

const (
	OpCreateProfile Opcode = iota
	OpCreateBet
	OpAcceptBet
	OpCancelBet
	OpResolveBet
	OpAddFriend
	OpAcceptFriend
	OpCloseBet
)

func (o Opcode) String() string {
	switch o {
	case OpCreateProfile:
		return "create_profile"
	case OpCreateBet:
		return "create_bet"
	case OpAcceptBet:
		return "accept_bet"
	case OpCancelBet:
		return "cancel_bet"
	case OpResolveBet:
		return "resolve_bet"
	case OpAddFriend:
		return "add_friend"
	case OpAcceptFriend:
		return "accept_friend"
	case OpCloseBet:
		return "close_bet"
	default:
		return "unknown"
	}
}

const (
	WireVersion = 1

	headerSize  = 1 + 1 + 1 // version + opcode + account count
	maxAccounts = 16
	maxDataSize = 1024
)

var (
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrUnknownOpcode      = errors.New("unknown opcode")
	ErrAccountCount       = errors.New("unexpected number of accounts")
)

// Instruction is the generic wire form: an opcode, the ordered accounts it
// touches and opcode specific argument bytes.
type Instruction struct {
	Opcode   Opcode
	Accounts []address.Address
	Data     []byte
}

// Marshal encodes the instruction as
//
//	version u8 | opcode u8 | n u8 | n * 32 byte accounts | len u16 | data
func (i *Instruction) Marshal() ([]byte, error) {
	if len(i.Accounts) > maxAccounts {
		return nil, errors.Wrapf(ErrInvalidInstruction, "%d accounts exceeds limit", len(i.Accounts))
	}
	if len(i.Data) > maxDataSize {
		return nil, errors.Wrapf(ErrInvalidInstruction, "%d data bytes exceeds limit", len(i.Data))
	}

	b := make([]byte, 0, headerSize+len(i.Accounts)*address.Size+2+len(i.Data))
	b = append(b, WireVersion, byte(i.Opcode), byte(len(i.Accounts)))
	for _, account := range i.Accounts {
		b = append(b, account[:]...)
	}
	b = binary.LittleEndian.AppendUint16(b, uint16(len(i.Data)))
	b = append(b, i.Data...)
	return b, nil
}

// Unmarshal decodes an instruction and returns the number of bytes consumed
func (i *Instruction) Unmarshal(data []byte) (int, error) {
	if len(data) < headerSize {
		return 0, errors.Wrap(ErrInvalidInstruction, "truncated header")
	}
	if data[0] != WireVersion {
		return 0, errors.Wrapf(ErrInvalidInstruction, "unsupported version %d", data[0])
	}

	i.Opcode = Opcode(data[1])
	count := int(data[2])
	if count > maxAccounts {
		return 0, errors.Wrapf(ErrInvalidInstruction, "%d accounts exceeds limit", count)
	}

	offset := headerSize
	if len(data) < offset+count*address.Size+2 {
		return 0, errors.Wrap(ErrInvalidInstruction, "truncated accounts")
	}

	i.Accounts = make([]address.Address, count)
	for n := range i.Accounts {
		copy(i.Accounts[n][:], data[offset:offset+address.Size])
		offset += address.Size
	}

	size := int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	if size > maxDataSize || len(data) < offset+size {
		return 0, errors.Wrap(ErrInvalidInstruction, "truncated data")
	}

	i.Data = append([]byte(nil), data[offset:offset+size]...)
	offset += size

	return offset, nil
}

// Op is implemented by every typed instruction
type Op interface {
	Opcode() Opcode
	// Signer returns the account that must sign the transaction
	Signer() address.Address
	Instruction() (*Instruction, error)
}

// Parse converts a generic instruction into its typed form
func Parse(i *Instruction) (Op, error) {
	var op interface {
		Op
		decode(accounts []address.Address, data []byte) error
	}

	switch i.Opcode {
	case OpCreateProfile:
		op = &CreateProfile{}
	case OpCreateBet:
		op = &CreateBet{}
	case OpAcceptBet:
		op = &AcceptBet{}
	case OpCancelBet:
		op = &CancelBet{}
	case OpResolveBet:
		op = &ResolveBet{}
	case OpAddFriend:
		op = &AddFriend{}
	case OpAcceptFriend:
		op = &AcceptFriend{}
	case OpCloseBet:
		op = &CloseBet{}
	default:
		return nil, errors.Wrapf(ErrUnknownOpcode, "opcode %d", i.Opcode)
	}

	if err := op.decode(i.Accounts, i.Data); err != nil {
		return nil, errors.Wrap(err, i.Opcode.String())
	}
	return op, nil
}

func expectAccounts(accounts []address.Address, n int) error {
	if len(accounts) != n {
		return errors.Wrapf(ErrAccountCount, "want %d, got %d", n, len(accounts))
	}
	return nil
}
