package instruction

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"wagerledger/address"
)

const (
	SignatureSize         = ed25519.SignatureSize
	TransactionHeaderSize = 16

	// MaxTransactionSize bounds a wire encoded transaction carrying the
	// largest instruction Marshal accepts.
	MaxTransactionSize = SignatureSize + address.Size + TransactionHeaderSize +
		headerSize + maxAccounts*address.Size + 2 + maxDataSize
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrSignerMismatch     = errors.New("signing key does not match signer")
)

// Header is signed together with the instruction. Nonce lets a wallet submit
// the same instruction more than once under distinct signatures, and
// ExpiresAt (unix seconds) bounds how long a signed transaction stays valid.
type Header struct {
	Nonce     uint64
	ExpiresAt int64
}

func (h Header) marshal() []byte {
	b := make([]byte, TransactionHeaderSize)
	binary.LittleEndian.PutUint64(b[0:8], h.Nonce)
	binary.LittleEndian.PutUint64(b[8:16], uint64(h.ExpiresAt))
	return b
}

func (h *Header) unmarshal(b []byte) {
	h.Nonce = binary.LittleEndian.Uint64(b[0:8])
	h.ExpiresAt = int64(binary.LittleEndian.Uint64(b[8:16]))
}

// Transaction carries exactly one instruction signed by the wallet whose
// authority it exercises.
type Transaction struct {
	Signature   [SignatureSize]byte
	Signer      address.Address
	Header      Header
	Instruction *Instruction
}

// Message returns the bytes covered by the signature: program | header |
// instruction. The program id is part of the message so a transaction cannot
// be replayed against another ledger.
func Message(program address.Address, header Header, ix *Instruction) ([]byte, error) {
	encoded, err := ix.Marshal()
	if err != nil {
		return nil, err
	}

	b := make([]byte, 0, address.Size+TransactionHeaderSize+len(encoded))
	b = append(b, program.Bytes()...)
	b = append(b, header.marshal()...)
	return append(b, encoded...), nil
}

// Sign builds a transaction for op signed with key
func Sign(program address.Address, header Header, op Op, key ed25519.PrivateKey) (*Transaction, error) {
	ix, err := op.Instruction()
	if err != nil {
		return nil, err
	}

	signer, err := address.FromPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	if signer != op.Signer() {
		return nil, ErrSignerMismatch
	}

	message, err := Message(program, header, ix)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{Signer: signer, Header: header, Instruction: ix}
	copy(tx.Signature[:], ed25519.Sign(key, message))
	return tx, nil
}

// Verify checks the signature against the signer's public key
func (tx *Transaction) Verify(program address.Address) bool {
	if tx.Instruction == nil {
		return false
	}
	message, err := Message(program, tx.Header, tx.Instruction)
	if err != nil {
		return false
	}
	return ed25519.Verify(tx.Signer.PublicKey(), message, tx.Signature[:])
}

// Marshal encodes the transaction as signature | signer | header | instruction
func (tx *Transaction) Marshal() ([]byte, error) {
	if tx.Instruction == nil {
		return nil, errors.Wrap(ErrInvalidTransaction, "missing instruction")
	}
	encoded, err := tx.Instruction.Marshal()
	if err != nil {
		return nil, err
	}

	b := make([]byte, 0, SignatureSize+address.Size+TransactionHeaderSize+len(encoded))
	b = append(b, tx.Signature[:]...)
	b = append(b, tx.Signer[:]...)
	b = append(b, tx.Header.marshal()...)
	b = append(b, encoded...)
	return b, nil
}

func (tx *Transaction) Unmarshal(data []byte) error {
	const prefix = SignatureSize + address.Size + TransactionHeaderSize
	if len(data) < prefix {
		return errors.Wrap(ErrInvalidTransaction, "truncated transaction")
	}

	copy(tx.Signature[:], data[:SignatureSize])
	copy(tx.Signer[:], data[SignatureSize:SignatureSize+address.Size])
	tx.Header.unmarshal(data[SignatureSize+address.Size : prefix])

	var ix Instruction
	n, err := ix.Unmarshal(data[prefix:])
	if err != nil {
		return err
	}
	if prefix+n != len(data) {
		return errors.Wrap(ErrInvalidTransaction, "trailing bytes")
	}

	tx.Instruction = &ix
	return nil
}
