package models

import (
	"time"

	"wagerledger/address"
)

var SignatureDiscriminator = discriminatorFor("Signature")

const SignatureRecordSize = (DiscriminatorSize +
	address.Size + // signer
	8 + // nonce
	8 + // expires_at
	8 + // processed_at
	1 + // version
	1) // bump

// SignatureRecord marks a transaction signature as consumed. It is written in
// the same unit of work as the instruction it authorised, so a signature is
// either spent together with its effects or not at all.
type SignatureRecord struct {
	Signer      address.Address
	Nonce       uint64
	ExpiresAt   time.Time
	ProcessedAt time.Time
	Version     uint8
	Bump        uint8
}

func (s *SignatureRecord) Marshal() ([]byte, error) {
	b := make([]byte, SignatureRecordSize)
	var offset int

	putDiscriminator(b, SignatureDiscriminator, &offset)
	putKey(b, s.Signer, &offset)
	putUint64(b, s.Nonce, &offset)
	putTime(b, s.ExpiresAt, &offset)
	putTime(b, s.ProcessedAt, &offset)
	putUint8(b, s.Version, &offset)
	putUint8(b, s.Bump, &offset)

	return b, nil
}

func (s *SignatureRecord) Unmarshal(data []byte) error {
	if len(data) != SignatureRecordSize {
		return ErrInvalidAccountData
	}

	var offset int
	if !checkDiscriminator(data, SignatureDiscriminator, &offset) {
		return ErrInvalidAccountData
	}

	getKey(data, &s.Signer, &offset)
	getUint64(data, &s.Nonce, &offset)
	getTime(data, &s.ExpiresAt, &offset)
	getTime(data, &s.ProcessedAt, &offset)
	getUint8(data, &s.Version, &offset)
	getUint8(data, &s.Bump, &offset)

	return nil
}
