package models

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"strings"
	"time"

	"wagerledger/address"
)

const (
	DiscriminatorSize = 8
	NameSize          = 32
	DescriptionSize   = 128
	RecordVersion     = 1
)

var (
	ErrInvalidAccountData = errors.New("invalid account data")
	ErrFieldTooLong       = errors.New("value exceeds fixed field capacity")
)

// discriminatorFor returns the 8 byte tag that prefixes every record layout.
func discriminatorFor(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// FixedString copies value into a nul padded buffer of the given capacity.
func FixedString(value string, capacity int) ([]byte, error) {
	if len(value) > capacity {
		return nil, ErrFieldTooLong
	}
	fixed := make([]byte, capacity)
	copy(fixed, value)
	return fixed, nil
}

func trimPadding(value []byte) string {
	return strings.TrimRight(string(value), string([]byte{0}))
}

func putDiscriminator(dst []byte, v [DiscriminatorSize]byte, offset *int) {
	copy(dst[*offset:], v[:])
	*offset += DiscriminatorSize
}

func checkDiscriminator(src []byte, want [DiscriminatorSize]byte, offset *int) bool {
	ok := string(src[*offset:*offset+DiscriminatorSize]) == string(want[:])
	*offset += DiscriminatorSize
	return ok
}

func putKey(dst []byte, v address.Address, offset *int) {
	copy(dst[*offset:], v[:])
	*offset += address.Size
}

func getKey(src []byte, dst *address.Address, offset *int) {
	copy(dst[:], src[*offset:*offset+address.Size])
	*offset += address.Size
}

func putOptionalKey(dst []byte, v *address.Address, offset *int) {
	if v == nil {
		putUint8(dst, 0, offset)
		*offset += address.Size
		return
	}
	putUint8(dst, 1, offset)
	putKey(dst, *v, offset)
}

func getOptionalKey(src []byte, dst **address.Address, offset *int) {
	var tag uint8
	getUint8(src, &tag, offset)
	if tag == 0 {
		*dst = nil
		*offset += address.Size
		return
	}
	var key address.Address
	getKey(src, &key, offset)
	*dst = &key
}

func putFixedString(dst []byte, v string, length int, offset *int) {
	copy(dst[*offset:*offset+length], v)
	*offset += length
}

func getFixedString(src []byte, dst *string, length int, offset *int) {
	*dst = trimPadding(src[*offset : *offset+length])
	*offset += length
}

func putUint8(dst []byte, v uint8, offset *int) {
	dst[*offset] = v
	*offset += 1
}

func getUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[*offset]
	*offset += 1
}

func putUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst[*offset:], v)
	*offset += 4
}

func getUint32(src []byte, dst *uint32, offset *int) {
	*dst = binary.LittleEndian.Uint32(src[*offset:])
	*offset += 4
}

func putUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst[*offset:], v)
	*offset += 8
}

func getUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src[*offset:])
	*offset += 8
}

func putInt64(dst []byte, v int64, offset *int) {
	putUint64(dst, uint64(v), offset)
}

func getInt64(src []byte, dst *int64, offset *int) {
	var v uint64
	getUint64(src, &v, offset)
	*dst = int64(v)
}

func putTime(dst []byte, v time.Time, offset *int) {
	putInt64(dst, v.Unix(), offset)
}

func getTime(src []byte, dst *time.Time, offset *int) {
	var sec int64
	getInt64(src, &sec, offset)
	*dst = time.Unix(sec, 0).UTC()
}

func putOptionalTime(dst []byte, v *time.Time, offset *int) {
	if v == nil {
		putUint8(dst, 0, offset)
		*offset += 8
		return
	}
	putUint8(dst, 1, offset)
	putTime(dst, *v, offset)
}

func getOptionalTime(src []byte, dst **time.Time, offset *int) {
	var tag uint8
	getUint8(src, &tag, offset)
	if tag == 0 {
		*dst = nil
		*offset += 8
		return
	}
	var t time.Time
	getTime(src, &t, offset)
	*dst = &t
}
