package wallet

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// messageMagic prefixes every signed message so signatures cannot be reused
// as transaction signatures.
const messageMagic = "Bitcoin Signed Message:\n"

var (
	// ErrInvalidAddress reports an address that fails base58check decoding.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrMalformedSignature reports a signature that cannot be decoded at
	// all. Distinct from a well-formed signature that does not match: the
	// boundary layer maps this to a 500-class response, not a 404.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrEmptyMessage reports a missing message.
	ErrEmptyMessage = errors.New("empty message")
)

// VerifyMessage checks that signature is a compact signed-message signature
// over message produced by the key owning address. A well-formed signature
// from the wrong key yields (false, nil); undecodable input yields an error
// wrapping ErrMalformedSignature.
func VerifyMessage(address, message, signature string) (bool, error) {
	version, _, err := decodeAddress(address)
	if err != nil {
		return false, err
	}
	if version != versionP2PKH {
		return false, fmt.Errorf("%w: signed messages require a pay-to-pubkey-hash address", ErrInvalidAddress)
	}
	if message == "" {
		return false, ErrEmptyMessage
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(sig) != 65 {
		return false, fmt.Errorf("%w: compact signature must be 65 bytes, got %d", ErrMalformedSignature, len(sig))
	}

	pubKey, compressed, err := secpecdsa.RecoverCompact(sig, MessageHash(message))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}

	var serialized []byte
	if compressed {
		serialized = pubKey.SerializeCompressed()
	} else {
		serialized = pubKey.SerializeUncompressed()
	}

	recovered := encodeAddress(versionP2PKH, hash160(serialized))
	return recovered == address, nil
}

// MessageHash computes the double-SHA256 digest that signed-message
// signatures commit to: varint-prefixed magic, then the varint-prefixed
// message.
func MessageHash(message string) []byte {
	buf := make([]byte, 0, len(messageMagic)+len(message)+10)
	buf = appendVarint(buf, uint64(len(messageMagic)))
	buf = append(buf, messageMagic...)
	buf = appendVarint(buf, uint64(len(message)))
	buf = append(buf, message...)
	return doubleSHA256(buf)
}

// appendVarint appends a Bitcoin-style compact size encoding of n.
func appendVarint(buf []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(buf, byte(n))
	case n <= 0xffff:
		buf = append(buf, 0xfd)
		return binary.LittleEndian.AppendUint16(buf, uint16(n))
	case n <= 0xffffffff:
		buf = append(buf, 0xfe)
		return binary.LittleEndian.AppendUint32(buf, uint32(n))
	default:
		buf = append(buf, 0xff)
		return binary.LittleEndian.AppendUint64(buf, n)
	}
}
