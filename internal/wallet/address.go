// Package wallet implements address validation and signed-message
// verification for wallet ownership proofs.
package wallet

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

const (
	versionP2PKH = 0x00
	versionP2SH  = 0x05
)

// IsValidAddress reports whether addr is a well-formed base58check address
// with a known version byte.
func IsValidAddress(addr string) bool {
	_, _, err := decodeAddress(addr)
	return err == nil
}

// decodeAddress returns the version byte and 20-byte payload of a
// base58check address.
func decodeAddress(addr string) (byte, []byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return 0, nil, ErrInvalidAddress
	}
	if len(raw) != 25 {
		return 0, nil, ErrInvalidAddress
	}

	version := raw[0]
	if version != versionP2PKH && version != versionP2SH {
		return 0, nil, ErrInvalidAddress
	}

	payload, checksum := raw[:21], raw[21:]
	expected := doubleSHA256(payload)[:4]
	for i := range checksum {
		if checksum[i] != expected[i] {
			return 0, nil, ErrInvalidAddress
		}
	}
	return version, raw[1:21], nil
}

// encodeAddress base58check-encodes a version byte and pubkey hash.
func encodeAddress(version byte, pubKeyHash []byte) string {
	payload := make([]byte, 0, 25)
	payload = append(payload, version)
	payload = append(payload, pubKeyHash...)
	payload = append(payload, doubleSHA256(payload)[:4]...)
	return base58.Encode(payload)
}

func doubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

func hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	ripe := ripemd160.New()
	ripe.Write(sha[:])
	return ripe.Sum(nil)
}
