/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package concatkdf implements the single-step key derivation function of
// NIST SP 800-56A section 5.8.1 with SHA-256, using the OtherInfo layout of
// RFC 7518 section 4.6.2 (Concat KDF as used by JWA ECDH-ES). Both ends of a
// conversation derive the key-encryption key independently, so the output
// must be reproducible bit for bit.
package concatkdf

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	cryptoapi "github.com/transaction-authorization/tap-go/pkg/crypto"
)

// Derive derives keyLenBits/8 bytes of key material from the raw ECDH shared
// secret z. alg, apu and apv are bound into OtherInfo with 32-bit big-endian
// length prefixes as per RFC 7518 section 4.6.2.
//
// keyLenBits must be a non-zero multiple of 8.
func Derive(z []byte, alg string, apu, apv []byte, keyLenBits uint32) ([]byte, error) {
	if keyLenBits == 0 || keyLenBits%8 != 0 {
		return nil, fmt.Errorf("concatkdf: key length %d bits: %w", keyLenBits, cryptoapi.ErrInvalidParameter)
	}

	otherInfo := buildOtherInfo(alg, apu, apv, keyLenBits)

	keyLen := int(keyLenBits / 8)
	reps := (keyLen + sha256.Size - 1) / sha256.Size

	derived := make([]byte, 0, reps*sha256.Size)

	for counter := uint32(1); counter <= uint32(reps); counter++ {
		var round [4]byte

		binary.BigEndian.PutUint32(round[:], counter)

		h := sha256.New()
		h.Write(round[:])  //nolint:errcheck // sha256 Write never fails
		h.Write(z)         //nolint:errcheck
		h.Write(otherInfo) //nolint:errcheck

		derived = h.Sum(derived)
	}

	return derived[:keyLen], nil
}

// buildOtherInfo assembles AlgorithmID || PartyUInfo || PartyVInfo ||
// SuppPubInfo, each datum length-prefixed and SuppPubInfo being the key
// length in bits.
func buildOtherInfo(alg string, apu, apv []byte, keyLenBits uint32) []byte {
	supPubInfo := make([]byte, 4)
	binary.BigEndian.PutUint32(supPubInfo, keyLenBits)

	var info []byte

	info = append(info, lengthPrefix([]byte(alg))...)
	info = append(info, lengthPrefix(apu)...)
	info = append(info, lengthPrefix(apv)...)
	info = append(info, supPubInfo...)

	return info
}

// lengthPrefix returns data prefixed with a big-endian uint32 of its length.
func lengthPrefix(data []byte) []byte {
	prefixed := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(prefixed, uint32(len(data)))
	copy(prefixed[4:], data)

	return prefixed
}
