/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package keywrap implements the AES Key Wrap algorithm of RFC 3394. It is
// used to wrap a content-encryption key under a derived key-encryption key
// inside JWE envelopes; the embedded integrity check value gives recipients
// tamper evidence on the wrapped key independent of the content AEAD tag.
package keywrap

import (
	"crypto/aes"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	cryptoapi "github.com/transaction-authorization/tap-go/pkg/crypto"
)

const blockLen = 8

// defaultIV is the initial value of RFC 3394 section 2.2.3.1.
var defaultIV = []byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// Wrap wraps cek under kek as per RFC 3394 section 2.2.1. kek must be a
// valid AES key (16, 24 or 32 bytes); cek must be at least 16 bytes and a
// multiple of 8. The output is len(cek)+8 bytes.
func Wrap(kek, cek []byte) ([]byte, error) {
	if len(cek) < 2*blockLen || len(cek)%blockLen != 0 {
		return nil, fmt.Errorf("keywrap: plaintext key length %d: %w", len(cek), cryptoapi.ErrInvalidParameter)
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("keywrap: %w", cryptoapi.ErrInvalidKey)
	}

	n := len(cek) / blockLen

	r := make([]byte, len(cek))
	copy(r, cek)

	a := make([]byte, blockLen)
	copy(a, defaultIV)

	buf := make([]byte, 2*blockLen)

	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			copy(buf[:blockLen], a)
			copy(buf[blockLen:], r[(i-1)*blockLen:i*blockLen])

			block.Encrypt(buf, buf)

			t := uint64(n*j + i)
			binary.BigEndian.PutUint64(a, binary.BigEndian.Uint64(buf[:blockLen])^t)
			copy(r[(i-1)*blockLen:i*blockLen], buf[blockLen:])
		}
	}

	wrapped := make([]byte, 0, len(cek)+blockLen)
	wrapped = append(wrapped, a...)
	wrapped = append(wrapped, r...)

	return wrapped, nil
}

// Unwrap unwraps a key wrapped with Wrap and verifies the integrity check
// value before returning it. wrapped must be at least 24 bytes and a
// multiple of 8. On a wrong kek, truncation or any bit corruption the
// integrity check fails and no partial plaintext is returned.
func Unwrap(kek, wrapped []byte) ([]byte, error) {
	if len(wrapped) < 3*blockLen || len(wrapped)%blockLen != 0 {
		return nil, fmt.Errorf("keywrap: wrapped key length %d: %w", len(wrapped), cryptoapi.ErrInvalidParameter)
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("keywrap: %w", cryptoapi.ErrInvalidKey)
	}

	n := len(wrapped)/blockLen - 1

	a := make([]byte, blockLen)
	copy(a, wrapped[:blockLen])

	r := make([]byte, len(wrapped)-blockLen)
	copy(r, wrapped[blockLen:])

	buf := make([]byte, 2*blockLen)

	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			binary.BigEndian.PutUint64(buf[:blockLen], binary.BigEndian.Uint64(a)^t)
			copy(buf[blockLen:], r[(i-1)*blockLen:i*blockLen])

			block.Decrypt(buf, buf)

			copy(a, buf[:blockLen])
			copy(r[(i-1)*blockLen:i*blockLen], buf[blockLen:])
		}
	}

	if subtle.ConstantTimeCompare(a, defaultIV) != 1 {
		return nil, fmt.Errorf("keywrap: %w", cryptoapi.ErrIntegrityCheckFailed)
	}

	return r, nil
}
