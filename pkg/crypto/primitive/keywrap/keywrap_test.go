/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keywrap

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoapi "github.com/transaction-authorization/tap-go/pkg/crypto"
)

// TestWrapRFC3394Vectors checks the test vectors of RFC 3394 section 4.
func TestWrapRFC3394Vectors(t *testing.T) {
	tests := []struct {
		name    string
		kek     string
		cek     string
		wrapped string
	}{
		{
			name:    "128 bits of key data with a 128-bit KEK",
			kek:     "000102030405060708090a0b0c0d0e0f",
			cek:     "00112233445566778899aabbccddeeff",
			wrapped: "1fa68b0a8112b447aef34bd8fb5a7b829d3e862371d2cfe5",
		},
		{
			name:    "256 bits of key data with a 256-bit KEK",
			kek:     "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			cek:     "00112233445566778899aabbccddeeff000102030405060708090a0b0c0d0e0f",
			wrapped: "28c9f404c4b810f4cbccb35cfb87f8263f5786e2d80ed326cbc7f0e71a99f43bfb988b9b7a02dd21",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kek, err := hex.DecodeString(tc.kek)
			require.NoError(t, err)

			cek, err := hex.DecodeString(tc.cek)
			require.NoError(t, err)

			expected, err := hex.DecodeString(tc.wrapped)
			require.NoError(t, err)

			wrapped, err := Wrap(kek, cek)
			require.NoError(t, err)
			require.Equal(t, expected, wrapped)

			unwrapped, err := Unwrap(kek, wrapped)
			require.NoError(t, err)
			require.Equal(t, cek, unwrapped)
		})
	}
}

func TestWrapRoundTrip(t *testing.T) {
	kek := bytes.Repeat([]byte{0x42}, 32)
	cek := bytes.Repeat([]byte{0xAB}, 32)

	wrapped, err := Wrap(kek, cek)
	require.NoError(t, err)
	require.Len(t, wrapped, 40)
	require.NotEqual(t, cek, wrapped[8:])

	unwrapped, err := Unwrap(kek, wrapped)
	require.NoError(t, err)
	require.Equal(t, cek, unwrapped)
}

func TestUnwrapWrongKEK(t *testing.T) {
	kek := bytes.Repeat([]byte{0x42}, 32)
	cek := bytes.Repeat([]byte{0xAB}, 32)

	wrapped, err := Wrap(kek, cek)
	require.NoError(t, err)

	otherKEK := bytes.Repeat([]byte{0x43}, 32)

	_, err = Unwrap(otherKEK, wrapped)
	require.Error(t, err)
	require.True(t, errors.Is(err, cryptoapi.ErrIntegrityCheckFailed))
}

func TestUnwrapCorruptedCiphertext(t *testing.T) {
	kek := bytes.Repeat([]byte{0x42}, 32)
	cek := bytes.Repeat([]byte{0xAB}, 32)

	wrapped, err := Wrap(kek, cek)
	require.NoError(t, err)

	for i := range wrapped {
		corrupted := make([]byte, len(wrapped))
		copy(corrupted, wrapped)
		corrupted[i] ^= 0x01

		_, err := Unwrap(kek, corrupted)
		require.Error(t, err, "flipped bit in byte %d must not unwrap", i)
		require.True(t, errors.Is(err, cryptoapi.ErrIntegrityCheckFailed))
	}
}

func TestWrapInvalidInputs(t *testing.T) {
	kek := bytes.Repeat([]byte{0x42}, 32)

	tests := []struct {
		name string
		cek  []byte
		want error
	}{
		{name: "too short", cek: bytes.Repeat([]byte{0x01}, 8), want: cryptoapi.ErrInvalidParameter},
		{name: "not a multiple of 8", cek: bytes.Repeat([]byte{0x01}, 17), want: cryptoapi.ErrInvalidParameter},
		{name: "empty", cek: nil, want: cryptoapi.ErrInvalidParameter},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Wrap(kek, tc.cek)
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.want))
		})
	}

	t.Run("bad kek size", func(t *testing.T) {
		_, err := Wrap([]byte{0x01, 0x02}, bytes.Repeat([]byte{0x01}, 16))
		require.Error(t, err)
		require.True(t, errors.Is(err, cryptoapi.ErrInvalidKey))
	})
}

func TestUnwrapInvalidInputs(t *testing.T) {
	kek := bytes.Repeat([]byte{0x42}, 32)

	tests := []struct {
		name    string
		wrapped []byte
	}{
		{name: "too short", wrapped: bytes.Repeat([]byte{0x01}, 16)},
		{name: "not a multiple of 8", wrapped: bytes.Repeat([]byte{0x01}, 25)},
		{name: "empty", wrapped: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unwrap(kek, tc.wrapped)
			require.Error(t, err)
			require.True(t, errors.Is(err, cryptoapi.ErrInvalidParameter))
		})
	}
}
