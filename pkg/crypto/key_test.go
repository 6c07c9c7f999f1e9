/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKeySignVerify(t *testing.T) {
	tests := []struct {
		keyType KeyType
		alg     string
		sigLen  int
	}{
		{keyType: Ed25519, alg: AlgEdDSA, sigLen: 64},
		{keyType: P256, alg: AlgES256, sigLen: 64},
		{keyType: Secp256k1, alg: AlgES256K, sigLen: 64},
	}

	for _, tc := range tests {
		t.Run(string(tc.keyType), func(t *testing.T) {
			key, err := GenerateKey(tc.keyType, "", "")
			require.NoError(t, err)
			require.Equal(t, tc.keyType, key.Type())
			require.Equal(t, tc.alg, key.JWSAlgorithm())

			msg := []byte("transaction authorization request")

			sig, err := key.Sign(msg)
			require.NoError(t, err)
			require.Len(t, sig, tc.sigLen)

			verKey, err := VerificationKeyFor(key)
			require.NoError(t, err)
			require.Equal(t, key.KeyID(), verKey.KeyID())

			require.NoError(t, verKey.Verify(msg, sig, tc.alg))

			// tampered message fails
			err = verKey.Verify([]byte("other message"), sig, tc.alg)
			require.True(t, errors.Is(err, ErrVerificationFailed))

			// tampered signature fails
			badSig := make([]byte, len(sig))
			copy(badSig, sig)
			badSig[0] ^= 0x01

			err = verKey.Verify(msg, badSig, tc.alg)
			require.True(t, errors.Is(err, ErrVerificationFailed))
		})
	}
}

func TestGenerateKeyIdentifierDefaults(t *testing.T) {
	t.Run("did:key derived when did empty", func(t *testing.T) {
		key, err := GenerateKey(Ed25519, "", "")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(key.DID(), "did:key:z"))
		require.True(t, strings.HasPrefix(key.KeyID(), key.DID()+"#"))
	})

	t.Run("random kid under caller DID", func(t *testing.T) {
		key, err := GenerateKey(P256, "did:web:originator.example", "")
		require.NoError(t, err)
		require.Equal(t, "did:web:originator.example", key.DID())
		require.True(t, strings.HasPrefix(key.KeyID(), "did:web:originator.example#"))
	})

	t.Run("explicit identifiers kept", func(t *testing.T) {
		key, err := GenerateKey(Secp256k1, "did:web:beneficiary.example", "did:web:beneficiary.example#key-1")
		require.NoError(t, err)
		require.Equal(t, "did:web:beneficiary.example", key.DID())
		require.Equal(t, "did:web:beneficiary.example#key-1", key.KeyID())
	})
}

func TestGenerateKeyUnsupportedType(t *testing.T) {
	_, err := GenerateKey(KeyType("RSA"), "", "")
	require.True(t, errors.Is(err, ErrUnsupportedAlgorithm))
}

// TestCapabilityTyping checks that encryption capabilities are only exposed
// by key types that support key agreement.
func TestCapabilityTyping(t *testing.T) {
	edKey, err := GenerateKey(Ed25519, "", "")
	require.NoError(t, err)

	_, isEncKey := edKey.(EncryptionKey)
	require.False(t, isEncKey, "ed25519 keys must not support encryption")

	_, isDecKey := edKey.(DecryptionKey)
	require.False(t, isDecKey, "ed25519 keys must not support decryption")

	for _, keyType := range []KeyType{P256, Secp256k1} {
		ecdhKey, err := GenerateKey(keyType, "", "")
		require.NoError(t, err)

		encKey, ok := ecdhKey.(EncryptionKey)
		require.True(t, ok)

		alg, enc := encKey.JWEAlgorithms()
		require.Equal(t, AlgECDHESA256KW, alg)
		require.Equal(t, EncA256GCM, enc)

		_, ok = ecdhKey.(DecryptionKey)
		require.True(t, ok)
	}
}

func TestSharedSecretSymmetry(t *testing.T) {
	for _, keyType := range []KeyType{P256, Secp256k1} {
		t.Run(string(keyType), func(t *testing.T) {
			alice, err := GenerateKey(keyType, "", "")
			require.NoError(t, err)

			bob, err := GenerateKey(keyType, "", "")
			require.NoError(t, err)

			alicePub, err := alice.PublicKeyJWK()
			require.NoError(t, err)

			bobPub, err := bob.PublicKeyJWK()
			require.NoError(t, err)

			zAlice, err := alice.(EncryptionKey).SharedSecret(bobPub)
			require.NoError(t, err)
			require.Len(t, zAlice, 32)

			zBob, err := bob.(EncryptionKey).SharedSecret(alicePub)
			require.NoError(t, err)

			require.Equal(t, zAlice, zBob)
		})
	}
}

func TestSharedSecretCurveMismatch(t *testing.T) {
	p256Key, err := GenerateKey(P256, "", "")
	require.NoError(t, err)

	secpKey, err := GenerateKey(Secp256k1, "", "")
	require.NoError(t, err)

	secpPub, err := secpKey.PublicKeyJWK()
	require.NoError(t, err)

	_, err = p256Key.(EncryptionKey).SharedSecret(secpPub)
	require.True(t, errors.Is(err, ErrInvalidKey))
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, keyType := range []KeyType{Ed25519, P256, Secp256k1} {
		t.Run(string(keyType), func(t *testing.T) {
			key, err := GenerateKey(keyType, "", "")
			require.NoError(t, err)

			priv, err := key.ExportPrivate()
			require.NoError(t, err)

			imported, err := ImportKey(keyType, key.DID(), key.KeyID(), priv)
			require.NoError(t, err)
			require.Equal(t, key.DID(), imported.DID())
			require.Equal(t, key.KeyID(), imported.KeyID())

			// imported key produces signatures the original's public key accepts
			msg := []byte("payload")

			sig, err := imported.Sign(msg)
			require.NoError(t, err)

			verKey, err := VerificationKeyFor(key)
			require.NoError(t, err)
			require.NoError(t, verKey.Verify(msg, sig, key.JWSAlgorithm()))
		})
	}
}

func TestImportKeyInvalid(t *testing.T) {
	tests := []struct {
		name    string
		keyType KeyType
		priv    []byte
	}{
		{name: "ed25519 wrong length", keyType: Ed25519, priv: make([]byte, 16)},
		{name: "p-256 wrong length", keyType: P256, priv: make([]byte, 16)},
		{name: "p-256 zero scalar", keyType: P256, priv: make([]byte, 32)},
		{name: "secp256k1 zero scalar", keyType: Secp256k1, priv: make([]byte, 32)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ImportKey(tc.keyType, "", "", tc.priv)
			require.True(t, errors.Is(err, ErrInvalidKey))
		})
	}
}

func TestVerifyAlgorithmMismatch(t *testing.T) {
	key, err := GenerateKey(P256, "", "")
	require.NoError(t, err)

	msg := []byte("payload")

	sig, err := key.Sign(msg)
	require.NoError(t, err)

	verKey, err := VerificationKeyFor(key)
	require.NoError(t, err)

	// wrong alg for the key's curve
	err = verKey.Verify(msg, sig, AlgES256K)
	require.True(t, errors.Is(err, ErrInvalidKey))

	err = verKey.Verify(msg, sig, "PS256")
	require.True(t, errors.Is(err, ErrUnsupportedAlgorithm))
}
