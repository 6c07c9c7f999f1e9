/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoapi "github.com/transaction-authorization/tap-go/pkg/crypto"
)

func TestKeyManager(t *testing.T) {
	manager := New()

	edKey, err := cryptoapi.GenerateKey(cryptoapi.Ed25519, "", "")
	require.NoError(t, err)

	ecKey, err := cryptoapi.GenerateKey(cryptoapi.P256, "", "")
	require.NoError(t, err)

	require.NoError(t, manager.Add(edKey))
	require.NoError(t, manager.Add(ecKey))

	t.Run("get", func(t *testing.T) {
		stored, err := manager.Get(edKey.KeyID())
		require.NoError(t, err)
		require.Equal(t, edKey.KeyID(), stored.KeyID())

		_, err = manager.Get("unknown")
		require.True(t, errors.Is(err, cryptoapi.ErrKeyNotFound))
	})

	t.Run("signing keys", func(t *testing.T) {
		for _, kid := range []string{edKey.KeyID(), ecKey.KeyID()} {
			signer, err := manager.GetSigningKey(kid)
			require.NoError(t, err)
			require.Equal(t, kid, signer.KeyID())
		}
	})

	t.Run("capability filtering", func(t *testing.T) {
		_, err := manager.GetEncryptionKey(edKey.KeyID())
		require.True(t, errors.Is(err, cryptoapi.ErrUnsupportedAlgorithm))

		_, err = manager.GetDecryptionKey(edKey.KeyID())
		require.True(t, errors.Is(err, cryptoapi.ErrUnsupportedAlgorithm))

		encKey, err := manager.GetEncryptionKey(ecKey.KeyID())
		require.NoError(t, err)
		require.Equal(t, ecKey.KeyID(), encKey.KeyID())

		decKey, err := manager.GetDecryptionKey(ecKey.KeyID())
		require.NoError(t, err)
		require.Equal(t, ecKey.KeyID(), decKey.KeyID())
	})

	t.Run("list sorted", func(t *testing.T) {
		kids := manager.List()
		require.Len(t, kids, 2)
		require.Less(t, kids[0], kids[1])
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, manager.Remove(edKey.KeyID()))

		_, err := manager.Get(edKey.KeyID())
		require.True(t, errors.Is(err, cryptoapi.ErrKeyNotFound))

		err = manager.Remove(edKey.KeyID())
		require.True(t, errors.Is(err, cryptoapi.ErrKeyNotFound))
	})
}

func TestKeyManagerAddInvalid(t *testing.T) {
	manager := New()

	err := manager.Add(nil)
	require.True(t, errors.Is(err, cryptoapi.ErrInvalidKey))
}
