/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwk

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/stretchr/testify/require"
)

func TestSecp256k1RoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(btcec.S256(), rand.Reader)
	require.NoError(t, err)

	key, err := FromKey(&priv.PublicKey)
	require.NoError(t, err)
	require.Equal(t, "EC", key.Kty)
	require.Equal(t, "secp256k1", key.Crv)

	marshalled, err := key.MarshalJSON()
	require.NoError(t, err)

	var fields map[string]string

	require.NoError(t, json.Unmarshal(marshalled, &fields))
	require.Equal(t, "EC", fields["kty"])
	require.Equal(t, "secp256k1", fields["crv"])
	require.NotEmpty(t, fields["x"])
	require.NotEmpty(t, fields["y"])

	parsed := &JWK{}
	require.NoError(t, parsed.UnmarshalJSON(marshalled))

	pub, ok := parsed.Key.(*ecdsa.PublicKey)
	require.True(t, ok)
	require.Equal(t, btcec.S256(), pub.Curve)
	require.Equal(t, priv.PublicKey.X, pub.X)
	require.Equal(t, priv.PublicKey.Y, pub.Y)
}

func TestSecp256k1PrivateKeyRoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(btcec.S256(), rand.Reader)
	require.NoError(t, err)

	key, err := FromKey(priv)
	require.NoError(t, err)

	marshalled, err := key.MarshalJSON()
	require.NoError(t, err)

	parsed := &JWK{}
	require.NoError(t, parsed.UnmarshalJSON(marshalled))

	parsedPriv, ok := parsed.Key.(*ecdsa.PrivateKey)
	require.True(t, ok)
	require.Equal(t, priv.D, parsedPriv.D)
}

func TestSecp256k1PointNotOnCurve(t *testing.T) {
	priv, err := ecdsa.GenerateKey(btcec.S256(), rand.Reader)
	require.NoError(t, err)

	key, err := FromKey(&priv.PublicKey)
	require.NoError(t, err)

	marshalled, err := key.MarshalJSON()
	require.NoError(t, err)

	var fields map[string]string

	require.NoError(t, json.Unmarshal(marshalled, &fields))

	// replace y with a coordinate from another key, off the curve for this x
	other, err := ecdsa.GenerateKey(btcec.S256(), rand.Reader)
	require.NoError(t, err)

	otherKey, err := FromKey(&other.PublicKey)
	require.NoError(t, err)

	otherMarshalled, err := otherKey.MarshalJSON()
	require.NoError(t, err)

	var otherFields map[string]string

	require.NoError(t, json.Unmarshal(otherMarshalled, &otherFields))

	fields["y"] = otherFields["y"]

	tampered, err := json.Marshal(fields)
	require.NoError(t, err)

	parsed := &JWK{}
	require.Error(t, parsed.UnmarshalJSON(tampered))
}

func TestP256AndEd25519Delegation(t *testing.T) {
	t.Run("P-256", func(t *testing.T) {
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)

		key, err := FromKey(&priv.PublicKey)
		require.NoError(t, err)
		require.Equal(t, "EC", key.Kty)
		require.Equal(t, "P-256", key.Crv)

		marshalled, err := key.MarshalJSON()
		require.NoError(t, err)

		parsed := &JWK{}
		require.NoError(t, parsed.UnmarshalJSON(marshalled))

		pub, ok := parsed.Key.(*ecdsa.PublicKey)
		require.True(t, ok)
		require.Equal(t, priv.PublicKey.X, pub.X)
	})

	t.Run("Ed25519", func(t *testing.T) {
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		key, err := FromKey(pub)
		require.NoError(t, err)
		require.Equal(t, "OKP", key.Kty)
		require.Equal(t, "Ed25519", key.Crv)

		marshalled, err := key.MarshalJSON()
		require.NoError(t, err)

		parsed := &JWK{}
		require.NoError(t, parsed.UnmarshalJSON(marshalled))

		parsedPub, ok := parsed.Key.(ed25519.PublicKey)
		require.True(t, ok)
		require.Equal(t, pub, parsedPub)
	})
}

func TestUnmarshalInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not JSON", data: "not a key"},
		{name: "secp256k1 missing x", data: `{"kty":"EC","crv":"secp256k1","y":"AQ"}`},
		{name: "secp256k1 bad encoding", data: `{"kty":"EC","crv":"secp256k1","x":"!!!","y":"AQ"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			key := &JWK{}
			require.Error(t, key.UnmarshalJSON([]byte(tc.data)))
		})
	}
}
