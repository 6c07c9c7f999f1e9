/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwk

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcd/btcec"
	"github.com/go-jose/go-jose/v3"
)

// FromKey creates a JWK from an opaque key struct, e.g. *ecdsa.PublicKey,
// *ecdsa.PrivateKey or ed25519.PublicKey. secp256k1 keys are recognized by
// their curve and marshalled locally since go-jose rejects them.
func FromKey(opaqueKey interface{}) (*JWK, error) {
	key := &JWK{
		JSONWebKey: jose.JSONWebKey{
			Key: opaqueKey,
		},
	}

	switch k := opaqueKey.(type) {
	case *ecdsa.PublicKey:
		if k.Curve == btcec.S256() {
			key.Kty = ecKty
			key.Crv = secp256k1Crv
		}
	case *ecdsa.PrivateKey:
		if k.Curve == btcec.S256() {
			key.Kty = ecKty
			key.Crv = secp256k1Crv
		}
	}

	// marshal/unmarshal to get all JWK's fields other than Key filled.
	keyBytes, err := key.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("create JWK: %w", err)
	}

	err = key.UnmarshalJSON(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("create JWK: %w", err)
	}

	return key, nil
}
