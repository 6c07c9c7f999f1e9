/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec"

	"github.com/transaction-authorization/tap-go/pkg/doc/jose/jwk"
)

// VerificationKey verifies JWS signatures with public key material only. It
// is the counterpart of SigningKey for parties who hold no private key.
type VerificationKey struct {
	keyID string
	key   *jwk.JWK
}

// NewVerificationKey creates a VerificationKey from a public JWK. keyID
// overrides the JWK kid when non-empty.
func NewVerificationKey(keyID string, key *jwk.JWK) (*VerificationKey, error) {
	if key == nil || key.Key == nil {
		return nil, fmt.Errorf("verification key: %w", ErrInvalidKey)
	}

	if keyID == "" {
		keyID = key.KeyID
	}

	return &VerificationKey{keyID: keyID, key: key}, nil
}

// VerificationKeyFor extracts the public half of an AgentKey as a
// VerificationKey.
func VerificationKeyFor(key AgentKey) (*VerificationKey, error) {
	pub, err := key.PublicKeyJWK()
	if err != nil {
		return nil, err
	}

	return NewVerificationKey(key.KeyID(), pub)
}

// KeyID returns the key identifier.
func (v *VerificationKey) KeyID() string { return v.keyID }

// JWK returns the underlying public JWK.
func (v *VerificationKey) JWK() *jwk.JWK { return v.key }

// Verify checks signature over signingInput under the given JWS alg. The alg
// must match the key's type; a mismatch is ErrUnsupportedAlgorithm, a bad
// signature is ErrVerificationFailed.
func (v *VerificationKey) Verify(signingInput, signature []byte, alg string) error {
	switch alg {
	case AlgEdDSA:
		return v.verifyEdDSA(signingInput, signature)
	case AlgES256:
		return v.verifyECDSA(signingInput, signature, elliptic.P256())
	case AlgES256K:
		return v.verifyECDSA(signingInput, signature, btcec.S256())
	default:
		return fmt.Errorf("verify: alg %q: %w", alg, ErrUnsupportedAlgorithm)
	}
}

func (v *VerificationKey) verifyEdDSA(signingInput, signature []byte) error {
	pub, ok := v.key.Key.(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("verify EdDSA: key type %T: %w", v.key.Key, ErrInvalidKey)
	}

	if len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("verify EdDSA: signature length %d: %w", len(signature), ErrVerificationFailed)
	}

	if !ed25519.Verify(pub, signingInput, signature) {
		return fmt.Errorf("verify EdDSA: %w", ErrVerificationFailed)
	}

	return nil
}

func (v *VerificationKey) verifyECDSA(signingInput, signature []byte, curve elliptic.Curve) error {
	pub, ok := v.key.Key.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("verify ECDSA: key type %T: %w", v.key.Key, ErrInvalidKey)
	}

	if pub.Curve != curve {
		return fmt.Errorf("verify ECDSA: curve mismatch: %w", ErrInvalidKey)
	}

	byteSize := (curve.Params().BitSize + 7) / 8
	if len(signature) != 2*byteSize {
		return fmt.Errorf("verify ECDSA: signature length %d: %w", len(signature), ErrVerificationFailed)
	}

	digest := sha256.Sum256(signingInput)

	r := new(big.Int).SetBytes(signature[:byteSize])
	s := new(big.Int).SetBytes(signature[byteSize:])

	if !ecdsa.Verify(pub, digest[:], r, s) {
		return fmt.Errorf("verify ECDSA: %w", ErrVerificationFailed)
	}

	return nil
}
