/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package crypto provides the capability-typed key layer of the TAP secure
// envelope: AgentKey handles over Ed25519, P-256 and secp256k1 key material,
// exposing only the operations each algorithm actually supports. Ed25519
// keys sign; P-256 and secp256k1 keys sign and perform ECDH key agreement.
// The capability split is enforced by the type system: the Ed25519 concrete
// type does not implement EncryptionKey or DecryptionKey, so encryption
// cannot be requested of it.
package crypto

import "github.com/transaction-authorization/tap-go/pkg/doc/jose/jwk"

// KeyType identifies the algorithm of an AgentKey. The set is closed; there
// is no runtime registry.
type KeyType string

// Supported key types.
const (
	Ed25519   KeyType = "Ed25519"
	P256      KeyType = "P-256"
	Secp256k1 KeyType = "secp256k1"
)

// JWS signature algorithms (RFC 7518, draft-ietf-cose-webauthn-algorithms
// for ES256K).
const (
	AlgEdDSA  = "EdDSA"
	AlgES256  = "ES256"
	AlgES256K = "ES256K"
)

// JWE key management and content encryption algorithms used by this module.
const (
	AlgECDHESA256KW = "ECDH-ES+A256KW"
	EncA256GCM      = "A256GCM"
)

// AgentKey is a handle over key material owned by an agent. Private key
// material never leaves the handle except through ExportPrivate.
type AgentKey interface {
	// KeyID returns the stable identifier chosen by the key's owner.
	KeyID() string

	// DID returns the DID this key authenticates as.
	DID() string

	// Type returns the key algorithm.
	Type() KeyType

	// PublicKeyJWK returns the public key material in JWK form, with the
	// key id set as the JWK kid. Public material may be freely shared.
	PublicKeyJWK() (*jwk.JWK, error)

	// ExportPrivate returns the raw private key bytes. This is the only way
	// private material leaves the handle and every call is logged.
	ExportPrivate() ([]byte, error)
}

// SigningKey is an AgentKey able to produce JWS signatures.
type SigningKey interface {
	AgentKey

	// Sign signs data with the key's native algorithm.
	Sign(data []byte) ([]byte, error)

	// JWSAlgorithm returns the JWS alg value for this key: EdDSA, ES256 or
	// ES256K.
	JWSAlgorithm() string
}

// EncryptionKey is an AgentKey able to act as a JWE recipient: its public
// key can be encrypted to, and its private key performs ECDH key agreement.
type EncryptionKey interface {
	AgentKey

	// SharedSecret computes the raw ECDH shared secret between this key's
	// private scalar and the remote public JWK. Both keys must be on the
	// same curve.
	SharedSecret(remote *jwk.JWK) ([]byte, error)

	// JWEAlgorithms returns the recommended JWE alg/enc pair for this key.
	JWEAlgorithms() (alg, enc string)
}

// DecryptionKey is an AgentKey able to unwrap a JWE addressed to it.
type DecryptionKey interface {
	AgentKey

	// SharedSecret computes the raw ECDH shared secret between this key's
	// private scalar and the remote (ephemeral) public JWK.
	SharedSecret(remote *jwk.JWK) ([]byte, error)
}
