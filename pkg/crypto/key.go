/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/transaction-authorization/tap-go/pkg/doc/jose/jwk"
	"github.com/transaction-authorization/tap-go/pkg/doc/util/fingerprint"
)

var logger = log.New("tap-go/pkg/crypto")

// GenerateKey creates a fresh AgentKey of the given type. If did is empty a
// did:key DID is derived from the public key fingerprint and used for both
// the DID and the key id. If did is set but keyID is empty, a random key id
// under that DID is generated.
//
// The returned key always supports signing. P-256 and secp256k1 keys also
// satisfy EncryptionKey and DecryptionKey.
func GenerateKey(keyType KeyType, did, keyID string) (SigningKey, error) {
	switch keyType {
	case Ed25519:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate %s key: %w", keyType, err)
		}

		did, keyID = defaultIdentifiers(did, keyID, fingerprint.ED25519PubKeyMultiCodec, pub)

		return &ed25519Key{baseKey: baseKey{did: did, keyID: keyID}, priv: priv}, nil
	case P256, Secp256k1:
		priv, err := ecdsa.GenerateKey(curveOf(keyType), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate %s key: %w", keyType, err)
		}

		compressed := elliptic.MarshalCompressed(priv.Curve, priv.X, priv.Y)
		did, keyID = defaultIdentifiers(did, keyID, codeOf(keyType), compressed)

		return &ecKey{baseKey: baseKey{did: did, keyID: keyID}, keyType: keyType, priv: priv}, nil
	default:
		return nil, fmt.Errorf("generate key: type %q: %w", keyType, ErrUnsupportedAlgorithm)
	}
}

// ImportKey creates an AgentKey from existing private key bytes. Ed25519
// accepts a 32-byte seed or a full 64-byte private key; P-256 and secp256k1
// accept the raw 32-byte scalar. Identifier defaulting matches GenerateKey.
func ImportKey(keyType KeyType, did, keyID string, priv []byte) (SigningKey, error) {
	switch keyType {
	case Ed25519:
		var key ed25519.PrivateKey

		switch len(priv) {
		case ed25519.SeedSize:
			key = ed25519.NewKeyFromSeed(priv)
		case ed25519.PrivateKeySize:
			key = make(ed25519.PrivateKey, ed25519.PrivateKeySize)
			copy(key, priv)
		default:
			return nil, fmt.Errorf("import %s key: length %d: %w", keyType, len(priv), ErrInvalidKey)
		}

		pub := key.Public().(ed25519.PublicKey)
		did, keyID = defaultIdentifiers(did, keyID, fingerprint.ED25519PubKeyMultiCodec, pub)

		return &ed25519Key{baseKey: baseKey{did: did, keyID: keyID}, priv: key}, nil
	case P256, Secp256k1:
		key, err := ecPrivateKeyFromBytes(curveOf(keyType), priv)
		if err != nil {
			return nil, fmt.Errorf("import %s key: %w", keyType, err)
		}

		compressed := elliptic.MarshalCompressed(key.Curve, key.X, key.Y)
		did, keyID = defaultIdentifiers(did, keyID, codeOf(keyType), compressed)

		return &ecKey{baseKey: baseKey{did: did, keyID: keyID}, keyType: keyType, priv: key}, nil
	default:
		return nil, fmt.Errorf("import key: type %q: %w", keyType, ErrUnsupportedAlgorithm)
	}
}

func defaultIdentifiers(did, keyID string, code uint64, pubKey []byte) (string, string) {
	if did == "" {
		didKey, kid := fingerprint.CreateDIDKeyByCode(code, pubKey)

		if keyID == "" {
			keyID = kid
		}

		return didKey, keyID
	}

	if keyID == "" {
		keyID = fmt.Sprintf("%s#%s", did, uuid.New().String())
	}

	return did, keyID
}

func curveOf(keyType KeyType) elliptic.Curve {
	if keyType == Secp256k1 {
		return btcec.S256()
	}

	return elliptic.P256()
}

func codeOf(keyType KeyType) uint64 {
	if keyType == Secp256k1 {
		return fingerprint.Secp256k1PubKeyMultiCodec
	}

	return fingerprint.P256PubKeyMultiCodec
}

func ecPrivateKeyFromBytes(curve elliptic.Curve, priv []byte) (*ecdsa.PrivateKey, error) {
	byteSize := (curve.Params().BitSize + 7) / 8
	if len(priv) != byteSize {
		return nil, fmt.Errorf("scalar length %d: %w", len(priv), ErrInvalidKey)
	}

	d := new(big.Int).SetBytes(priv)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("scalar out of range: %w", ErrInvalidKey)
	}

	key := &ecdsa.PrivateKey{D: d}
	key.Curve = curve
	key.X, key.Y = curve.ScalarBaseMult(priv)

	return key, nil
}

// baseKey carries the identity fields shared by all key types.
type baseKey struct {
	did   string
	keyID string
}

func (b *baseKey) KeyID() string { return b.keyID }

func (b *baseKey) DID() string { return b.did }

// ed25519Key signs with EdDSA. It deliberately does not implement
// EncryptionKey or DecryptionKey.
type ed25519Key struct {
	baseKey

	priv ed25519.PrivateKey
}

func (k *ed25519Key) Type() KeyType { return Ed25519 }

func (k *ed25519Key) JWSAlgorithm() string { return AlgEdDSA }

func (k *ed25519Key) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, data), nil
}

func (k *ed25519Key) PublicKeyJWK() (*jwk.JWK, error) {
	key, err := jwk.FromKey(k.priv.Public())
	if err != nil {
		return nil, fmt.Errorf("ed25519 public JWK: %w", err)
	}

	key.KeyID = k.keyID

	return key, nil
}

func (k *ed25519Key) ExportPrivate() ([]byte, error) {
	logger.Infof("private key export: kid=%s type=%s", k.keyID, Ed25519)

	out := make([]byte, len(k.priv))
	copy(out, k.priv)

	return out, nil
}

// ecKey signs with ECDSA and performs ECDH key agreement. It backs both the
// P-256 and secp256k1 key types.
type ecKey struct {
	baseKey

	keyType KeyType
	priv    *ecdsa.PrivateKey
}

func (k *ecKey) Type() KeyType { return k.keyType }

func (k *ecKey) JWSAlgorithm() string {
	if k.keyType == Secp256k1 {
		return AlgES256K
	}

	return AlgES256
}

func (k *ecKey) JWEAlgorithms() (string, string) {
	return AlgECDHESA256KW, EncA256GCM
}

// Sign hashes data with SHA-256 and returns the raw r||s signature, each
// component left-padded to the curve byte size (RFC 7518 section 3.4).
func (k *ecKey) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)

	r, s, err := ecdsa.Sign(rand.Reader, k.priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("ecdsa sign: %w", err)
	}

	byteSize := (k.priv.Curve.Params().BitSize + 7) / 8

	sig := make([]byte, 2*byteSize)
	r.FillBytes(sig[:byteSize])
	s.FillBytes(sig[byteSize:])

	return sig, nil
}

// SharedSecret computes the X coordinate of priv * remote, left-padded to
// the curve byte size.
func (k *ecKey) SharedSecret(remote *jwk.JWK) ([]byte, error) {
	pub, ok := remote.Key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("ecdh: remote key type %T: %w", remote.Key, ErrInvalidKey)
	}

	if pub.Curve != k.priv.Curve {
		return nil, fmt.Errorf("ecdh: curve mismatch: %w", ErrInvalidKey)
	}

	if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
		return nil, fmt.Errorf("ecdh: point not on curve: %w", ErrInvalidKey)
	}

	x, _ := pub.Curve.ScalarMult(pub.X, pub.Y, k.priv.D.Bytes())

	byteSize := (k.priv.Curve.Params().BitSize + 7) / 8

	z := make([]byte, byteSize)
	x.FillBytes(z)

	return z, nil
}

func (k *ecKey) PublicKeyJWK() (*jwk.JWK, error) {
	key, err := jwk.FromKey(&k.priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%s public JWK: %w", k.keyType, err)
	}

	key.KeyID = k.keyID

	return key, nil
}

func (k *ecKey) ExportPrivate() ([]byte, error) {
	logger.Infof("private key export: kid=%s type=%s", k.keyID, k.keyType)

	byteSize := (k.priv.Curve.Params().BitSize + 7) / 8

	out := make([]byte, byteSize)
	k.priv.D.FillBytes(out)

	return out, nil
}
