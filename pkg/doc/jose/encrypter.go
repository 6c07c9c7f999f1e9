/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoapi "github.com/transaction-authorization/tap-go/pkg/crypto"
	"github.com/transaction-authorization/tap-go/pkg/crypto/primitive/concatkdf"
	"github.com/transaction-authorization/tap-go/pkg/crypto/primitive/keywrap"
	"github.com/transaction-authorization/tap-go/pkg/doc/jose/jwk"
)

const cekSize = 32

// Encrypter builds multi-recipient JWE envelopes.
type Encrypter interface {
	// Encrypt encrypts payload to all configured recipients and returns the
	// assembled envelope.
	Encrypt(payload []byte) (*JSONWebEncryption, error)
}

// JWEEncrypt encrypts payloads with ECDH-ES+A256KW key agreement per
// recipient and a single content encryption pass. All recipients share one
// ephemeral key and one content encryption key; the CEK is wrapped once per
// recipient under the recipient's derived KEK.
type JWEEncrypt struct {
	encAlg    EncAlg
	senderKID string
	recKeys   []*jwk.JWK
}

// NewJWEEncrypt creates a JWEEncrypt for the given content encryption
// algorithm and recipient public keys. Every recipient key must be an EC
// public JWK with a kid, and all recipients must share one curve. senderKID
// is optional; when set it is carried as the skid protected header and bound
// into the KDF as apu.
func NewJWEEncrypt(encAlg EncAlg, senderKID string, recipients ...*jwk.JWK) (*JWEEncrypt, error) {
	if encAlg != A256GCM && encAlg != XC20P {
		return nil, fmt.Errorf("jwe encrypt: enc %q: %w", encAlg, cryptoapi.ErrUnsupportedAlgorithm)
	}

	if len(recipients) == 0 {
		return nil, fmt.Errorf("jwe encrypt: no recipients: %w", cryptoapi.ErrInvalidParameter)
	}

	var firstPub *ecdsa.PublicKey

	for i, rec := range recipients {
		if rec == nil || rec.KeyID == "" {
			return nil, fmt.Errorf("jwe encrypt: recipient %d missing kid: %w", i, cryptoapi.ErrInvalidParameter)
		}

		pub, ok := rec.Key.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("jwe encrypt: recipient %d key type %T: %w", i, rec.Key, cryptoapi.ErrInvalidKey)
		}

		if firstPub == nil {
			firstPub = pub
		} else if pub.Curve != firstPub.Curve {
			return nil, fmt.Errorf("jwe encrypt: recipient %d curve mismatch: %w", i, cryptoapi.ErrInvalidKey)
		}
	}

	return &JWEEncrypt{
		encAlg:    encAlg,
		senderKID: senderKID,
		recKeys:   recipients,
	}, nil
}

// Encrypt encrypts payload for all recipients.
func (e *JWEEncrypt) Encrypt(payload []byte) (*JSONWebEncryption, error) {
	ephemeral, err := ecdsa.GenerateKey(e.recKeys[0].Key.(*ecdsa.PublicKey).Curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwe encrypt: ephemeral key: %w", err)
	}

	cek := make([]byte, cekSize)
	if _, err := rand.Read(cek); err != nil {
		return nil, fmt.Errorf("jwe encrypt: cek: %w", err)
	}

	apu := []byte(e.senderKID)
	apv := recipientsDigest(e.recKeys)

	origProtected, err := e.buildProtected(ephemeral, apu, apv)
	if err != nil {
		return nil, err
	}

	jwe := &JSONWebEncryption{origProtected: origProtected}

	protectedBytes, _ := base64.RawURLEncoding.DecodeString(origProtected) //nolint:errcheck // built above

	if err := json.Unmarshal(protectedBytes, &jwe.ProtectedHeaders); err != nil {
		return nil, fmt.Errorf("jwe encrypt: protected headers: %w", err)
	}

	if err := e.encryptContent(jwe, cek, payload, []byte(origProtected)); err != nil {
		return nil, err
	}

	for _, rec := range e.recKeys {
		z, err := ephemeralSharedSecret(ephemeral, rec.Key.(*ecdsa.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("jwe encrypt: recipient %s: %w", rec.KeyID, err)
		}

		kek, err := concatkdf.Derive(z, A256KWAlg, apu, apv, 256)
		if err != nil {
			return nil, fmt.Errorf("jwe encrypt: recipient %s: %w", rec.KeyID, err)
		}

		wrapped, err := keywrap.Wrap(kek, cek)
		if err != nil {
			return nil, fmt.Errorf("jwe encrypt: recipient %s: %w", rec.KeyID, err)
		}

		jwe.Recipients = append(jwe.Recipients, &Recipient{
			EncryptedKey: wrapped,
			Header: RecipientHeaders{
				KID:       rec.KeyID,
				SenderKID: e.senderKID,
			},
		})
	}

	return jwe, nil
}

func (e *JWEEncrypt) buildProtected(ephemeral *ecdsa.PrivateKey, apu, apv []byte) (string, error) {
	epkJWK, err := jwk.FromKey(&ephemeral.PublicKey)
	if err != nil {
		return "", fmt.Errorf("jwe encrypt: epk: %w", err)
	}

	epkBytes, err := epkJWK.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("jwe encrypt: epk: %w", err)
	}

	var epk map[string]interface{}

	if err := json.Unmarshal(epkBytes, &epk); err != nil {
		return "", fmt.Errorf("jwe encrypt: epk: %w", err)
	}

	protected := Headers{
		HeaderAlgorithm:  A256KWAlg,
		HeaderEncryption: string(e.encAlg),
		HeaderType:       TypEncrypted,
		HeaderEPK:        epk,
		HeaderAPV:        base64.RawURLEncoding.EncodeToString(apv),
	}

	if e.senderKID != "" {
		protected[HeaderAPU] = base64.RawURLEncoding.EncodeToString(apu)
		protected[HeaderSenderKeyID] = e.senderKID
	}

	protectedBytes, err := json.Marshal(protected)
	if err != nil {
		return "", fmt.Errorf("jwe encrypt: protected headers: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(protectedBytes), nil
}

func (e *JWEEncrypt) encryptContent(jwe *JSONWebEncryption, cek, payload, aad []byte) error {
	aead, err := newAEAD(e.encAlg, cek)
	if err != nil {
		return fmt.Errorf("jwe encrypt: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("jwe encrypt: nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, payload, aad)

	tagOffset := len(sealed) - aead.Overhead()

	jwe.IV = nonce
	jwe.Ciphertext = sealed[:tagOffset]
	jwe.Tag = sealed[tagOffset:]

	return nil
}

func newAEAD(encAlg EncAlg, cek []byte) (cipher.AEAD, error) {
	switch encAlg {
	case A256GCM:
		block, err := aes.NewCipher(cek)
		if err != nil {
			return nil, fmt.Errorf("aead: %w", cryptoapi.ErrInvalidKey)
		}

		return cipher.NewGCM(block)
	case XC20P:
		aead, err := chacha20poly1305.NewX(cek)
		if err != nil {
			return nil, fmt.Errorf("aead: %w", cryptoapi.ErrInvalidKey)
		}

		return aead, nil
	default:
		return nil, fmt.Errorf("aead: enc %q: %w", encAlg, cryptoapi.ErrUnsupportedAlgorithm)
	}
}

// recipientsDigest computes the shared apv value: the SHA-256 digest of the
// sorted recipient kids joined with ".". Sorting makes the value independent
// of recipient order so every recipient derives the same KEK input.
func recipientsDigest(recipients []*jwk.JWK) []byte {
	kids := make([]string, 0, len(recipients))

	for _, rec := range recipients {
		kids = append(kids, rec.KeyID)
	}

	sort.Strings(kids)

	digest := sha256.Sum256([]byte(strings.Join(kids, ".")))

	return digest[:]
}

func ephemeralSharedSecret(ephemeral *ecdsa.PrivateKey, pub *ecdsa.PublicKey) ([]byte, error) {
	if pub.Curve != ephemeral.Curve {
		return nil, fmt.Errorf("ecdh: curve mismatch: %w", cryptoapi.ErrInvalidKey)
	}

	x, _ := pub.Curve.ScalarMult(pub.X, pub.Y, ephemeral.D.Bytes())

	byteSize := (ephemeral.Curve.Params().BitSize + 7) / 8

	z := make([]byte, byteSize)
	x.FillBytes(z)

	return z, nil
}
