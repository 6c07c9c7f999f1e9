/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	cryptoapi "github.com/transaction-authorization/tap-go/pkg/crypto"
	"github.com/transaction-authorization/tap-go/pkg/crypto/primitive/concatkdf"
	"github.com/transaction-authorization/tap-go/pkg/crypto/primitive/keywrap"
	"github.com/transaction-authorization/tap-go/pkg/doc/jose/jwk"
)

// Decrypter decrypts a JWE envelope on behalf of one recipient key.
type Decrypter interface {
	// Decrypt decrypts the envelope and returns the plaintext payload.
	Decrypt(jwe *JSONWebEncryption) ([]byte, error)
}

// JWEDecrypt decrypts ECDH-ES+A256KW envelopes with a single recipient key.
// Every failure past header validation is reported as ErrDecryptionFailed so
// callers cannot distinguish a wrong key from a tampered envelope.
type JWEDecrypt struct {
	key cryptoapi.DecryptionKey
}

// NewJWEDecrypt creates a JWEDecrypt around the given recipient key.
func NewJWEDecrypt(key cryptoapi.DecryptionKey) *JWEDecrypt {
	return &JWEDecrypt{key: key}
}

// protectedHeader is the typed view of a JWE protected header.
type protectedHeader struct {
	Alg  string                 `mapstructure:"alg"`
	Enc  string                 `mapstructure:"enc"`
	Typ  string                 `mapstructure:"typ"`
	APU  string                 `mapstructure:"apu"`
	APV  string                 `mapstructure:"apv"`
	SKID string                 `mapstructure:"skid"`
	EPK  map[string]interface{} `mapstructure:"epk"`
}

// Decrypt decrypts the envelope for the configured recipient key.
func (d *JWEDecrypt) Decrypt(jwe *JSONWebEncryption) ([]byte, error) {
	if jwe == nil || len(jwe.Recipients) == 0 {
		return nil, fmt.Errorf("jwe decrypt: empty envelope: %w", cryptoapi.ErrInvalidFormat)
	}

	var protected protectedHeader

	if err := mapstructure.Decode(map[string]interface{}(jwe.ProtectedHeaders), &protected); err != nil {
		return nil, fmt.Errorf("jwe decrypt: protected header: %w", cryptoapi.ErrInvalidFormat)
	}

	if protected.Alg != A256KWAlg {
		return nil, fmt.Errorf("jwe decrypt: alg %q: %w", protected.Alg, cryptoapi.ErrUnsupportedAlgorithm)
	}

	encAlg := EncAlg(protected.Enc)
	if encAlg != A256GCM && encAlg != XC20P {
		return nil, fmt.Errorf("jwe decrypt: enc %q: %w", protected.Enc, cryptoapi.ErrUnsupportedAlgorithm)
	}

	if protected.EPK == nil {
		return nil, fmt.Errorf("jwe decrypt: missing epk: %w", cryptoapi.ErrInvalidFormat)
	}

	recipient := d.findRecipient(jwe)
	if recipient == nil {
		return nil, fmt.Errorf("jwe decrypt: not an intended recipient: %w", cryptoapi.ErrDecryptionFailed)
	}

	cek, err := d.unwrapCEK(&protected, recipient.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("jwe decrypt: %w", cryptoapi.ErrDecryptionFailed)
	}

	aead, err := newAEAD(encAlg, cek)
	if err != nil {
		return nil, fmt.Errorf("jwe decrypt: %w", cryptoapi.ErrDecryptionFailed)
	}

	if len(jwe.IV) != aead.NonceSize() {
		return nil, fmt.Errorf("jwe decrypt: %w", cryptoapi.ErrDecryptionFailed)
	}

	sealed := make([]byte, 0, len(jwe.Ciphertext)+len(jwe.Tag))
	sealed = append(sealed, jwe.Ciphertext...)
	sealed = append(sealed, jwe.Tag...)

	payload, err := aead.Open(nil, jwe.IV, sealed, []byte(jwe.OrigProtectedB64()))
	if err != nil {
		return nil, fmt.Errorf("jwe decrypt: %w", cryptoapi.ErrDecryptionFailed)
	}

	return payload, nil
}

func (d *JWEDecrypt) findRecipient(jwe *JSONWebEncryption) *Recipient {
	for _, recipient := range jwe.Recipients {
		if recipient.Header.KID == d.key.KeyID() {
			return recipient
		}
	}

	return nil
}

func (d *JWEDecrypt) unwrapCEK(protected *protectedHeader, encryptedKey []byte) ([]byte, error) {
	epkBytes, err := json.Marshal(protected.EPK)
	if err != nil {
		return nil, err
	}

	epk := &jwk.JWK{}
	if err := epk.UnmarshalJSON(epkBytes); err != nil {
		return nil, err
	}

	z, err := d.key.SharedSecret(epk)
	if err != nil {
		return nil, err
	}

	apu, err := base64.RawURLEncoding.DecodeString(protected.APU)
	if err != nil {
		return nil, err
	}

	apv, err := base64.RawURLEncoding.DecodeString(protected.APV)
	if err != nil {
		return nil, err
	}

	kek, err := concatkdf.Derive(z, protected.Alg, apu, apv, 256)
	if err != nil {
		return nil, err
	}

	return keywrap.Unwrap(kek, encryptedKey)
}
