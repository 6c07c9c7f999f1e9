/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	cryptoapi "github.com/transaction-authorization/tap-go/pkg/crypto"
)

// JSONWebEncryption is a JWE in general JSON serialization with one entry
// per recipient (RFC 7516 section 7.2.1). The base64url-encoded protected
// header is preserved verbatim between parse and decrypt since it is the
// additional authenticated data of the content AEAD.
type JSONWebEncryption struct {
	ProtectedHeaders Headers
	Recipients       []*Recipient
	IV               []byte
	Ciphertext       []byte
	Tag              []byte

	origProtected string
}

// Recipient is one entry of the JWE recipients array.
type Recipient struct {
	EncryptedKey []byte
	Header       RecipientHeaders
}

// RecipientHeaders is the per-recipient unprotected header. SenderKID is an
// unauthenticated hint helping the recipient resolve the sender's key; it is
// not bound by the content AEAD.
type RecipientHeaders struct {
	KID       string `json:"kid,omitempty"`
	SenderKID string `json:"sender_kid,omitempty"`
}

type rawJWE struct {
	Protected  string         `json:"protected"`
	Recipients []rawRecipient `json:"recipients"`
	IV         string         `json:"iv"`
	Ciphertext string         `json:"ciphertext"`
	Tag        string         `json:"tag"`
}

type rawRecipient struct {
	EncryptedKey string            `json:"encrypted_key"`
	Header       *RecipientHeaders `json:"header,omitempty"`
}

// OrigProtectedB64 returns the base64url protected header exactly as built
// by the encrypter or read off the wire.
func (j *JSONWebEncryption) OrigProtectedB64() string {
	return j.origProtected
}

// Serialize returns the general JSON serialization of the envelope.
func (j *JSONWebEncryption) Serialize() (string, error) {
	if j.origProtected == "" || len(j.Recipients) == 0 {
		return "", fmt.Errorf("serialize JWE: incomplete envelope: %w", cryptoapi.ErrSerialization)
	}

	raw := rawJWE{
		Protected:  j.origProtected,
		IV:         base64.RawURLEncoding.EncodeToString(j.IV),
		Ciphertext: base64.RawURLEncoding.EncodeToString(j.Ciphertext),
		Tag:        base64.RawURLEncoding.EncodeToString(j.Tag),
	}

	for _, recipient := range j.Recipients {
		rawRec := rawRecipient{
			EncryptedKey: base64.RawURLEncoding.EncodeToString(recipient.EncryptedKey),
		}

		if recipient.Header.KID != "" {
			header := recipient.Header
			rawRec.Header = &header
		}

		raw.Recipients = append(raw.Recipients, rawRec)
	}

	serialized, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("serialize JWE: %w", cryptoapi.ErrSerialization)
	}

	return string(serialized), nil
}

// ParseJWE reads a JWE in general JSON serialization. The envelope shape is
// validated; nothing is decrypted.
func ParseJWE(serialized string) (*JSONWebEncryption, error) {
	var raw rawJWE

	if err := json.Unmarshal([]byte(serialized), &raw); err != nil {
		return nil, fmt.Errorf("parse JWE: %w", cryptoapi.ErrSerialization)
	}

	if raw.Protected == "" {
		return nil, fmt.Errorf("parse JWE: missing protected header: %w", cryptoapi.ErrInvalidFormat)
	}

	if len(raw.Recipients) == 0 {
		return nil, fmt.Errorf("parse JWE: no recipients: %w", cryptoapi.ErrInvalidFormat)
	}

	protectedBytes, err := base64.RawURLEncoding.DecodeString(raw.Protected)
	if err != nil {
		return nil, fmt.Errorf("parse JWE: protected header: %w", cryptoapi.ErrInvalidFormat)
	}

	var protected Headers

	if err := json.Unmarshal(protectedBytes, &protected); err != nil {
		return nil, fmt.Errorf("parse JWE: protected header: %w", cryptoapi.ErrInvalidFormat)
	}

	jwe := &JSONWebEncryption{
		ProtectedHeaders: protected,
		origProtected:    raw.Protected,
	}

	if jwe.IV, err = base64.RawURLEncoding.DecodeString(raw.IV); err != nil {
		return nil, fmt.Errorf("parse JWE: iv: %w", cryptoapi.ErrInvalidFormat)
	}

	if jwe.Ciphertext, err = base64.RawURLEncoding.DecodeString(raw.Ciphertext); err != nil {
		return nil, fmt.Errorf("parse JWE: ciphertext: %w", cryptoapi.ErrInvalidFormat)
	}

	if jwe.Tag, err = base64.RawURLEncoding.DecodeString(raw.Tag); err != nil {
		return nil, fmt.Errorf("parse JWE: tag: %w", cryptoapi.ErrInvalidFormat)
	}

	for i, rawRec := range raw.Recipients {
		encryptedKey, err := base64.RawURLEncoding.DecodeString(rawRec.EncryptedKey)
		if err != nil {
			return nil, fmt.Errorf("parse JWE: recipient %d encrypted_key: %w", i, cryptoapi.ErrInvalidFormat)
		}

		recipient := &Recipient{EncryptedKey: encryptedKey}

		if rawRec.Header != nil {
			recipient.Header = *rawRec.Header
		}

		jwe.Recipients = append(jwe.Recipients, recipient)
	}

	return jwe, nil
}
