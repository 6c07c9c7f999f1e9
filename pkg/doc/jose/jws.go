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

// Signer produces one signature over a JWS signing input. It is satisfied by
// crypto.SigningKey.
type Signer interface {
	Sign(data []byte) ([]byte, error)
	KeyID() string
	JWSAlgorithm() string
}

// JSONWebSignature is a JWS in general JSON serialization with one or more
// signatures over a shared payload (RFC 7515 section 7.2.1).
type JSONWebSignature struct {
	Payload    []byte
	Signatures []Signature
}

// Signature is one entry of the JWS signatures array. The base64url-encoded
// protected header is kept verbatim so verification recomputes the signing
// input exactly as it was signed.
type Signature struct {
	ProtectedHeaders Headers
	KID              string
	Signature        []byte

	protectedB64 string
}

// Algorithm returns the alg of this signature's protected header.
func (s *Signature) Algorithm() string {
	alg, _ := s.ProtectedHeaders.Algorithm()

	return alg
}

type rawJWS struct {
	Payload    string         `json:"payload"`
	Signatures []rawSignature `json:"signatures"`
}

type rawSignature struct {
	Protected string                 `json:"protected"`
	Header    map[string]interface{} `json:"header,omitempty"`
	Signature string                 `json:"signature"`
}

// NewJWS signs payload with each signer and returns the assembled envelope.
// Every signature carries its own protected header with the signer's alg and
// the shared typ; the signer's kid goes into the unprotected header.
func NewJWS(payload []byte, signers ...Signer) (*JSONWebSignature, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("sign JWS: no signers: %w", cryptoapi.ErrInvalidParameter)
	}

	jws := &JSONWebSignature{Payload: payload}

	payloadB64 := base64.RawURLEncoding.EncodeToString(payload)

	for _, signer := range signers {
		protected := Headers{
			HeaderAlgorithm: signer.JWSAlgorithm(),
			HeaderType:      TypSigned,
		}

		protectedBytes, err := json.Marshal(protected)
		if err != nil {
			return nil, fmt.Errorf("sign JWS: marshal protected headers: %w", err)
		}

		protectedB64 := base64.RawURLEncoding.EncodeToString(protectedBytes)

		sig, err := signer.Sign([]byte(protectedB64 + "." + payloadB64))
		if err != nil {
			return nil, fmt.Errorf("sign JWS: kid %s: %w", signer.KeyID(), err)
		}

		jws.Signatures = append(jws.Signatures, Signature{
			ProtectedHeaders: protected,
			KID:              signer.KeyID(),
			Signature:        sig,
			protectedB64:     protectedB64,
		})
	}

	return jws, nil
}

// Serialize returns the general JSON serialization of the envelope.
func (j *JSONWebSignature) Serialize() (string, error) {
	if len(j.Signatures) == 0 {
		return "", fmt.Errorf("serialize JWS: no signatures: %w", cryptoapi.ErrSerialization)
	}

	raw := rawJWS{
		Payload: base64.RawURLEncoding.EncodeToString(j.Payload),
	}

	for i := range j.Signatures {
		sig := &j.Signatures[i]

		header := map[string]interface{}{}
		if sig.KID != "" {
			header[HeaderKeyID] = sig.KID
		}

		raw.Signatures = append(raw.Signatures, rawSignature{
			Protected: sig.protectedB64,
			Header:    header,
			Signature: base64.RawURLEncoding.EncodeToString(sig.Signature),
		})
	}

	serialized, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("serialize JWS: %w", cryptoapi.ErrSerialization)
	}

	return string(serialized), nil
}

// ParseJWS reads a JWS in general JSON serialization. The envelope shape is
// validated; signatures are not verified.
func ParseJWS(serialized string) (*JSONWebSignature, error) {
	var raw rawJWS

	if err := json.Unmarshal([]byte(serialized), &raw); err != nil {
		return nil, fmt.Errorf("parse JWS: %w", cryptoapi.ErrSerialization)
	}

	if len(raw.Signatures) == 0 {
		return nil, fmt.Errorf("parse JWS: no signatures: %w", cryptoapi.ErrInvalidFormat)
	}

	payload, err := base64.RawURLEncoding.DecodeString(raw.Payload)
	if err != nil {
		return nil, fmt.Errorf("parse JWS: payload: %w", cryptoapi.ErrInvalidFormat)
	}

	jws := &JSONWebSignature{Payload: payload}

	for i, rawSig := range raw.Signatures {
		protectedBytes, err := base64.RawURLEncoding.DecodeString(rawSig.Protected)
		if err != nil {
			return nil, fmt.Errorf("parse JWS: signature %d protected headers: %w", i, cryptoapi.ErrInvalidFormat)
		}

		var protected Headers

		if err := json.Unmarshal(protectedBytes, &protected); err != nil {
			return nil, fmt.Errorf("parse JWS: signature %d protected headers: %w", i, cryptoapi.ErrInvalidFormat)
		}

		if _, ok := protected.Algorithm(); !ok {
			return nil, fmt.Errorf("parse JWS: signature %d missing alg: %w", i, cryptoapi.ErrInvalidFormat)
		}

		sigBytes, err := base64.RawURLEncoding.DecodeString(rawSig.Signature)
		if err != nil {
			return nil, fmt.Errorf("parse JWS: signature %d: %w", i, cryptoapi.ErrInvalidFormat)
		}

		kid := ""
		if rawKid, ok := rawSig.Header[HeaderKeyID].(string); ok {
			kid = rawKid
		}

		jws.Signatures = append(jws.Signatures, Signature{
			ProtectedHeaders: protected,
			KID:              kid,
			Signature:        sigBytes,
			protectedB64:     rawSig.Protected,
		})
	}

	return jws, nil
}

// Verify checks every signature of the envelope. keyFor resolves a kid to
// the verification key; an envelope verifies only if all of its signatures
// verify. The signing input is rebuilt from the stored base64url protected
// header, so any tampering with protected headers, payload or signature
// bytes fails verification.
func (j *JSONWebSignature) Verify(keyFor func(kid string) (*cryptoapi.VerificationKey, error)) error {
	if len(j.Signatures) == 0 {
		return fmt.Errorf("verify JWS: no signatures: %w", cryptoapi.ErrInvalidFormat)
	}

	payloadB64 := base64.RawURLEncoding.EncodeToString(j.Payload)

	for i := range j.Signatures {
		sig := &j.Signatures[i]

		key, err := keyFor(sig.KID)
		if err != nil {
			return fmt.Errorf("verify JWS: signature %d kid %q: %w", i, sig.KID, err)
		}

		signingInput := []byte(sig.protectedB64 + "." + payloadB64)

		if err := key.Verify(signingInput, sig.Signature, sig.Algorithm()); err != nil {
			return fmt.Errorf("verify JWS: signature %d kid %q: %w", i, sig.KID, err)
		}
	}

	return nil
}
