/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jose implements the JWS and JWE envelope codecs of the TAP secure
// messaging layer: general JSON serialization, multi-recipient ECDH-ES+A256KW
// encryption and multi-signature signing, per RFC 7515/7516 with the DIDComm
// media types.
package jose

// IANA registered JOSE headers (https://tools.ietf.org/html/rfc7515#section-4.1).
const (
	// HeaderAlgorithm identifies the cryptographic algorithm (alg).
	HeaderAlgorithm = "alg"

	// HeaderEncryption identifies the content encryption algorithm (enc).
	HeaderEncryption = "enc"

	// HeaderKeyID identifies the key used (kid).
	HeaderKeyID = "kid"

	// HeaderSenderKeyID identifies the sender's key (skid), per
	// draft-looker-jwm ECDH-1PU usage.
	HeaderSenderKeyID = "skid"

	// HeaderType declares the media type of the complete envelope (typ).
	HeaderType = "typ"

	// HeaderEPK is the ephemeral public key of ECDH-ES (epk).
	HeaderEPK = "epk"

	// HeaderAPU is the agreement PartyUInfo (apu).
	HeaderAPU = "apu"

	// HeaderAPV is the agreement PartyVInfo (apv).
	HeaderAPV = "apv"
)

// Envelope media types.
const (
	// TypEncrypted is the typ header of encrypted envelopes.
	TypEncrypted = "application/didcomm-encrypted+json"

	// TypSigned is the typ header of signed envelopes.
	TypSigned = "application/didcomm-signed+json"
)

// A256KWAlg is the JWE key management algorithm used by this module.
const A256KWAlg = "ECDH-ES+A256KW"

// EncAlg is the JWE content encryption algorithm.
type EncAlg string

// Supported content encryption algorithms.
const (
	// A256GCM content encryption (RFC 7518 section 5.3).
	A256GCM = EncAlg("A256GCM")

	// XC20P content encryption (XChaCha20-Poly1305).
	XC20P = EncAlg("XC20P")
)

// Headers represents a JOSE header set.
type Headers map[string]interface{}

// KeyID gets the kid header.
func (h Headers) KeyID() (string, bool) {
	return h.stringValue(HeaderKeyID)
}

// SenderKeyID gets the skid header.
func (h Headers) SenderKeyID() (string, bool) {
	return h.stringValue(HeaderSenderKeyID)
}

// Algorithm gets the alg header.
func (h Headers) Algorithm() (string, bool) {
	return h.stringValue(HeaderAlgorithm)
}

// Encryption gets the enc header.
func (h Headers) Encryption() (string, bool) {
	return h.stringValue(HeaderEncryption)
}

// Type gets the typ header.
func (h Headers) Type() (string, bool) {
	return h.stringValue(HeaderType)
}

func (h Headers) stringValue(key string) (string, bool) {
	raw, ok := h[key]
	if !ok {
		return "", false
	}

	str, ok := raw.(string)

	return str, ok
}
