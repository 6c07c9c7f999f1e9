/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fingerprint creates and parses did:key identifiers using multicodec
// key fingerprints as per https://w3c-ccg.github.io/did-method-key/#format.
package fingerprint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

const (
	// ED25519PubKeyMultiCodec for Ed25519 public key in multicodec table.
	// source: https://github.com/multiformats/multicodec/blob/master/table.csv.
	ED25519PubKeyMultiCodec = 0xed
	// Secp256k1PubKeyMultiCodec for secp256k1 compressed public key in multicodec table.
	Secp256k1PubKeyMultiCodec = 0xe7
	// P256PubKeyMultiCodec for NIST P-256 compressed public key in multicodec table.
	P256PubKeyMultiCodec = 0x1200
)

const didKeyPrefix = "did:key:"

// CreateDIDKeyByCode creates a did:key DID and its key id from the multicodec
// code and raw public key bytes. It does not parse the contents of pubKey.
func CreateDIDKeyByCode(code uint64, pubKey []byte) (string, string) {
	methodID := KeyFingerprint(code, pubKey)
	didKey := didKeyPrefix + methodID
	keyID := fmt.Sprintf("%s#%s", didKey, methodID)

	return didKey, keyID
}

// KeyFingerprint generates a multicodec fingerprint for pubKeyValue (raw key
// bytes). It is used as the method-specific ID of a did:key DID.
func KeyFingerprint(code uint64, pubKeyValue []byte) string {
	multicodecValue := multicodec(code)
	mcLength := len(multicodecValue)
	buf := make([]byte, mcLength+len(pubKeyValue))
	copy(buf, multicodecValue)
	copy(buf[mcLength:], pubKeyValue)

	return fmt.Sprintf("z%s", base58.Encode(buf))
}

func multicodec(code uint64) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	bw := binary.PutUvarint(buf, code)

	return buf[:bw]
}

// PubKeyFromFingerprint extracts the raw public key and its multicodec code
// from a did:key fingerprint (the method-specific ID, without the did:key:
// prefix).
func PubKeyFromFingerprint(fingerprint string) ([]byte, uint64, error) {
	const maxMulticodecBytes = 9

	if len(fingerprint) < 2 || fingerprint[0] != 'z' {
		return nil, 0, errors.New("unknown key encoding")
	}

	mc := base58.Decode(fingerprint[1:]) // skip leading "z"

	code, br := binary.Uvarint(mc)
	if br == 0 {
		return nil, 0, errors.New("unknown key encoding")
	}

	if br > maxMulticodecBytes {
		return nil, 0, errors.New("code exceeds maximum size")
	}

	return mc[br:], code, nil
}

// MethodIDFromDIDKey returns the method-specific ID of a did:key DID or key
// id (a trailing #fragment is stripped).
func MethodIDFromDIDKey(didKey string) (string, error) {
	if !strings.HasPrefix(didKey, didKeyPrefix) {
		return "", fmt.Errorf("not a did:key DID: %s", didKey)
	}

	methodID := strings.TrimPrefix(didKey, didKeyPrefix)
	if i := strings.IndexByte(methodID, '#'); i >= 0 {
		methodID = methodID[:i]
	}

	if methodID == "" {
		return "", errors.New("empty did:key method ID")
	}

	return methodID, nil
}

// PubKeyFromDIDKey parses a did:key DID (or key id) and returns the raw
// public key value and its multicodec code.
func PubKeyFromDIDKey(didKey string) ([]byte, uint64, error) {
	methodID, err := MethodIDFromDIDKey(didKey)
	if err != nil {
		return nil, 0, fmt.Errorf("pubKeyFromDIDKey: %w", err)
	}

	pubKey, code, err := PubKeyFromFingerprint(methodID)
	if err != nil {
		return nil, 0, err
	}

	switch code {
	case ED25519PubKeyMultiCodec, Secp256k1PubKeyMultiCodec, P256PubKeyMultiCodec:
	default:
		return nil, 0, fmt.Errorf("pubKeyFromDIDKey: unsupported key multicodec code [0x%x]", code)
	}

	return pubKey, code, nil
}
