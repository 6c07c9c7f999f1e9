/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jwk provides a JWK (RFC 7517) wrapper around go-jose's JSONWebKey
// adding support for secp256k1 keys, which go-jose does not marshal.
package jwk

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
	"github.com/go-jose/go-jose/v3"
)

const (
	ecKty         = "EC"
	okpKty        = "OKP"
	secp256k1Crv  = "secp256k1"
	secp256k1Size = 32
)

// ErrInvalidKey is returned when passed JWK is invalid.
var ErrInvalidKey = errors.New("invalid JWK")

// JWK (JSON Web Key) is a JSON data structure that represents a
// cryptographic key. It wraps jose.JSONWebKey, shadowing Kty and Crv so
// callers can inspect them without round-tripping through JSON.
type JWK struct {
	jose.JSONWebKey

	Kty string
	Crv string
}

// UnmarshalJSON reads a key from its JSON representation.
func (j *JWK) UnmarshalJSON(jwkBytes []byte) error {
	var key rawJSONWebKey

	if err := json.Unmarshal(jwkBytes, &key); err != nil {
		return fmt.Errorf("unable to read JWK: %w", err)
	}

	if key.Kty == ecKty && key.Crv == secp256k1Crv {
		if err := j.unmarshalSecp256k1(&key); err != nil {
			return fmt.Errorf("unable to read secp256k1 JWK: %w", err)
		}
	} else {
		var joseJWK jose.JSONWebKey

		if err := json.Unmarshal(jwkBytes, &joseJWK); err != nil {
			return fmt.Errorf("unable to read jose JWK: %w", err)
		}

		j.JSONWebKey = joseJWK
	}

	j.Kty = key.Kty
	j.Crv = key.Crv

	return nil
}

// MarshalJSON serializes the key to its JSON representation.
func (j *JWK) MarshalJSON() ([]byte, error) {
	if j.isSecp256k1() {
		return j.marshalSecp256k1()
	}

	return j.JSONWebKey.MarshalJSON()
}

func (j *JWK) isSecp256k1() bool {
	if j.Crv == secp256k1Crv {
		return true
	}

	switch key := j.Key.(type) {
	case *ecdsa.PublicKey:
		return key.Curve == btcec.S256()
	case *ecdsa.PrivateKey:
		return key.Curve == btcec.S256()
	default:
		return false
	}
}

// rawJSONWebKey mirrors the subset of RFC 7517/7518 fields needed for EC and
// OKP keys.
type rawJSONWebKey struct {
	Kty string `json:"kty,omitempty"`
	Kid string `json:"kid,omitempty"`
	Crv string `json:"crv,omitempty"`
	Alg string `json:"alg,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	D   string `json:"d,omitempty"`
}

func (j *JWK) unmarshalSecp256k1(raw *rawJSONWebKey) error {
	x, err := decodeCoord(raw.X)
	if err != nil {
		return err
	}

	y, err := decodeCoord(raw.Y)
	if err != nil {
		return err
	}

	pubKey := &ecdsa.PublicKey{
		Curve: btcec.S256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}

	if !btcec.S256().IsOnCurve(pubKey.X, pubKey.Y) {
		return ErrInvalidKey
	}

	j.JSONWebKey = jose.JSONWebKey{
		Key:       pubKey,
		KeyID:     raw.Kid,
		Algorithm: raw.Alg,
	}

	if raw.D != "" {
		d, err := decodeCoord(raw.D)
		if err != nil {
			return err
		}

		j.JSONWebKey.Key = &ecdsa.PrivateKey{
			PublicKey: *pubKey,
			D:         new(big.Int).SetBytes(d),
		}
	}

	return nil
}

func (j *JWK) marshalSecp256k1() ([]byte, error) {
	raw := rawJSONWebKey{
		Kty: ecKty,
		Crv: secp256k1Crv,
		Kid: j.KeyID,
		Alg: j.Algorithm,
	}

	switch key := j.Key.(type) {
	case *ecdsa.PublicKey:
		raw.X = encodeCoord(key.X)
		raw.Y = encodeCoord(key.Y)
	case *ecdsa.PrivateKey:
		raw.X = encodeCoord(key.PublicKey.X)
		raw.Y = encodeCoord(key.PublicKey.Y)
		raw.D = encodeCoord(key.D)
	default:
		return nil, fmt.Errorf("marshal secp256k1 JWK: unsupported key type %T", j.Key)
	}

	return json.Marshal(raw)
}

func decodeCoord(coord string) ([]byte, error) {
	if coord == "" {
		return nil, ErrInvalidKey
	}

	return base64.RawURLEncoding.DecodeString(coord)
}

func encodeCoord(coord *big.Int) string {
	buf := make([]byte, secp256k1Size)
	coord.FillBytes(buf)

	return base64.RawURLEncoding.EncodeToString(buf)
}
