/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resolver resolves JOSE kid values to public JWKs.
package resolver

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"fmt"
	"sync"

	"github.com/bluele/gcache"
	"github.com/btcsuite/btcd/btcec"

	cryptoapi "github.com/transaction-authorization/tap-go/pkg/crypto"
	"github.com/transaction-authorization/tap-go/pkg/doc/jose/jwk"
	"github.com/transaction-authorization/tap-go/pkg/doc/util/fingerprint"
)

// KIDResolver helps resolve the kid of a JWS signature or JWE recipient into
// a public JWK usable for verification or key agreement.
type KIDResolver interface {
	// Resolve returns the public JWK identified by kid.
	Resolve(kid string) (*jwk.JWK, error)
}

// DIDKeyResolver resolves did:key kids by decoding the public key embedded
// in the DID fingerprint. It needs no external state.
type DIDKeyResolver struct{}

// Resolve decodes a did:key kid into its public JWK.
func (k *DIDKeyResolver) Resolve(kid string) (*jwk.JWK, error) {
	pubKeyBytes, code, err := fingerprint.PubKeyFromDIDKey(kid)
	if err != nil {
		return nil, fmt.Errorf("didKeyResolver: %v: %w", err, cryptoapi.ErrKeyNotFound)
	}

	var rawKey interface{}

	switch code {
	case fingerprint.ED25519PubKeyMultiCodec:
		if len(pubKeyBytes) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("didKeyResolver: ed25519 key length %d: %w", len(pubKeyBytes), cryptoapi.ErrInvalidKey)
		}

		rawKey = ed25519.PublicKey(pubKeyBytes)
	case fingerprint.Secp256k1PubKeyMultiCodec:
		// stdlib point decompression assumes a NIST curve polynomial, so
		// secp256k1 points go through btcec.
		pubKey, err := btcec.ParsePubKey(pubKeyBytes, btcec.S256())
		if err != nil {
			return nil, fmt.Errorf("didKeyResolver: secp256k1 key: %w", cryptoapi.ErrInvalidKey)
		}

		rawKey = pubKey.ToECDSA()
	case fingerprint.P256PubKeyMultiCodec:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), pubKeyBytes)
		if x == nil {
			return nil, fmt.Errorf("didKeyResolver: p-256 key: %w", cryptoapi.ErrInvalidKey)
		}

		rawKey = &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
	default:
		return nil, fmt.Errorf("didKeyResolver: multicodec code 0x%x: %w", code, cryptoapi.ErrUnsupportedAlgorithm)
	}

	key, err := jwk.FromKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("didKeyResolver: %w", err)
	}

	key.KeyID = kid

	return key, nil
}

// StoreResolver resolves kids from an in-memory registry of published keys,
// for DID methods whose keys cannot be derived from the kid itself.
type StoreResolver struct {
	mu   sync.RWMutex
	keys map[string]*jwk.JWK
}

// NewStoreResolver creates an empty StoreResolver.
func NewStoreResolver() *StoreResolver {
	return &StoreResolver{keys: make(map[string]*jwk.JWK)}
}

// Add registers a public JWK under kid, replacing any previous entry.
func (s *StoreResolver) Add(kid string, key *jwk.JWK) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[kid] = key
}

// Resolve returns the public JWK registered under kid.
func (s *StoreResolver) Resolve(kid string) (*jwk.JWK, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("storeResolver: kid %q: %w", kid, cryptoapi.ErrKeyNotFound)
	}

	return key, nil
}

// CachedResolver memoizes another resolver's successful lookups in an LRU
// cache. Misses and errors are not cached.
type CachedResolver struct {
	resolver KIDResolver
	cache    gcache.Cache
}

// NewCachedResolver creates a CachedResolver of the given size around
// resolver.
func NewCachedResolver(resolver KIDResolver, size int) *CachedResolver {
	return &CachedResolver{
		resolver: resolver,
		cache:    gcache.New(size).LRU().Build(),
	}
}

// Resolve returns the cached JWK for kid, delegating to the wrapped resolver
// on a cache miss.
func (c *CachedResolver) Resolve(kid string) (*jwk.JWK, error) {
	if cached, err := c.cache.Get(kid); err == nil {
		return cached.(*jwk.JWK), nil
	}

	key, err := c.resolver.Resolve(kid)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(kid, key); err != nil {
		return nil, fmt.Errorf("cachedResolver: %w", err)
	}

	return key, nil
}
