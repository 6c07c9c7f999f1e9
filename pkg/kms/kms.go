/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package kms provides an in-memory key manager holding an agent's own keys.
package kms

import (
	"fmt"
	"sort"
	"sync"

	cryptoapi "github.com/transaction-authorization/tap-go/pkg/crypto"
)

// KeyManager stores AgentKeys by key id and hands them out by the capability
// the caller asks for. It is safe for concurrent use.
type KeyManager struct {
	mu   sync.RWMutex
	keys map[string]cryptoapi.AgentKey
}

// New creates an empty KeyManager.
func New() *KeyManager {
	return &KeyManager{keys: make(map[string]cryptoapi.AgentKey)}
}

// Add stores key under its key id, replacing any previous entry.
func (k *KeyManager) Add(key cryptoapi.AgentKey) error {
	if key == nil || key.KeyID() == "" {
		return fmt.Errorf("kms add: %w", cryptoapi.ErrInvalidKey)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.keys[key.KeyID()] = key

	return nil
}

// Get returns the key stored under kid.
func (k *KeyManager) Get(kid string) (cryptoapi.AgentKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	key, ok := k.keys[kid]
	if !ok {
		return nil, fmt.Errorf("kms get: kid %q: %w", kid, cryptoapi.ErrKeyNotFound)
	}

	return key, nil
}

// GetSigningKey returns the key stored under kid if it can sign.
func (k *KeyManager) GetSigningKey(kid string) (cryptoapi.SigningKey, error) {
	key, err := k.Get(kid)
	if err != nil {
		return nil, err
	}

	signer, ok := key.(cryptoapi.SigningKey)
	if !ok {
		return nil, fmt.Errorf("kms: kid %q cannot sign: %w", kid, cryptoapi.ErrUnsupportedAlgorithm)
	}

	return signer, nil
}

// GetEncryptionKey returns the key stored under kid if it supports key
// agreement for encryption. Ed25519 keys do not.
func (k *KeyManager) GetEncryptionKey(kid string) (cryptoapi.EncryptionKey, error) {
	key, err := k.Get(kid)
	if err != nil {
		return nil, err
	}

	encKey, ok := key.(cryptoapi.EncryptionKey)
	if !ok {
		return nil, fmt.Errorf("kms: kid %q cannot encrypt: %w", kid, cryptoapi.ErrUnsupportedAlgorithm)
	}

	return encKey, nil
}

// GetDecryptionKey returns the key stored under kid if it can unwrap JWE
// envelopes addressed to it.
func (k *KeyManager) GetDecryptionKey(kid string) (cryptoapi.DecryptionKey, error) {
	key, err := k.Get(kid)
	if err != nil {
		return nil, err
	}

	decKey, ok := key.(cryptoapi.DecryptionKey)
	if !ok {
		return nil, fmt.Errorf("kms: kid %q cannot decrypt: %w", kid, cryptoapi.ErrUnsupportedAlgorithm)
	}

	return decKey, nil
}

// List returns the stored key ids in sorted order.
func (k *KeyManager) List() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	kids := make([]string, 0, len(k.keys))
	for kid := range k.keys {
		kids = append(kids, kid)
	}

	sort.Strings(kids)

	return kids
}

// Remove deletes the key stored under kid.
func (k *KeyManager) Remove(kid string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.keys[kid]; !ok {
		return fmt.Errorf("kms remove: kid %q: %w", kid, cryptoapi.ErrKeyNotFound)
	}

	delete(k.keys, kid)

	return nil
}
