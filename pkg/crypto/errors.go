/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import "errors"

// Error kinds surfaced by the secure envelope core. Callers match them with
// errors.Is; the attached message is an opaque reason string and carries no
// information an attacker could use to distinguish failure causes on the
// decrypt/unwrap paths.
var (
	// ErrInvalidParameter is returned on malformed calls, e.g. a KDF output
	// length of zero or a key wrap input that is not a multiple of 8 bytes.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnsupportedAlgorithm is returned when a capability is requested of a
	// key whose algorithm does not support it.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

	// ErrInvalidKey is returned when key material is malformed (wrong length,
	// point not on curve, curve mismatch).
	ErrInvalidKey = errors.New("invalid key")

	// ErrIntegrityCheckFailed is returned by AES key unwrap when the embedded
	// integrity check value does not verify.
	ErrIntegrityCheckFailed = errors.New("integrity check failed")

	// ErrVerificationFailed is returned when a signature does not verify.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrDecryptionFailed is returned on any JWE decryption failure: wrong
	// key, missing recipient entry, tampered wrapped key or ciphertext.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrSerialization is returned when an envelope cannot be marshalled or
	// unmarshalled.
	ErrSerialization = errors.New("serialization error")

	// ErrInvalidFormat is returned when an envelope parses as JSON but does
	// not have the expected shape.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrKeyNotFound is returned by key managers and kid resolvers on a miss.
	ErrKeyNotFound = errors.New("key not found")

	// ErrPolicyViolation is returned by Unpack when the envelope parsed
	// correctly but does not satisfy a caller-supplied policy option.
	ErrPolicyViolation = errors.New("policy violation")
)
