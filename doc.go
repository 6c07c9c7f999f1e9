/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tapgo provides the secure envelope layer of the Transaction
// Authorization Protocol (TAP): capability-typed agent keys, JWS and JWE
// envelope codecs built on ECDH-ES+A256KW with AES-256-GCM (or XC20P)
// content encryption, and a Pack/Unpack pipeline selecting among plain,
// signed and encrypted security modes.
//
// Everything above this layer (transaction semantics, routing, storage,
// transports, DID document resolution) treats the envelope as an opaque
// signed or encrypted blob and is out of scope for this module.
package tapgo
