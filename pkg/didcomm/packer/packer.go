/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package packer implements the message packing pipeline: a single Pack and
// Unpack surface over the plain, signed and encrypted envelope formats.
package packer

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"

	cryptoapi "github.com/transaction-authorization/tap-go/pkg/crypto"
	"github.com/transaction-authorization/tap-go/pkg/doc/jose"
	"github.com/transaction-authorization/tap-go/pkg/doc/jose/jwk"
	"github.com/transaction-authorization/tap-go/pkg/doc/jose/kid/resolver"
	"github.com/transaction-authorization/tap-go/pkg/kms"
)

var logger = log.New("tap-go/pkg/didcomm/packer")

// Mode is the security mode of an envelope.
type Mode int

// Envelope security modes.
const (
	// Plain is an unprotected JSON message.
	Plain Mode = iota

	// Signed is a JWS envelope carrying one or more signatures.
	Signed

	// Encrypted is a multi-recipient JWE envelope.
	Encrypted
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case Plain:
		return "plain"
	case Signed:
		return "signed"
	case Encrypted:
		return "encrypted"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// SecurityMode selects the envelope format of Pack and carries the key ids
// the selected format needs. Use the constructors; the zero value is Plain.
type SecurityMode struct {
	mode          Mode
	signerKID     string
	senderKID     string
	recipientKIDs []string
}

// PlainMode packs the message without protection.
func PlainMode() SecurityMode {
	return SecurityMode{mode: Plain}
}

// SignedMode signs the message with the agent key stored under signerKID.
func SignedMode(signerKID string) SecurityMode {
	return SecurityMode{mode: Signed, signerKID: signerKID}
}

// EncryptedMode encrypts the message to the given recipient kids. senderKID
// is optional; when set it is carried in the envelope as an unauthenticated
// sender hint.
func EncryptedMode(senderKID string, recipientKIDs ...string) SecurityMode {
	return SecurityMode{mode: Encrypted, senderKID: senderKID, recipientKIDs: recipientKIDs}
}

// Envelope is the result of Unpack: the message plus provenance describing
// how it was protected on the wire.
type Envelope struct {
	// Message is the unpacked payload.
	Message []byte

	// Mode is the envelope format found on the wire.
	Mode Mode

	// SignerKID is the kid of the first verified signature of a signed
	// envelope.
	SignerKID string

	// SenderKID is the sender hint of an encrypted envelope. It is not
	// authenticated.
	SenderKID string

	// RecipientKID is the local key that decrypted an encrypted envelope.
	RecipientKID string
}

// Provider supplies the packer's dependencies.
type Provider interface {
	KMS() *kms.KeyManager
	KIDResolver() resolver.KIDResolver
}

// UnpackOption is a policy option of Unpack.
type UnpackOption func(*unpackOpts)

type unpackOpts struct {
	requireSignature bool
}

// WithRequireSignature makes Unpack fail with ErrPolicyViolation unless the
// envelope carries at least one verified signature.
func WithRequireSignature() UnpackOption {
	return func(o *unpackOpts) {
		o.requireSignature = true
	}
}

// Packer packs and unpacks messages.
type Packer struct {
	kms      *kms.KeyManager
	resolver resolver.KIDResolver
	encAlg   jose.EncAlg
}

// New creates a Packer. encAlg selects the content encryption algorithm of
// encrypted envelopes.
func New(p Provider, encAlg jose.EncAlg) (*Packer, error) {
	if encAlg != jose.A256GCM && encAlg != jose.XC20P {
		return nil, fmt.Errorf("packer: enc %q: %w", encAlg, cryptoapi.ErrUnsupportedAlgorithm)
	}

	return &Packer{
		kms:      p.KMS(),
		resolver: p.KIDResolver(),
		encAlg:   encAlg,
	}, nil
}

// Pack wraps payload in the envelope format selected by mode and returns the
// serialized envelope. payload must be valid JSON in every mode.
func (p *Packer) Pack(payload []byte, mode SecurityMode) (string, error) {
	if !json.Valid(payload) {
		return "", fmt.Errorf("pack: payload is not JSON: %w", cryptoapi.ErrInvalidParameter)
	}

	switch mode.mode {
	case Plain:
		return string(payload), nil
	case Signed:
		return p.packSigned(payload, mode.signerKID)
	case Encrypted:
		return p.packEncrypted(payload, mode.senderKID, mode.recipientKIDs)
	default:
		return "", fmt.Errorf("pack: mode %s: %w", mode.mode, cryptoapi.ErrInvalidParameter)
	}
}

func (p *Packer) packSigned(payload []byte, signerKID string) (string, error) {
	signer, err := p.kms.GetSigningKey(signerKID)
	if err != nil {
		return "", fmt.Errorf("pack signed: %w", err)
	}

	jws, err := jose.NewJWS(payload, signer)
	if err != nil {
		return "", fmt.Errorf("pack signed: %w", err)
	}

	serialized, err := jws.Serialize()
	if err != nil {
		return "", fmt.Errorf("pack signed: %w", err)
	}

	logger.Debugf("packed signed envelope: kid=%s", signerKID)

	return serialized, nil
}

func (p *Packer) packEncrypted(payload []byte, senderKID string, recipientKIDs []string) (string, error) {
	if len(recipientKIDs) == 0 {
		return "", fmt.Errorf("pack encrypted: no recipients: %w", cryptoapi.ErrInvalidParameter)
	}

	recipientKeys := make([]*jwk.JWK, 0, len(recipientKIDs))

	for _, kid := range recipientKIDs {
		key, err := p.resolver.Resolve(kid)
		if err != nil {
			return "", fmt.Errorf("pack encrypted: recipient %q: %w", kid, err)
		}

		if key.KeyID == "" {
			key.KeyID = kid
		}

		recipientKeys = append(recipientKeys, key)
	}

	encrypter, err := jose.NewJWEEncrypt(p.encAlg, senderKID, recipientKeys...)
	if err != nil {
		return "", fmt.Errorf("pack encrypted: %w", err)
	}

	jwe, err := encrypter.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("pack encrypted: %w", err)
	}

	serialized, err := jwe.Serialize()
	if err != nil {
		return "", fmt.Errorf("pack encrypted: %w", err)
	}

	logger.Debugf("packed encrypted envelope: recipients=%d", len(recipientKIDs))

	return serialized, nil
}

// Unpack detects the envelope format of the serialized message, removes the
// protection layer and returns the payload with its provenance.
func (p *Packer) Unpack(envelope string, opts ...UnpackOption) (*Envelope, error) {
	options := &unpackOpts{}
	for _, opt := range opts {
		opt(options)
	}

	mode, err := detectMode([]byte(envelope))
	if err != nil {
		return nil, err
	}

	var unpacked *Envelope

	switch mode {
	case Plain:
		unpacked = &Envelope{Message: []byte(envelope), Mode: Plain}
	case Signed:
		unpacked, err = p.unpackSigned(envelope)
	case Encrypted:
		unpacked, err = p.unpackEncrypted(envelope)
	}

	if err != nil {
		return nil, err
	}

	if options.requireSignature && unpacked.Mode != Signed {
		return nil, fmt.Errorf("unpack: envelope is %s, signature required: %w",
			unpacked.Mode, cryptoapi.ErrPolicyViolation)
	}

	return unpacked, nil
}

// detectMode probes the envelope shape: a JWE has recipients and ciphertext,
// a JWS has signatures and payload, anything else that parses as JSON is a
// plain message.
func detectMode(envelope []byte) (Mode, error) {
	var probe map[string]json.RawMessage

	if err := json.Unmarshal(envelope, &probe); err != nil {
		if json.Valid(envelope) {
			return Plain, nil
		}

		return Plain, fmt.Errorf("unpack: envelope is not JSON: %w", cryptoapi.ErrInvalidFormat)
	}

	_, hasCiphertext := probe["ciphertext"]
	_, hasRecipients := probe["recipients"]

	if hasCiphertext && hasRecipients {
		return Encrypted, nil
	}

	_, hasSignatures := probe["signatures"]
	_, hasPayload := probe["payload"]

	if hasSignatures && hasPayload {
		return Signed, nil
	}

	return Plain, nil
}

func (p *Packer) unpackSigned(envelope string) (*Envelope, error) {
	jws, err := jose.ParseJWS(envelope)
	if err != nil {
		return nil, fmt.Errorf("unpack signed: %w", err)
	}

	if err := jws.Verify(p.verificationKeyFor); err != nil {
		return nil, fmt.Errorf("unpack signed: %w", err)
	}

	logger.Debugf("unpacked signed envelope: signatures=%d", len(jws.Signatures))

	return &Envelope{
		Message:   jws.Payload,
		Mode:      Signed,
		SignerKID: jws.Signatures[0].KID,
	}, nil
}

// verificationKeyFor looks the signer's kid up in the local KMS first, then
// falls back to the kid resolver for keys of other agents.
func (p *Packer) verificationKeyFor(kid string) (*cryptoapi.VerificationKey, error) {
	if key, err := p.kms.Get(kid); err == nil {
		return cryptoapi.VerificationKeyFor(key)
	}

	key, err := p.resolver.Resolve(kid)
	if err != nil {
		return nil, err
	}

	return cryptoapi.NewVerificationKey(kid, key)
}

func (p *Packer) unpackEncrypted(envelope string) (*Envelope, error) {
	jwe, err := jose.ParseJWE(envelope)
	if err != nil {
		return nil, fmt.Errorf("unpack encrypted: %w", err)
	}

	recipientKID, decKey, err := p.findDecryptionKey(jwe)
	if err != nil {
		return nil, err
	}

	payload, err := jose.NewJWEDecrypt(decKey).Decrypt(jwe)
	if err != nil {
		return nil, fmt.Errorf("unpack encrypted: %w", err)
	}

	senderKID := recipientSenderKID(jwe, recipientKID)
	if senderKID == "" {
		senderKID, _ = jwe.ProtectedHeaders.SenderKeyID()
	}

	logger.Debugf("unpacked encrypted envelope: kid=%s", recipientKID)

	return &Envelope{
		Message:      payload,
		Mode:         Encrypted,
		SenderKID:    senderKID,
		RecipientKID: recipientKID,
	}, nil
}

func recipientSenderKID(jwe *jose.JSONWebEncryption, recipientKID string) string {
	for _, recipient := range jwe.Recipients {
		if recipient.Header.KID == recipientKID {
			return recipient.Header.SenderKID
		}
	}

	return ""
}

// findDecryptionKey picks the first recipient entry whose kid is a
// decryption key held by the local KMS.
func (p *Packer) findDecryptionKey(jwe *jose.JSONWebEncryption) (string, cryptoapi.DecryptionKey, error) {
	for _, recipient := range jwe.Recipients {
		kid := recipient.Header.KID
		if kid == "" {
			continue
		}

		decKey, err := p.kms.GetDecryptionKey(kid)
		if err != nil {
			continue
		}

		return kid, decKey, nil
	}

	return "", nil, fmt.Errorf("unpack encrypted: no local recipient key: %w", cryptoapi.ErrDecryptionFailed)
}
