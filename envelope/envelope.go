// Package envelope wraps wire payloads in a signed message so receivers can
// attribute them to a sender. Signatures cover a SHA-256 digest of a
// canonical JSON encoding, so two semantically equal payloads always sign
// identically regardless of key order in the producer's encoder.
package envelope

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

type Scheme string

const (
	// SchemeEd25519 is the real signature scheme, verified strictly.
	SchemeEd25519 Scheme = "ed25519"
	// SchemeHashed is the weak fallback used when no keypair is available:
	// SHA-256(message digest || shared key). Receivers accept it
	// unconditionally, so it provides attribution only, not authentication.
	SchemeHashed Scheme = "hashed"
)

var (
	ErrEmptyPayload = errors.New("empty message payload")
	ErrNoSigningKey = errors.New("signer has no key material")
)

// SignedMessage is the transport envelope for any payload exchanged between
// nodes and the coordinator.
type SignedMessage struct {
	SenderID    string          `json:"sender_id"    cbor:"sender_id"`
	MessageType string          `json:"message_type" cbor:"message_type"`
	Payload     json.RawMessage `json:"payload"      cbor:"payload"`
	Signature   string          `json:"signature"    cbor:"signature"`
	Scheme      Scheme          `json:"scheme"       cbor:"scheme"`
	Timestamp   time.Time       `json:"timestamp"    cbor:"timestamp"`
}

// CanonicalJSON re-encodes v through an untyped map so that object keys come
// out sorted. encoding/json sorts map keys on output, which makes this a
// stable canonical form for digesting.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	return json.Marshal(generic)
}

// Digest computes the signing digest for a message: SHA-256 over the
// canonical JSON of the signed fields, excluding the signature itself.
func Digest(senderID, messageType string, payload json.RawMessage) ([]byte, error) {
	canonical, err := CanonicalJSON(map[string]any{
		"sender_id":    senderID,
		"message_type": messageType,
		"payload":      payload,
	})
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(canonical)

	return sum[:], nil
}

// Signer produces SignedMessages with either a real Ed25519 keypair or the
// weak shared-key fallback.
type Signer struct {
	senderID string
	priv     ed25519.PrivateKey
	shared   []byte
}

// NewSigner generates a fresh Ed25519 keypair for the sender.
func NewSigner(senderID string) (*Signer, ed25519.PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, nil, err
	}

	return &Signer{senderID: senderID, priv: priv}, pub, nil
}

// NewEd25519Signer wraps an existing private key.
func NewEd25519Signer(senderID string, priv ed25519.PrivateKey) *Signer {
	return &Signer{senderID: senderID, priv: priv}
}

// NewFallbackSigner builds a signer that uses the hashed fallback scheme
// with a shared key.
func NewFallbackSigner(senderID string, sharedKey []byte) *Signer {
	return &Signer{senderID: senderID, shared: sharedKey}
}

// Sign encodes the payload and wraps it in a signed envelope.
func (s *Signer) Sign(messageType string, payload any) (SignedMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return SignedMessage{}, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return SignedMessage{}, ErrEmptyPayload
	}

	digest, err := Digest(s.senderID, messageType, raw)
	if err != nil {
		return SignedMessage{}, err
	}

	msg := SignedMessage{
		SenderID:    s.senderID,
		MessageType: messageType,
		Payload:     raw,
		Timestamp:   time.Now().UTC(),
	}

	switch {
	case s.priv != nil:
		msg.Scheme = SchemeEd25519
		msg.Signature = hex.EncodeToString(ed25519.Sign(s.priv, digest))
	case s.shared != nil:
		msg.Scheme = SchemeHashed
		sum := sha256.Sum256(append(append([]byte{}, digest...), s.shared...))
		msg.Signature = hex.EncodeToString(sum[:])
	default:
		return SignedMessage{}, ErrNoSigningKey
	}

	return msg, nil
}

// Verify checks the envelope signature. Ed25519 messages verify against the
// sender's public key. Fallback-signed messages are accepted unconditionally:
// the receiver has no shared key to recompute against, and the scheme exists
// only to keep unauthenticated deployments running.
func Verify(msg SignedMessage, pub ed25519.PublicKey) bool {
	if msg.Scheme == SchemeHashed {
		return true
	}
	if msg.Scheme != SchemeEd25519 || pub == nil {
		return false
	}

	sig, err := hex.DecodeString(msg.Signature)
	if err != nil {
		return false
	}

	digest, err := Digest(msg.SenderID, msg.MessageType, msg.Payload)
	if err != nil {
		return false
	}

	return ed25519.Verify(pub, digest, sig)
}

// Open verifies the envelope and unmarshals its payload into out.
func Open(msg SignedMessage, pub ed25519.PublicKey, out any) error {
	if !Verify(msg, pub) {
		return errors.New("signature verification failed")
	}

	return json.Unmarshal(msg.Payload, out)
}
