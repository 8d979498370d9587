package token

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	// ErrMalformed is returned for bad text encoding, undersized input or a
	// payload that does not parse.
	ErrMalformed = errors.New("token malformed")
	// ErrAuthenticationFailed is returned when the tag check fails.
	ErrAuthenticationFailed = errors.New("token authentication failed")
	// ErrWeakSecret is returned by [NewCodec] for secrets shorter than [MinSecretLength].
	ErrWeakSecret = errors.New("token secret too short")
)

// MinSecretLength is the minimum accepted server secret size in bytes.
const MinSecretLength = 32

const (
	nonceSize = chacha20poly1305.NonceSizeX
	tagSize   = chacha20poly1305.Overhead
	keyInfo   = "goSession token v1"
	sealAAD   = "goSession/session-claims"
)

var encoding = base64.RawURLEncoding.Strict()

// IsInvalid reports whether err is one of the decode failures. Callers use
// it to collapse both into a single "invalid token" outcome.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrAuthenticationFailed)
}

// Codec seals and opens session claims under one server secret.
type Codec struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewCodec derives the AEAD key from secret.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	return &Codec{aead: aead, rand: rand.Reader}, nil
}

// NewNonce returns a fresh [NonceHexLength]-character hex nonce.
func (c *Codec) NewNonce() (string, error) {
	raw := make([]byte, NonceHexLength/2)
	if _, err := io.ReadFull(c.rand, raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// Encode seals claims into an opaque token.
func (c *Codec) Encode(claims Claims) (string, error) {
	plaintext, err := encodeClaims(claims)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize, nonceSize+tagSize+len(plaintext))
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", err
	}

	// Seal returns ciphertext‖tag; the wire layout puts the tag first.
	sealed := c.aead.Seal(nil, nonce, plaintext, []byte(sealAAD))
	ctLen := len(sealed) - tagSize

	raw := append(nonce, sealed[ctLen:]...)
	raw = append(raw, sealed[:ctLen]...)

	return encoding.EncodeToString(raw), nil
}

// Decode authenticates and opens an opaque token.
func (c *Codec) Decode(opaque string) (Claims, error) {
	raw, err := encoding.DecodeString(opaque)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) < nonceSize+tagSize+1 {
		return Claims{}, fmt.Errorf("%w: token too short", ErrMalformed)
	}

	nonce := raw[:nonceSize]
	tag := raw[nonceSize : nonceSize+tagSize]
	ciphertext := raw[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, nonce, sealed, []byte(sealAAD))
	if err != nil {
		return Claims{}, ErrAuthenticationFailed
	}

	claims, err := decodeClaims(plaintext)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return claims, nil
}
