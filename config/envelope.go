package config

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"sort"
	"strings"

	"github.com/luno/jettison/errors"
)

// Envelope is an AES-GCM Decrypter. The encryption context is bound into the
// ciphertext as additional authenticated data, so decrypting with a different
// context fails.
type Envelope struct {
	aead cipher.AEAD
}

func NewEnvelope(key []byte) (*Envelope, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "envelope key")
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "envelope aead")
	}

	return &Envelope{aead: aead}, nil
}

var _ Decrypter = (*Envelope)(nil)

func (e *Envelope) Decrypt(ctx context.Context, ciphertext string, encContext map[string]string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Wrap(err, "decode ciphertext")
	}

	if len(raw) < e.aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	nonce, sealed := raw[:e.aead.NonceSize()], raw[e.aead.NonceSize():]

	plaintext, err := e.aead.Open(nil, nonce, sealed, canonicalContext(encContext))
	if err != nil {
		return "", errors.Wrap(err, "open ciphertext")
	}

	return string(plaintext), nil
}

// Encrypt is the inverse of Decrypt, used to provision ciphertext
// configuration values.
func (e *Envelope) Encrypt(plaintext string, encContext map[string]string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	_, err := rand.Read(nonce)
	if err != nil {
		return "", errors.Wrap(err, "nonce")
	}

	sealed := e.aead.Seal(nil, nonce, []byte(plaintext), canonicalContext(encContext))
	return base64.StdEncoding.EncodeToString(append(nonce, sealed...)), nil
}

func canonicalContext(encContext map[string]string) []byte {
	if len(encContext) == 0 {
		return nil
	}

	pairs := make([]string, 0, len(encContext))
	for k, v := range encContext {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)

	return []byte(strings.Join(pairs, "&"))
}
