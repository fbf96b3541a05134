// Package seal 提供集群报文与敏感字段的对称加密封装。
package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrOpen 封包解密或校验失败。
var ErrOpen = errors.New("seal: open failed")

// Sealer 基于 ChaCha20-Poly1305 的封包器，密钥由口令派生。
type Sealer struct {
	key []byte
}

// New 从集群口令派生封包密钥。
func New(passphrase string) *Sealer {
	sum := sha256.Sum256([]byte(passphrase))
	return &Sealer{key: sum[:]}
}

// Seal 加密明文，随机 nonce 置于密文前部。
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open 解密封包，校验失败返回 ErrOpen。
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrOpen
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}

// SealString 封装文本字段，输出 base64 便于落库。
func (s *Sealer) SealString(v string) (string, error) {
	b, err := s.Seal([]byte(v))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// OpenString 还原 SealString 的输出。
func (s *Sealer) OpenString(v string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return "", ErrOpen
	}
	b, err := s.Open(raw)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
