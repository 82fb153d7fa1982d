package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const keySize = 32 // AES-256

// ErrDecode is returned when a stored envelope cannot be decrypted. Callers
// are expected to recover by falling back to the raw stored value.
var ErrDecode = errors.New("cannot decode message envelope")

// Codec encrypts message text for at-rest storage. The storage format is
// base64(iv) + ":" + base64(ciphertext), AES-256-CBC with a random IV per
// call. The envelope must round-trip exactly.
type Codec struct {
	key []byte
}

// NewCodec derives a codec from the configured master key. The key material
// is truncated or zero-padded to 32 bytes.
func NewCodec(masterKey string) *Codec {
	key := make([]byte, keySize)
	copy(key, masterKey)
	return &Codec{key: key}
}

// Encrypt returns the storage envelope for plain. Empty input is returned
// unchanged: attachment-only messages carry no text and must not grow an
// envelope.
func (c *Codec) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(iv) + ":" + base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Malformed envelopes yield ErrDecode.
func (c *Codec) Decrypt(envelope string) (string, error) {
	if envelope == "" {
		return "", nil
	}

	ivPart, dataPart, ok := strings.Cut(envelope, ":")
	if !ok {
		return "", ErrDecode
	}

	iv, err := base64.StdEncoding.DecodeString(ivPart)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrDecode
	}

	data, err := base64.StdEncoding.DecodeString(dataPart)
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", ErrDecode
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", ErrDecode
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, ErrDecode
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, ErrDecode
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrDecode
		}
	}
	return b[:len(b)-n], nil
}
