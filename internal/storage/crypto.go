package storage

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Envelope formats, identified by their 8 byte magic prefix.
const (
	FormatGCM = "GCM3NCR0"
	FormatCBC = "3NCR0PTD"
)

const (
	saltSize         = 16
	gcmNonceSize     = 12
	gcmTagSize       = 16
	pbkdf2Iterations = 100000
)

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 32, sha256.New)
}

// Seal encrypts data with AES-256-GCM under a PBKDF2 key.
// Layout: magic(8) + salt(16) + nonce(12) + ciphertext + tag(16).
func Seal(data []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("seal: empty password")
	}
	salt := make([]byte, saltSize)
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(FormatGCM)+saltSize+gcmNonceSize+len(data)+gcmTagSize)
	out = append(out, FormatGCM...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

// Open decrypts data sealed in either envelope format. Data without a known
// magic prefix is returned unchanged with an empty format.
func Open(data []byte, password string) ([]byte, string, error) {
	if len(data) < 8 {
		return data, "", nil
	}
	switch string(data[:8]) {
	case FormatGCM:
		plain, err := openGCM(data, password)
		return plain, FormatGCM, err
	case FormatCBC:
		plain, err := openCBC(data, password)
		return plain, FormatCBC, err
	default:
		return data, "", nil
	}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func openGCM(data []byte, password string) ([]byte, error) {
	if len(data) < 8+saltSize+gcmNonceSize+gcmTagSize {
		return nil, fmt.Errorf("GCM data too short: %d bytes", len(data))
	}
	salt := data[8 : 8+saltSize]
	nonce := data[8+saltSize : 8+saltSize+gcmNonceSize]
	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, data[8+saltSize+gcmNonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("GCM decryption failed: %w", err)
	}
	return plain, nil
}

// openCBC reads the legacy layout:
// magic(8) + sha256(32) + length(8) + salt(16) + iv(16) + ciphertext.
func openCBC(data []byte, password string) ([]byte, error) {
	if len(data) < 8+32+8+saltSize+aes.BlockSize {
		return nil, fmt.Errorf("CBC data too short: %d bytes", len(data))
	}
	storedHash := data[8:40]
	length := binary.BigEndian.Uint64(data[40:48])
	body := data[48:]
	if uint64(len(body)) != length {
		return nil, fmt.Errorf("length mismatch: expected %d, got %d", length, len(body))
	}
	if sum := sha256.Sum256(body); !bytes.Equal(storedHash, sum[:]) {
		return nil, fmt.Errorf("hash verification failed")
	}

	salt := body[:saltSize]
	iv := body[saltSize : saltSize+aes.BlockSize]
	ciphertext := body[saltSize+aes.BlockSize:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext is not a multiple of block size")
	}
	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	return unpad(plain)
}

func unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding length: %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
