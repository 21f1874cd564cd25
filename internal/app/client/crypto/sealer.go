package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var ErrDecrypt = errors.New("ошибка расшифровки")

// Sealer шифрует небольшие файлы клиента ключом, выведенным из ключа устройства под конкретное назначение
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer выводит ключ AES-256-GCM для purpose из ключа устройства
func NewSealer(deviceKey []byte, purpose string) (*Sealer, error) {
	if len(deviceKey) != keyLength {
		return nil, ErrInvalidKey
	}

	key := make([]byte, keyLength)
	defer ClearMemory(key)
	if _, err := io.ReadFull(hkdf.New(sha256.New, deviceKey, nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("ошибка вывода ключа: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}
	return &Sealer{aead: gcm}, nil
}

// Seal шифрует данные, nonce идет префиксом
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("ошибка генерации nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) Open(ciphertext []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, fmt.Errorf("%w: шифротекст слишком короткий", ErrDecrypt)
	}
	plaintext, err := s.aead.Open(nil, ciphertext[:n], ciphertext[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}
