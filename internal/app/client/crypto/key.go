package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	keyLength      = 32 // AES-256
	keyPermissions = 0600
)

var ErrInvalidKey = errors.New("invalid device key")

// LoadOrCreateKey читает ключ устройства из файла, при отсутствии файла создает новый
func LoadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		key, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil || len(key) != keyLength {
			return nil, fmt.Errorf("%w: %s", ErrInvalidKey, path)
		}
		return key, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("ошибка чтения ключа: %w", err)
	}

	key, err := GenerateRandomBytes(keyLength)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("ошибка создания директории ключа: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), keyPermissions); err != nil {
		return nil, fmt.Errorf("ошибка записи ключа: %w", err)
	}
	return key, nil
}

// GenerateRandomBytes генерирует криптографически безопасные случайные байты
func GenerateRandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// ClearMemory затирает чувствительные данные
func ClearMemory(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
