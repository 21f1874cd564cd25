package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device.key")

	key, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Len(t, key, keyLength)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(keyPermissions), info.Mode().Perm())

	again, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Equal(t, key, again)
}

func TestLoadOrCreateKey_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.key")
	require.NoError(t, os.WriteFile(path, []byte("not hex"), 0600))

	_, err := LoadOrCreateKey(path)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSealer(t *testing.T) {
	key, err := GenerateRandomBytes(keyLength)
	require.NoError(t, err)

	s, err := NewSealer(key, "sync-config")
	require.NoError(t, err)

	plaintext := []byte(`{"enabled":true}`)
	sealed, err := s.Seal(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "enabled")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)

	// Nonce случайный: одинаковые данные шифруются по-разному
	other, err := s.Seal(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, other)
}

func TestSealer_Separation(t *testing.T) {
	key, err := GenerateRandomBytes(keyLength)
	require.NoError(t, err)

	a, err := NewSealer(key, "sync-config")
	require.NoError(t, err)
	b, err := NewSealer(key, "something-else")
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = a.Open(sealed[:4])
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = NewSealer([]byte("short"), "sync-config")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
