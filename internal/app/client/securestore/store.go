package securestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"memorizefacts/internal/app/client/crypto"
	"memorizefacts/internal/domain/replication"
)

const (
	FileName    = "sync.json"
	keyFileName = ".device.key"
	purpose     = "memorize-sync-config"
)

// Store хранит сигнал включения синхронизации и учетные данные в зашифрованном файле
type Store struct {
	path   string
	sealer *crypto.Sealer
	mu     sync.Mutex
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	key, err := crypto.LoadOrCreateKey(filepath.Join(dir, keyFileName))
	if err != nil {
		return nil, err
	}
	defer crypto.ClearMemory(key)

	sealer, err := crypto.NewSealer(key, purpose)
	if err != nil {
		return nil, err
	}
	return &Store{path: filepath.Join(dir, FileName), sealer: sealer}, nil
}

// Path путь к файлу сигнала
func (s *Store) Path() string {
	return s.path
}

// Load читает текущий сигнал. Отсутствие файла означает выключенную синхронизацию.
func (s *Store) Load() (replication.SyncConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (replication.SyncConfig, error) {
	sealed, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return replication.SyncConfig{}, nil
	}
	if err != nil {
		return replication.SyncConfig{}, fmt.Errorf("read sync config: %w", err)
	}

	data, err := s.sealer.Open(sealed)
	if err != nil {
		return replication.SyncConfig{}, fmt.Errorf("open sync config: %w", err)
	}
	defer crypto.ClearMemory(data)

	var sc replication.SyncConfig
	if err := json.Unmarshal(data, &sc); err != nil {
		return replication.SyncConfig{}, fmt.Errorf("decode sync config: %w", err)
	}
	return sc, nil
}

// Save атомарно заменяет файл сигнала
func (s *Store) Save(sc replication.SyncConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(sc)
}

func (s *Store) save(sc replication.SyncConfig) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode sync config: %w", err)
	}
	defer crypto.ClearMemory(data)

	sealed, err := s.sealer.Seal(data)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), FileName+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return fmt.Errorf("write sync config: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod sync config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close sync config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace sync config: %w", err)
	}
	return nil
}

// Enable включает синхронизацию с новыми учетными данными
func (s *Store) Enable(creds replication.Credentials) error {
	sc := replication.SyncConfig{Enabled: true, Credentials: &creds}
	if err := sc.Validate(); err != nil {
		return err
	}
	return s.Save(sc)
}

// Disable выключает синхронизацию. Учетные данные стираются только при forget.
func (s *Store) Disable(forget bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := s.load()
	if err != nil {
		// Нечитаемый файл при выключении просто перезаписывается
		sc = replication.SyncConfig{}
	}
	sc.Enabled = false
	if forget {
		sc.Credentials = nil
	}
	return s.save(sc)
}
