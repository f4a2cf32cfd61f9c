package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

const (
	serviceName  = "roadmap"
	masterKeyID  = "master-key"
	masterKeyEnv = "ROADMAP_MASTER_KEY"
)

// openKeyring returns a configured keyring instance. fileDir backs the
// file-based fallback on systems without a native secret service.
func openKeyring(fileDir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("roadmap-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// LoadMasterKey returns the 32-byte master key used to encrypt datasource
// credentials. Resolution order: the ROADMAP_MASTER_KEY environment
// variable (base64), then the OS keyring. On first use a fresh random key
// is generated and stored in the keyring.
func LoadMasterKey(fileDir string) ([]byte, error) {
	if env := os.Getenv(masterKeyEnv); env != "" {
		key, err := base64.StdEncoding.DecodeString(env)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", masterKeyEnv, err)
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("%s must decode to %d bytes, got %d", masterKeyEnv, KeySize, len(key))
		}
		return key, nil
	}

	ring, err := openKeyring(fileDir)
	if err != nil {
		return nil, err
	}

	item, err := ring.Get(masterKeyID)
	if err == nil {
		key, decodeErr := base64.StdEncoding.DecodeString(string(item.Data))
		if decodeErr != nil {
			return nil, fmt.Errorf("decoding stored master key: %w", decodeErr)
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("stored master key has %d bytes, want %d", len(key), KeySize)
		}
		return key, nil
	}
	if !errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, fmt.Errorf("reading master key: %w", err)
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating master key: %w", err)
	}

	err = ring.Set(keyring.Item{
		Key:  masterKeyID,
		Data: []byte(base64.StdEncoding.EncodeToString(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("storing master key: %w", err)
	}

	return key, nil
}
