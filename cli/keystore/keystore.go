// Package keystore provides encrypted local storage for API keys.
package keystore

import (
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// EnvPassphrase names the variable holding an explicit keystore passphrase.
// When unset the master key is derived from the host and user.
const EnvPassphrase = "TRIPO_KEYSTORE_PASSPHRASE"

// Keystore defines the interface for secure key storage.
type Keystore interface {
	// Set stores a key-value pair.
	Set(name, value string) error
	// Get retrieves a value by name. Returns *ErrKeyNotFound if absent.
	Get(name string) (string, error)
	// Delete removes a key by name.
	Delete(name string) error
	// List returns all stored key names, sorted.
	List() ([]string, error)
}

// ErrKeyNotFound is returned when a requested key does not exist.
type ErrKeyNotFound struct {
	Name string
}

func (e *ErrKeyNotFound) Error() string {
	return "key not found: " + e.Name
}

// ErrDecrypt is returned when the keystore file cannot be opened with the
// current master key, or is corrupt.
var ErrDecrypt = errors.New("keystore: unable to decrypt (wrong passphrase or corrupt file)")

// MasterKeySource supplies the secret the file encryption key is derived from.
type MasterKeySource interface {
	MasterKey() ([]byte, error)
}

// PassphraseSource uses a fixed passphrase.
type PassphraseSource string

// MasterKey implements MasterKeySource.
func (p PassphraseSource) MasterKey() ([]byte, error) {
	if p == "" {
		return nil, errors.New("keystore: empty passphrase")
	}
	return []byte(p), nil
}

// MachineSource derives a master key from the hostname and user name. It
// keeps keys off disk in plaintext but offers no protection against another
// process running as the same user on the same host.
type MachineSource struct{}

// MasterKey implements MasterKeySource.
func (MachineSource) MasterKey() ([]byte, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	sum := sha256.Sum256([]byte(hostname + ":" + username + ":tripo-keystore"))
	return sum[:], nil
}

// DefaultSource returns PassphraseSource from EnvPassphrase when set, else
// MachineSource.
func DefaultSource() MasterKeySource {
	if p := os.Getenv(EnvPassphrase); p != "" {
		return PassphraseSource(p)
	}
	return MachineSource{}
}

// DefaultKeystorePath returns the default keystore file path.
// - macOS/Linux: ~/.tripo/keys.enc
// - Windows: %USERPROFILE%\.tripo\keys.enc
func DefaultKeystorePath() string {
	var homeDir string
	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}
	if homeDir == "" {
		return "keys.enc"
	}
	return filepath.Join(homeDir, ".tripo", "keys.enc")
}

// NewKeystore opens the default keystore with the default master key source.
func NewKeystore() (Keystore, error) {
	return NewFileKeystore(DefaultKeystorePath(), DefaultSource())
}
