package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/crypto/scrypt"
)

// Secrets file configuration.
const (
	secretsFileName = "secrets.json.enc"
	saltSize        = 16
	nonceSize       = 12
	scryptN         = 32768 // 2^15
	scryptR         = 8
	scryptP         = 1
	keySize         = 32 // AES-256
	gcmTagSize      = 16
)

// Decrypted secrets held for the life of the process.
//
//nolint:gochecknoglobals // In-memory secret store shared by every command
var (
	decryptedSecrets    map[string]string
	decryptedSecretsMux sync.RWMutex
)

// SetDecryptedSecrets replaces the in-memory secrets.
func SetDecryptedSecrets(secrets map[string]string) {
	decryptedSecretsMux.Lock()
	defer decryptedSecretsMux.Unlock()
	decryptedSecrets = secrets
}

// GetSecret returns a decrypted secret, falling back to the environment
// variable of the same name.
func GetSecret(name string) (string, error) {
	decryptedSecretsMux.RLock()
	value := decryptedSecrets[name]
	decryptedSecretsMux.RUnlock()
	if value != "" {
		return value, nil
	}
	if value := os.Getenv(name); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret %s not found in secrets file or environment", name)
}

// GetDecryptedSecretNames returns the sorted secret names (not values).
func GetDecryptedSecretNames() []string {
	decryptedSecretsMux.RLock()
	defer decryptedSecretsMux.RUnlock()
	return slices.Sorted(maps.Keys(decryptedSecrets))
}

// SetSecret sets a secret value in memory.
func SetSecret(name, value string) {
	decryptedSecretsMux.Lock()
	defer decryptedSecretsMux.Unlock()
	if decryptedSecrets == nil {
		decryptedSecrets = make(map[string]string)
	}
	decryptedSecrets[name] = value
}

// DeleteSecret removes a secret from memory.
func DeleteSecret(name string) {
	decryptedSecretsMux.Lock()
	defer decryptedSecretsMux.Unlock()
	delete(decryptedSecrets, name)
}

// SaveSecretsToFile encrypts the in-memory secrets to the project's secrets file.
func SaveSecretsToFile(projectDir, password string) error {
	decryptedSecretsMux.RLock()
	snapshot := maps.Clone(decryptedSecrets)
	decryptedSecretsMux.RUnlock()
	if snapshot == nil {
		snapshot = map[string]string{}
	}
	return EncryptSecretsFile(projectDir, password, snapshot)
}

// SecretsFilePath returns the location of the encrypted secrets file.
func SecretsFilePath(projectDir string) string {
	return filepath.Join(projectDir, ProjectConfigDir, secretsFileName)
}

// SecretsFileExists checks if secrets.json.enc exists in project directory.
func SecretsFileExists(projectDir string) bool {
	path := SecretsFilePath(projectDir)
	_, err := os.Stat(path)
	return err == nil
}

// EncryptSecretsFile writes secrets to .debatearena/secrets.json.enc with mode 0600.
// The file is [salt][nonce][AES-256-GCM ciphertext] with an scrypt-derived key.
func EncryptSecretsFile(projectDir, password string, secrets map[string]string) error {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	salt, err := randomBytes(saltSize)
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce, err := randomBytes(nonceSize)
	if err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return err
	}

	fileData := make([]byte, 0, saltSize+nonceSize+len(plaintext)+gcm.Overhead())
	fileData = append(fileData, salt...)
	fileData = append(fileData, nonce...)
	fileData = gcm.Seal(fileData, nonce, plaintext, nil)

	path := SecretsFilePath(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", ProjectConfigDir, err)
	}
	if err := os.WriteFile(path, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

// DecryptSecretsFile reads and decrypts .debatearena/secrets.json.enc. A file
// with looser permissions than 0600 is tightened first.
func DecryptSecretsFile(projectDir, password string) (map[string]string, error) {
	path := SecretsFilePath(projectDir)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets file: %w", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		getLogger().Warn("Secrets file has permissions %04o, resetting to 0600", perm)
		if err := os.Chmod(path, 0600); err != nil {
			return nil, fmt.Errorf("failed to fix file permissions: %w", err)
		}
	}

	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}
	if len(fileData) < saltSize+nonceSize+gcmTagSize {
		return nil, fmt.Errorf("secrets file is corrupted or invalid format (too small)")
	}

	salt := fileData[:saltSize]
	nonce := fileData[saltSize : saltSize+nonceSize]
	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, fileData[saltSize+nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong password or corrupted file)")
	}

	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secrets: %w", err)
	}
	return secrets, nil
}

// newGCM derives the file key from password and salt. Key material is
// zeroed once the cipher has been built.
func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	passwordBytes := []byte(password)
	defer clear(passwordBytes)

	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

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

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err //nolint:wrapcheck // Callers add context
	}
	return b, nil
}
