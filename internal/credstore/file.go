package credstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrWrongPassphrase is returned when the store file cannot be opened with
// the supplied passphrase.
var ErrWrongPassphrase = errors.New("credential store passphrase is wrong or file is corrupt")

const fileSaltSize = 16

// argon2id parameters for deriving the sealing key from the passphrase.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// FileStore seals the identity record to a single file on disk. The file
// holds a random argon2id salt, an XChaCha20-Poly1305 nonce, and the
// ciphertext of a JSON account map. Writes go through a temp file and
// rename so a crash never leaves a partial store.
type FileStore struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
}

// NewFileStore returns a store backed by the file at path, sealed with
// passphrase. The file is created on first Save.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("credstore: file path must be set")
	}
	if passphrase == "" {
		return nil, errors.New("credstore: passphrase must be set")
	}
	return &FileStore{path: path, passphrase: []byte(passphrase)}, nil
}

// Save writes value for account, replacing any previous value.
func (s *FileStore) Save(ctx context.Context, account, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return err
	}
	records[account] = value
	return s.write(records)
}

// Load returns the value for account, or ErrNotFound.
func (s *FileStore) Load(ctx context.Context, account string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return "", err
	}
	v, ok := records[account]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Delete removes the value for account.
func (s *FileStore) Delete(ctx context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := records[account]; !ok {
		return nil
	}
	delete(records, account)
	return s.write(records)
}

func (s *FileStore) read() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credstore: read %s: %w", s.path, err)
	}
	if len(raw) < fileSaltSize+chacha20poly1305.NonceSizeX {
		return nil, ErrWrongPassphrase
	}
	salt := raw[:fileSaltSize]
	nonce := raw[fileSaltSize : fileSaltSize+chacha20poly1305.NonceSizeX]
	ciphertext := raw[fileSaltSize+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(Namespace))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	records := map[string]string{}
	if err := json.Unmarshal(plaintext, &records); err != nil {
		return nil, ErrWrongPassphrase
	}
	return records, nil
}

func (s *FileStore) write(records map[string]string) error {
	plaintext, err := json.Marshal(records)
	if err != nil {
		return err
	}
	salt := make([]byte, fileSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}
	sealed := aead.Seal(nil, nonce, plaintext, []byte(Namespace))

	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credstore-*")
	if err != nil {
		return fmt.Errorf("credstore: write %s: %w", s.path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}

func (s *FileStore) deriveKey(salt []byte) []byte {
	return argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}
