package credstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.bin")

	s, err := NewFileStore(path, "correct horse battery staple")
	require.NoError(t, err)

	_, err = s.Load(ctx, AccountCurrentUser)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, AccountCurrentUser, "U1"))

	// A fresh store instance must read back what the first one wrote.
	s2, err := NewFileStore(path, "correct horse battery staple")
	require.NoError(t, err)
	v, err := s2.Load(ctx, AccountCurrentUser)
	require.NoError(t, err)
	require.Equal(t, "U1", v)

	require.NoError(t, s2.Delete(ctx, AccountCurrentUser))
	_, err = s2.Load(ctx, AccountCurrentUser)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.bin")

	s, err := NewFileStore(path, "passphrase-one")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, AccountCurrentUser, "U1"))

	other, err := NewFileStore(path, "passphrase-two")
	require.NoError(t, err)
	_, err = other.Load(ctx, AccountCurrentUser)
	require.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestFileStore_CiphertextOnDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.bin")

	s, err := NewFileStore(path, "passphrase")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, AccountCurrentUser, "plain-user-identifier"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "plain-user-identifier")
}

func TestNewFileStore_RequiresPathAndPassphrase(t *testing.T) {
	_, err := NewFileStore("", "p")
	require.Error(t, err)
	_, err = NewFileStore("/tmp/x", "")
	require.Error(t, err)
}
