package credstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Load(ctx, AccountCurrentUser); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load on empty store err = %v, want ErrNotFound", err)
	}

	if err := s.Save(ctx, AccountCurrentUser, "U1"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	v, err := s.Load(ctx, AccountCurrentUser)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != "U1" {
		t.Errorf("Load = %q, want %q", v, "U1")
	}

	// Last write wins.
	if err := s.Save(ctx, AccountCurrentUser, "U2"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	v, _ = s.Load(ctx, AccountCurrentUser)
	if v != "U2" {
		t.Errorf("Load after overwrite = %q, want %q", v, "U2")
	}

	if err := s.Delete(ctx, AccountCurrentUser); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, AccountCurrentUser); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after delete err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, AccountCurrentUser); err != nil {
		t.Errorf("Delete of missing account err = %v, want nil", err)
	}
}
