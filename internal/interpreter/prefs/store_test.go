package prefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "prefs.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GetSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Errorf("Get(k) = %q, %v, %v", v, ok, err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("key should be gone after Delete")
	}
}

func TestStore_Devices(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d, err := s.Devices(ctx)
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if !d.Input.IsDefault() || !d.Output.IsDefault() {
		t.Errorf("empty store should yield default devices, got %+v", d)
	}

	if err := s.SaveDevices(ctx, "USB Mic", "Headphones"); err != nil {
		t.Fatalf("SaveDevices() error = %v", err)
	}
	d, err = s.Devices(ctx)
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if d.Input != "USB Mic" || d.Output != "Headphones" {
		t.Errorf("Devices() = %+v", d)
	}
	if d.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}

	if err := s.SaveDevices(ctx, interpreter.DefaultDevice, "Speakers"); err != nil {
		t.Fatalf("SaveDevices() error = %v", err)
	}
	d, _ = s.Devices(ctx)
	if !d.Input.IsDefault() || d.Output != "Speakers" {
		t.Errorf("Devices() after update = %+v", d)
	}
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	ctx := context.Background()

	s, err := Open(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	s.SaveDevices(ctx, "mic", "out")
	s.Close()

	s, err = Open(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	d, _ := s.Devices(ctx)
	if d.Input != "mic" || d.Output != "out" {
		t.Errorf("Devices() after reopen = %+v", d)
	}
}
