package client

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSessionStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileSessionStore(path)

	if err := store.SetItem("token", "abc"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := store.SetItem("user", `{"id":1}`); err != nil {
		t.Fatalf("set user: %v", err)
	}

	v, ok, err := store.GetItem("token")
	if err != nil || !ok || v != "abc" {
		t.Fatalf("get token = %q ok=%v err=%v", v, ok, err)
	}
	v, ok, err = store.GetItem("user")
	if err != nil || !ok || v != `{"id":1}` {
		t.Fatalf("get user = %q ok=%v err=%v", v, ok, err)
	}

	// Values survive a new store instance reading the same file.
	again := NewFileSessionStore(path)
	v, ok, err = again.GetItem("token")
	if err != nil || !ok || v != "abc" {
		t.Fatalf("reload token = %q ok=%v err=%v", v, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("session file mode = %v", info.Mode().Perm())
	}
}

func TestFileSessionStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileSessionStore(path)

	if err := store.SetItem("token", "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, err := store.GetItem("token"); err != nil || ok {
		t.Fatalf("token should be gone, ok=%v err=%v", ok, err)
	}

	// Clearing a missing file is not an error.
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestFileSessionStoreCorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	store := NewFileSessionStore(path)
	if _, ok, err := store.GetItem("token"); err != nil || ok {
		t.Fatalf("corrupt file should read as empty, ok=%v err=%v", ok, err)
	}
	if err := store.SetItem("token", "abc"); err != nil {
		t.Fatalf("set over corrupt file: %v", err)
	}
	if v, ok, _ := store.GetItem("token"); !ok || v != "abc" {
		t.Fatalf("token = %q ok=%v", v, ok)
	}
}
