package vault

import (
	"path/filepath"
	"testing"

	"ciphermesh/internal/domain"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	v := Open(filepath.Join(t.TempDir(), "state.vault"))

	state := domain.NewPersistedState()
	state.Identity.CurrentPublic[0] = 7
	state.LocalSessionID = "session-123"

	if err := v.Save(state, []byte("correct horse battery staple")); err != nil {
		t.Fatal(err)
	}

	loaded, ok, err := v.Load([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected successful load with the correct passphrase")
	}
	if loaded.LocalSessionID != "session-123" {
		t.Fatalf("got %q", loaded.LocalSessionID)
	}
	if loaded.Identity.CurrentPublic[0] != 7 {
		t.Fatal("identity field did not round-trip")
	}
}

func TestLoadWrongPassphraseFails(t *testing.T) {
	v := Open(filepath.Join(t.TempDir(), "state.vault"))
	state := domain.NewPersistedState()

	if err := v.Save(state, []byte("right")); err != nil {
		t.Fatal(err)
	}
	_, ok, err := v.Load([]byte("wrong"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected load with the wrong passphrase to fail")
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	v := Open(filepath.Join(t.TempDir(), "does-not-exist.vault"))
	_, ok, err := v.Load([]byte("anything"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected ok=false for a missing vault")
	}
}

func TestClearRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.vault")
	v := Open(path)
	state := domain.NewPersistedState()

	if err := v.Save(state, []byte("pass")); err != nil {
		t.Fatal(err)
	}
	if err := v.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := v.Load([]byte("pass")); err != nil || ok {
		t.Fatal("expected the vault to be gone after Clear")
	}
}
