package crypto

import "testing"

func TestIdentityRotatePreservesPrevious(t *testing.T) {
	id, err := NewIdentity()
	if err != nil {
		t.Fatal(err)
	}
	oldPub := id.Public()

	if err := id.Rotate(); err != nil {
		t.Fatal(err)
	}
	newPub := id.Public()
	if newPub == oldPub {
		t.Fatal("expected a new public key after rotation")
	}

	_, prevPub, ok := id.Previous()
	if !ok {
		t.Fatal("expected previous keypair to be available within the grace window")
	}
	if prevPub != oldPub {
		t.Fatal("expected previous public key to be the pre-rotation key")
	}
}

func TestIdentityRotateWipesOlderPrevious(t *testing.T) {
	id, err := NewIdentity()
	if err != nil {
		t.Fatal(err)
	}
	if err := id.Rotate(); err != nil {
		t.Fatal(err)
	}
	firstPrevPub := id.Public()

	if err := id.Rotate(); err != nil {
		t.Fatal(err)
	}
	_, prevPub, ok := id.Previous()
	if !ok {
		t.Fatal("expected a previous keypair after second rotation")
	}
	if prevPub != firstPrevPub {
		t.Fatal("expected previous to be the most recently superseded key, not an older one")
	}
}

func TestIdentityFingerprintMatchesPublic(t *testing.T) {
	id, err := NewIdentity()
	if err != nil {
		t.Fatal(err)
	}
	pub := id.Public()
	if id.Fingerprint() != Fingerprint(pub[:]) {
		t.Fatal("expected Fingerprint() to match Fingerprint(Public())")
	}
}
