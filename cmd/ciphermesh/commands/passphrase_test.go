package commands

import "testing"

func TestRequireNickname(t *testing.T) {
	old := nickname
	defer func() { nickname = old }()

	nickname = ""
	if err := requireNickname(); err == nil {
		t.Fatal("requireNickname() should fail when --nickname is unset")
	}

	nickname = "alice"
	if err := requireNickname(); err != nil {
		t.Fatalf("requireNickname() = %v, want nil", err)
	}
}

func TestReadPassphrase_UsesFlagWhenSet(t *testing.T) {
	old := passphraseFlag
	defer func() { passphraseFlag = old }()

	passphraseFlag = "correct horse battery staple"
	pw, err := readPassphrase()
	if err != nil {
		t.Fatalf("readPassphrase: %v", err)
	}
	if string(pw) != passphraseFlag {
		t.Errorf("readPassphrase() = %q, want %q", pw, passphraseFlag)
	}
}
