package wire

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func b64(n int) string {
	return base64.StdEncoding.EncodeToString(make([]byte, n))
}

func TestValidateRejectsNonObject(t *testing.T) {
	if _, err := Validate([]byte(`"just a string"`)); err == nil {
		t.Fatal("expected rejection of a non-object frame")
	}
}

func TestValidateRejectsWrongVersion(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"type": "ping", "version": 2, "timestamp": 1})
	if _, err := Validate(raw); err == nil {
		t.Fatal("expected rejection of an unsupported version")
	}
}

func TestValidateRejectsMissingType(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"version": 1, "timestamp": 1})
	if _, err := Validate(raw); err == nil {
		t.Fatal("expected rejection of a frame with no type")
	}
}

func TestValidateAcceptsPing(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"type": "ping", "version": 1, "timestamp": 1})
	env, err := Validate(raw)
	if err != nil {
		t.Fatal(err)
	}
	if env.Type != "ping" {
		t.Fatalf("got %q", env.Type)
	}
}

func TestValidateJoinRequiresValidNickname(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"type": "join", "version": 1, "timestamp": 1,
		"nickname": "bad nickname!", "publicKey": b64(32),
	})
	if _, err := Validate(raw); err == nil {
		t.Fatal("expected rejection of an invalid nickname")
	}
}

func TestValidateJoinAccepted(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"type": "join", "version": 1, "timestamp": 1,
		"nickname": "alice_01", "publicKey": b64(32),
	})
	if _, err := Validate(raw); err != nil {
		t.Fatal(err)
	}
}

func TestValidateEncryptedMessageStaticDispatch(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"type": "encrypted_message", "version": 1, "timestamp": 1,
		"from": "a", "to": "b",
		"payload": map[string]any{"ciphertext": b64(10), "nonce": b64(24)},
	})
	dispatch, err := ValidateEncryptedMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if dispatch != DispatchStatic {
		t.Fatalf("expected static dispatch, got %v", dispatch)
	}
}

func TestValidateEncryptedMessageRatchetDispatch(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"type": "encrypted_message", "version": 1, "timestamp": 1,
		"from": "a", "to": "b",
		"payload": map[string]any{
			"ciphertext": b64(10), "nonce": b64(24),
			"ephemeralPublicKey": b64(32), "counter": 0, "previousCounter": 0,
		},
	})
	dispatch, err := ValidateEncryptedMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if dispatch != DispatchRatchet {
		t.Fatalf("expected ratchet dispatch, got %v", dispatch)
	}
}

func TestValidateEncryptedMessageDeniableDispatch(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"type": "encrypted_message", "version": 1, "timestamp": 1,
		"from": "a", "to": "b",
		"payload": map[string]any{"ciphertext": b64(10), "nonce": b64(24), "deniable": true},
	})
	dispatch, err := ValidateEncryptedMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if dispatch != DispatchDeniable {
		t.Fatalf("expected deniable dispatch, got %v", dispatch)
	}
}

func TestValidateEncryptedMessageRejectsBadNonceLength(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"type": "encrypted_message", "version": 1, "timestamp": 1,
		"from": "a", "to": "b",
		"payload": map[string]any{"ciphertext": b64(10), "nonce": b64(12)},
	})
	if _, err := ValidateEncryptedMessage(raw); err == nil {
		t.Fatal("expected rejection of a short nonce")
	}
}

func TestValidateRejectsOversizedFrame(t *testing.T) {
	huge := make([]byte, MaxFrameBytes+1)
	if _, err := Validate(huge); err == nil {
		t.Fatal("expected rejection of an oversized frame")
	}
}
