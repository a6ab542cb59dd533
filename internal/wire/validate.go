package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
)

// ValidationError is returned by Validate for any structurally invalid
// frame. Code is one of the `error` frame codes in spec.md §6.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func invalid(format string, args ...any) error {
	return &ValidationError{Code: ErrInvalidMessage, Message: fmt.Sprintf(format, args...)}
}

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,20}$`)

// Dispatch is the decision Validate reaches for an encrypted_message
// frame: which send path the session layer should use to open it.
type Dispatch int

const (
	DispatchNone Dispatch = iota
	DispatchRatchet
	DispatchDeniable
	DispatchStatic
)

// Validate parses raw as a generic envelope and checks the invariants
// common to every frame kind, then — for encrypted_message — the
// payload-shape invariants of spec.md §4.10. It never inspects whether a
// ciphertext actually decrypts; that is the session layer's job.
func Validate(raw []byte) (*Envelope, error) {
	if len(raw) > MaxFrameBytes {
		return nil, &ValidationError{Code: ErrPayloadTooLarge, Message: "frame exceeds 64 KiB"}
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, invalid("not a JSON object: %v", err)
	}

	versionVal, hasVersion := generic["version"]
	if !hasVersion {
		return nil, invalid("missing version")
	}
	versionNum, ok := versionVal.(float64)
	if !ok || versionNum != Version {
		return nil, invalid("unsupported version")
	}

	typeVal, hasType := generic["type"]
	if !hasType {
		return nil, invalid("missing type")
	}
	typeStr, ok := typeVal.(string)
	if !ok || typeStr == "" {
		return nil, invalid("type must be a non-empty string")
	}

	tsVal, hasTS := generic["timestamp"]
	if !hasTS {
		return nil, invalid("missing timestamp")
	}
	tsNum, ok := tsVal.(float64)
	if !ok || math.IsNaN(tsNum) || math.IsInf(tsNum, 0) {
		return nil, invalid("timestamp must be a finite number")
	}

	env := &Envelope{Type: typeStr, Version: int(versionNum), Timestamp: int64(tsNum)}

	if typeStr == KindJoin {
		if err := validateJoin(generic); err != nil {
			return env, err
		}
	}
	if typeStr == KindEncryptedMsg {
		if _, err := ValidateEncryptedMessage(raw); err != nil {
			return env, err
		}
	}

	return env, nil
}

func validateJoin(generic map[string]any) error {
	nick, ok := generic["nickname"].(string)
	if !ok || !nicknamePattern.MatchString(nick) {
		return invalid("nickname must match [A-Za-z0-9_-]{1,20}")
	}
	pub, ok := generic["publicKey"].(string)
	if !ok {
		return invalid("missing publicKey")
	}
	if !isBase64OfLen(pub, 32) {
		return invalid("publicKey must be base64 of 32 bytes")
	}
	return nil
}

// ValidateEncryptedMessage parses and validates an encrypted_message
// frame's required fields, returning the dispatch path its payload
// selects.
func ValidateEncryptedMessage(raw []byte) (Dispatch, error) {
	var msg EncryptedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return DispatchNone, invalid("malformed encrypted_message: %v", err)
	}
	if msg.From == "" {
		return DispatchNone, invalid("missing from")
	}
	if msg.To == "" {
		return DispatchNone, invalid("missing to")
	}
	if msg.Payload.Ciphertext == "" {
		return DispatchNone, invalid("missing payload.ciphertext")
	}
	if !isBase64(msg.Payload.Ciphertext) {
		return DispatchNone, invalid("payload.ciphertext must be base64")
	}
	if !isBase64OfLen(msg.Payload.Nonce, 24) {
		return DispatchNone, invalid("payload.nonce must be base64 of 24 bytes")
	}

	if msg.Payload.EphemeralPublicKey != "" {
		if !isBase64OfLen(msg.Payload.EphemeralPublicKey, 32) {
			return DispatchNone, invalid("payload.ephemeralPublicKey must be base64 of 32 bytes")
		}
		if msg.Payload.Counter == nil || *msg.Payload.Counter < 0 {
			return DispatchNone, invalid("payload.counter must be a non-negative integer")
		}
		if msg.Payload.PreviousCounter == nil || *msg.Payload.PreviousCounter < 0 {
			return DispatchNone, invalid("payload.previousCounter must be a non-negative integer")
		}
		return DispatchRatchet, nil
	}
	if msg.Payload.Deniable {
		return DispatchDeniable, nil
	}
	return DispatchStatic, nil
}

func isBase64(s string) bool {
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}

func isBase64OfLen(s string, n int) bool {
	b, err := base64.StdEncoding.DecodeString(s)
	return err == nil && len(b) == n
}
