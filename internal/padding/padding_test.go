package padding

import (
	"bytes"
	"testing"
)

func TestPadUnpadRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("hi"),
		bytes.Repeat([]byte("a"), 30),
		bytes.Repeat([]byte("b"), 4090),
	}
	for _, pt := range cases {
		padded, err := Pad(pt)
		if err != nil {
			t.Fatalf("Pad(%d bytes): %v", len(pt), err)
		}
		got, ok := Unpad(padded)
		if !ok {
			t.Fatalf("Unpad rejected a valid padded buffer (plaintext len %d)", len(pt))
		}
		if !bytes.Equal(got, pt) {
			t.Fatalf("round trip mismatch: got %q want %q", got, pt)
		}
	}
}

func TestPadRoundsToBucket(t *testing.T) {
	padded, err := Pad([]byte("short"))
	if err != nil {
		t.Fatal(err)
	}
	if len(padded) != 128 {
		t.Fatalf("expected smallest bucket 128, got %d", len(padded))
	}
}

func TestPadOverflowSendsUnpadded(t *testing.T) {
	pt := bytes.Repeat([]byte("z"), 40000)
	padded, err := Pad(pt)
	if err != nil {
		t.Fatal(err)
	}
	if len(padded) != headerLen+len(pt) {
		t.Fatalf("expected unpadded frame of %d bytes, got %d", headerLen+len(pt), len(padded))
	}
	got, ok := Unpad(padded)
	if !ok || !bytes.Equal(got, pt) {
		t.Fatalf("round trip failed for overflow-sized plaintext")
	}
}

func TestPadAcceptsMaxLength(t *testing.T) {
	pt := bytes.Repeat([]byte("m"), 65535)
	padded, err := Pad(pt)
	if err != nil {
		t.Fatalf("Pad(65535 bytes): %v", err)
	}
	got, ok := Unpad(padded)
	if !ok || !bytes.Equal(got, pt) {
		t.Fatalf("round trip failed for max-length plaintext")
	}
}

func TestPadRejectsOverLengthPlaintext(t *testing.T) {
	pt := bytes.Repeat([]byte("x"), 65536)
	if _, err := Pad(pt); err == nil {
		t.Fatal("expected rejection of a plaintext exceeding the 16-bit length header")
	}
}

func TestUnpadRejectsShortBuffer(t *testing.T) {
	if _, ok := Unpad([]byte{0x01}); ok {
		t.Fatal("expected rejection of a 1-byte buffer")
	}
}

func TestUnpadRejectsOverrunLength(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0x00}
	if _, ok := Unpad(buf); ok {
		t.Fatal("expected rejection of a length that overruns the buffer")
	}
}

func TestSecureUnpadWipesInput(t *testing.T) {
	padded, err := Pad([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	cp := append([]byte(nil), padded...)

	pt, ok := SecureUnpad(padded)
	if !ok {
		t.Fatal("expected successful unpad")
	}
	if !bytes.Equal(pt, []byte("secret")) {
		t.Fatalf("got %q want %q", pt, "secret")
	}
	if bytes.Equal(padded, cp) {
		t.Fatal("expected input buffer to be wiped after SecureUnpad")
	}
}
