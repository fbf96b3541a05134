package seal

import (
	"bytes"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	s := New("passphrase-a")
	sealed, err := s.Seal([]byte("hello cluster"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("hello")) {
		t.Fatalf("ciphertext leaks plaintext")
	}
	opened, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(opened) != "hello cluster" {
		t.Fatalf("round trip mismatch: %q", opened)
	}
}

func TestOpenRejectsTamperAndWrongKey(t *testing.T) {
	s := New("passphrase-a")
	sealed, err := s.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	sealed[len(sealed)-1] ^= 0xff
	if _, err := s.Open(sealed); err != ErrOpen {
		t.Fatalf("expected ErrOpen for tampered data, got %v", err)
	}

	sealed[len(sealed)-1] ^= 0xff
	other := New("passphrase-b")
	if _, err := other.Open(sealed); err != ErrOpen {
		t.Fatalf("expected ErrOpen for wrong key, got %v", err)
	}

	if _, err := s.Open([]byte("short")); err != ErrOpen {
		t.Fatalf("expected ErrOpen for truncated data, got %v", err)
	}
}

func TestSealStringRoundTrip(t *testing.T) {
	s := New("card-fields")
	sealed, err := s.SealString("4111111111111111")
	if err != nil {
		t.Fatalf("SealString: %v", err)
	}
	got, err := s.OpenString(sealed)
	if err != nil {
		t.Fatalf("OpenString: %v", err)
	}
	if got != "4111111111111111" {
		t.Fatalf("round trip mismatch: %q", got)
	}
}
