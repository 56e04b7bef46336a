package filecrypt

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testBox(t *testing.T) *Box {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	b, err := New(key)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b
}

func TestSealOpenRoundTrip(t *testing.T) {
	b := testBox(t)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"small", []byte("discharge summary")},
		{"binary", bytes.Repeat([]byte{0x00, 0xff, 0x42}, 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := b.Seal(tt.data)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			opened, err := b.Open(sealed)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if !bytes.Equal(opened, tt.data) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(opened), len(tt.data))
			}
		})
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	b := testBox(t)

	sealed, err := b.Seal([]byte("lab report"))
	if err != nil {
		t.Fatal(err)
	}
	sealed[len(sealed)-1] ^= 0x01

	if _, err := b.Open(sealed); err == nil {
		t.Error("Open() accepted tampered ciphertext")
	}
}

func TestOpenRejectsShortCiphertext(t *testing.T) {
	b := testBox(t)
	if _, err := b.Open([]byte{1, 2, 3}); err != ErrCiphertextTooShort {
		t.Errorf("Open() error = %v, want ErrCiphertextTooShort", err)
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	if _, err := New(make([]byte, 16)); err != ErrInvalidKey {
		t.Errorf("New(16 bytes) error = %v, want ErrInvalidKey", err)
	}
	if _, err := NewFromHex("not-hex"); err == nil {
		t.Error("NewFromHex(garbage) should fail")
	}
}

func TestEncryptFile(t *testing.T) {
	b := testBox(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "scan.pdf")
	content := []byte("%PDF-1.4 fake content")
	if err := os.WriteFile(src, content, 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := b.EncryptFile(src)
	if err != nil {
		t.Fatalf("EncryptFile() error = %v", err)
	}
	if !strings.HasSuffix(out, EncSuffix) {
		t.Errorf("sidecar %q missing %s suffix", out, EncSuffix)
	}

	sealed, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	opened, err := b.Open(sealed)
	if err != nil {
		t.Fatalf("Open(sidecar) error = %v", err)
	}
	if !bytes.Equal(opened, content) {
		t.Error("sidecar does not decrypt to original content")
	}
}
