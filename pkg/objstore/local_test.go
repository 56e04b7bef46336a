package objstore

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	return s
}

func TestLocalPutGetHead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	content := []byte("encrypted bytes")
	key := "drafts/Acme/A001_deadbeef.pdf.enc"

	if err := s.Put(ctx, key, bytes.NewReader(content), int64(len(content)), "application/octet-stream"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.GetBytes(ctx, key)
	if err != nil {
		t.Fatalf("GetBytes() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("GetBytes() returned different content")
	}

	info, err := s.Head(ctx, key)
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if info.Size != int64(len(content)) {
		t.Errorf("Head().Size = %d, want %d", info.Size, len(content))
	}
	if info.IsCold {
		t.Error("local objects must never be cold")
	}
	if info.RestoreState != RestoreNone {
		t.Errorf("RestoreState = %q, want none", info.RestoreState)
	}
}

func TestLocalCopyThenDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	src := "drafts/Acme/A001_deadbeef.pdf.enc"
	dst := "Acme/2025/03/A001_deadbeef.enc"
	content := []byte("payload")

	if err := s.Put(ctx, src, bytes.NewReader(content), int64(len(content)), ""); err != nil {
		t.Fatal(err)
	}
	if err := s.Copy(ctx, src, dst); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	got, err := s.GetBytes(ctx, dst)
	if err != nil {
		t.Fatalf("GetBytes(dst) error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("copied object differs from source")
	}

	if err := s.Delete(ctx, src); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.GetBytes(ctx, src); !IsNotFound(err) {
		t.Errorf("GetBytes(deleted) error = %v, want not found", err)
	}
}

func TestLocalDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Delete(ctx, "missing/key.enc"); err != nil {
		t.Errorf("Delete(missing) error = %v, want nil", err)
	}
	if err := s.Delete(ctx, "missing/key.enc"); err != nil {
		t.Errorf("second Delete(missing) error = %v, want nil", err)
	}
}

func TestLocalHeadMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Head(context.Background(), "nope.enc"); !IsNotFound(err) {
		t.Errorf("Head(missing) error = %v, want not found", err)
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Put(ctx, "../outside.enc", strings.NewReader("x"), 1, "")
	if err == nil {
		t.Error("Put with escaping key should fail")
	}
}
