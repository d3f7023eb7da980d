package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

func TestFilesystemStorageLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFilesystemStorage(dir)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	stored, err := store.Save(ctx, "index.html", strings.NewReader("<!doctype html>"), 1024)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if stored.SizeBytes != 15 {
		t.Fatalf("expected 15 bytes, got %d", stored.SizeBytes)
	}
	if _, err := os.Stat(filepath.Join(dir, stored.Ref)); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
	text, err := store.ReadText(ctx, stored.Ref, 0)
	if err != nil || text != "<!doctype html>" {
		t.Fatalf("read text: %q %v", text, err)
	}
	if err := store.Discard(ctx, stored.Ref); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if err := store.Discard(ctx, stored.Ref); err != nil {
		t.Fatalf("second discard must be a no-op: %v", err)
	}
	if _, err := store.ReadText(ctx, stored.Ref, 0); !errors.Is(err, domain.ErrFileUnavailable) {
		t.Fatalf("expected ErrFileUnavailable, got %v", err)
	}
}

func TestFilesystemStorageRejectsOversize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFilesystemStorage(dir)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	if _, err := store.Save(context.Background(), "big.txt", strings.NewReader(strings.Repeat("a", 65)), 64); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("oversize upload left %d files behind", len(entries))
	}
}

func TestFilesystemStorageTruncatesText(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := NewFilesystemStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	stored, err := store.Save(ctx, "notes.txt", strings.NewReader("abécdef"), 1024)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	text, err := store.ReadText(ctx, stored.Ref, 3)
	if err != nil || text != "ab" {
		t.Fatalf("expected rune-safe truncation, got %q %v", text, err)
	}
}

func TestFilesystemStorageRejectsForeignRefs(t *testing.T) {
	t.Parallel()

	store, err := NewFilesystemStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	if _, err := store.ReadText(context.Background(), "../../etc/passwd", 0); !errors.Is(err, domain.ErrFileUnavailable) {
		t.Fatalf("expected ErrFileUnavailable, got %v", err)
	}
}

func TestFilesystemStorageHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	store, err := NewFilesystemStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	stored, err := store.Save(ctx, "a.txt", strings.NewReader("hello"), 1024)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	cancel()
	if _, err := store.ReadText(ctx, stored.Ref, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
