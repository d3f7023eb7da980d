package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

func TestSubmissionStorageLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSubmissionStorage()
	stored, err := store.Save(ctx, "index.html", strings.NewReader("<html></html>"), 1024)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if stored.SizeBytes != 13 || stored.Ref == "" {
		t.Fatalf("unexpected stored submission %+v", stored)
	}
	text, err := store.ReadText(ctx, stored.Ref, 0)
	if err != nil || text != "<html></html>" {
		t.Fatalf("read text: %q %v", text, err)
	}
	if err := store.Discard(ctx, stored.Ref); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected storage to be empty")
	}
	if _, err := store.ReadText(ctx, stored.Ref, 0); !errors.Is(err, domain.ErrFileUnavailable) {
		t.Fatalf("expected ErrFileUnavailable after discard, got %v", err)
	}
}

func TestSubmissionStorageRejectsOversize(t *testing.T) {
	t.Parallel()

	store := NewSubmissionStorage()
	if _, err := store.Save(context.Background(), "big.txt", strings.NewReader(strings.Repeat("x", 11)), 10); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("oversize upload must not be kept")
	}
}

func TestSubmissionStorageRejectsBinary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSubmissionStorage()
	stored, err := store.Save(ctx, "data.json", strings.NewReader("\xff\xfe\x00"), 1024)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.ReadText(ctx, stored.Ref, 0); !errors.Is(err, domain.ErrFileUnavailable) {
		t.Fatalf("expected ErrFileUnavailable, got %v", err)
	}
}

func TestTruncateTextKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	raw := []byte("abécd")
	got := truncateText(raw, 3)
	if string(got) != "ab" {
		t.Fatalf("expected cut before the two-byte rune, got %q", got)
	}
	if string(truncateText(raw, 100)) != string(raw) {
		t.Fatalf("short input must be returned whole")
	}
}
