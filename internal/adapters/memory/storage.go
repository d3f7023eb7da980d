package memory

import (
	"context"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

type SubmissionStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewSubmissionStorage() *SubmissionStorage {
	return &SubmissionStorage{blobs: make(map[string][]byte)}
}

func (s *SubmissionStorage) Save(_ context.Context, fileName string, content io.Reader, maxBytes int64) (ports.StoredSubmission, error) {
	raw, err := io.ReadAll(io.LimitReader(content, maxBytes+1))
	if err != nil {
		return ports.StoredSubmission{}, fmt.Errorf("%w: read upload %s: %v", domain.ErrFileUnavailable, fileName, err)
	}
	if int64(len(raw)) > maxBytes {
		return ports.StoredSubmission{}, fmt.Errorf("%w: submission exceeds %d bytes", domain.ErrInvalidInput, maxBytes)
	}
	ref := uuid.NewString()
	s.mu.Lock()
	s.blobs[ref] = raw
	s.mu.Unlock()
	return ports.StoredSubmission{Ref: ref, SizeBytes: int64(len(raw))}, nil
}

func (s *SubmissionStorage) ReadText(_ context.Context, ref string, maxBytes int64) (string, error) {
	s.mu.Lock()
	raw, ok := s.blobs[ref]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: submission %s not found", domain.ErrFileUnavailable, ref)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: submission %s is not valid text", domain.ErrFileUnavailable, ref)
	}
	return string(truncateText(raw, maxBytes)), nil
}

func (s *SubmissionStorage) Discard(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref)
	return nil
}

// Len reports how many submissions are still held.
func (s *SubmissionStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

var _ ports.SubmissionStorage = (*SubmissionStorage)(nil)

// truncateText cuts raw to at most maxBytes without splitting a rune.
func truncateText(raw []byte, maxBytes int64) []byte {
	if maxBytes <= 0 || int64(len(raw)) <= maxBytes {
		return raw
	}
	cut := int(maxBytes)
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut]
}
