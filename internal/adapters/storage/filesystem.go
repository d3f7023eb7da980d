package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

// FilesystemStorage keeps each upload as a single file named by its ref under dir.
type FilesystemStorage struct {
	dir string
}

func NewFilesystemStorage(dir string) (*FilesystemStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "m15-submissions")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create submission dir: %w", err)
	}
	return &FilesystemStorage{dir: dir}, nil
}

func (s *FilesystemStorage) Save(ctx context.Context, fileName string, content io.Reader, maxBytes int64) (ports.StoredSubmission, error) {
	ref := uuid.NewString()
	f, err := os.OpenFile(s.path(ref), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return ports.StoredSubmission{}, fmt.Errorf("%w: create %s: %v", domain.ErrDependencyUnavailable, fileName, err)
	}
	written, copyErr := io.Copy(f, io.LimitReader(contextReader{ctx: ctx, r: content}, maxBytes+1))
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(s.path(ref))
		return ports.StoredSubmission{}, fmt.Errorf("%w: store %s: %v", domain.ErrFileUnavailable, fileName, copyErr)
	}
	if written > maxBytes {
		_ = os.Remove(s.path(ref))
		return ports.StoredSubmission{}, fmt.Errorf("%w: submission exceeds %d bytes", domain.ErrInvalidInput, maxBytes)
	}
	return ports.StoredSubmission{Ref: ref, SizeBytes: written}, nil
}

func (s *FilesystemStorage) ReadText(ctx context.Context, ref string, maxBytes int64) (string, error) {
	if _, err := uuid.Parse(ref); err != nil {
		return "", fmt.Errorf("%w: invalid submission ref", domain.ErrFileUnavailable)
	}
	f, err := os.Open(s.path(ref))
	if err != nil {
		return "", fmt.Errorf("%w: open submission: %v", domain.ErrFileUnavailable, err)
	}
	defer f.Close()

	var reader io.Reader = contextReader{ctx: ctx, r: f}
	if maxBytes > 0 {
		reader = io.LimitReader(reader, maxBytes+utf8.UTFMax)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: read submission: %v", domain.ErrFileUnavailable, err)
	}
	if maxBytes > 0 && int64(len(raw)) > maxBytes {
		cut := int(maxBytes)
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut]
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: submission is not valid text", domain.ErrFileUnavailable)
	}
	return string(raw), nil
}

func (s *FilesystemStorage) Discard(_ context.Context, ref string) error {
	if _, err := uuid.Parse(ref); err != nil {
		return nil
	}
	if err := os.Remove(s.path(ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FilesystemStorage) path(ref string) string {
	return filepath.Join(s.dir, ref)
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var _ ports.SubmissionStorage = (*FilesystemStorage)(nil)
