package ports

import (
	"context"
	"io"
)

type StoredSubmission struct {
	Ref       string
	SizeBytes int64
}

// SubmissionStorage holds uploaded submission content for the lifetime of one verification call.
type SubmissionStorage interface {
	Save(ctx context.Context, fileName string, content io.Reader, maxBytes int64) (StoredSubmission, error)
	ReadText(ctx context.Context, ref string, maxBytes int64) (string, error)
	Discard(ctx context.Context, ref string) error
}
