package domain

import (
	"context"
	"errors"
	"io"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Upload(ctx context.Context, caseID string, file UploadRequest) (Attachment, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

// UploadRequest describes one file received from the client. Size is the
// declared size; the body is still capped at the policy maximum.
type UploadRequest struct {
	FileName string
	MimeType string
	Size     int64
	Body     io.Reader
}

// ObjectStore holds attachment bytes.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
	// KeyFromURL recovers the object key of a public URL, for records that predate ObjectKey.
	KeyFromURL(publicURL string) string
}

var (
	ErrNotFound       = errors.New("attachment_not_found")
	ErrLimitReached   = errors.New("attachment_limit_reached")
	ErrMissingFile    = errors.New("invalid_file")
	ErrMimeType       = errors.New("invalid_mime_type")
	ErrTooLarge       = errors.New("invalid_file_size")
	ErrStorageFailure = errors.New("storage_failure")
)

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrRateLimited         = errors.New("rate_limited")
)
