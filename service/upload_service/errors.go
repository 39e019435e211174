package upload_service

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeebo/errs"
)

var (
	// ErrValidation malformed or out-of-policy request; the caller must fix it.
	ErrValidation = errs.Class("validation")
	// ErrStorageWrite object storage put/copy failed.
	ErrStorageWrite = errs.Class("storage write")
	// ErrMetadataWrite file record insert or publish failed.
	ErrMetadataWrite = errs.Class("metadata write")
	// ErrUploadFailed completion failed after verification; the session is kept for retry.
	ErrUploadFailed = errs.Class("upload failed")
	// ErrDedupProbe fast-path lookup problem, logged and never returned.
	ErrDedupProbe = errs.Class("dedup probe")
)

var (
	ErrSessionNotFound = errors.New("upload session not found")
	ErrSessionExpired  = errors.New("upload session expired")
	ErrSessionBusy     = errors.New("upload session is being completed")
	ErrFileNotFound    = errors.New("file record not found")
)

// IncompleteUploadError fewer chunks received than the session expects
type IncompleteUploadError struct {
	Missing int
	Total   int
}

func (e *IncompleteUploadError) Error() string {
	return fmt.Sprintf("incomplete upload: %d of %d chunks missing", e.Missing, e.Total)
}

// NonContiguousChunksError chunk set is not exactly 1..total
type NonContiguousChunksError struct {
	FirstMissing int
}

func (e *NonContiguousChunksError) Error() string {
	return fmt.Sprintf("non-contiguous chunks: chunk %d missing", e.FirstMissing)
}

// SizeMismatchError chunk set is complete but its bytes do not add up to the
// declared size; resending the wrong chunks fixes it
type SizeMismatchError struct {
	Received int64
	Declared int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("received %d bytes, declared size is %d", e.Received, e.Declared)
}

func uploadFailed(class *errs.Class, err error) error {
	return ErrUploadFailed.Wrap(class.Wrap(err))
}

// Kind what a caller should do about an error
type Kind string

const (
	KindNone       Kind = ""
	KindRestart    Kind = "restart"     // start a new upload
	KindRetry      Kind = "retry"       // send missing chunks or retry completion
	KindFixRequest Kind = "fix_request" // the request itself is wrong
	KindInternal   Kind = "internal"
)

// ErrorKind classifies err for callers
func ErrorKind(err error) Kind {
	var incomplete *IncompleteUploadError
	var nonContiguous *NonContiguousChunksError
	var sizeMismatch *SizeMismatchError

	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
		return KindRestart
	case errors.As(err, &incomplete), errors.As(err, &nonContiguous), errors.As(err, &sizeMismatch),
		errors.Is(err, ErrSessionBusy), ErrUploadFailed.Has(err),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindRetry
	case ErrValidation.Has(err), errors.Is(err, ErrFileNotFound):
		return KindFixRequest
	default:
		return KindInternal
	}
}
