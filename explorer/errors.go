package explorer

import "github.com/pkg/errors"

var (
	// ErrNotOpened indicates Archive/ExtractMetadata was called before Open
	// succeeded.
	ErrNotOpened = errors.New("explorer: archive not opened")

	// ErrNotExtracted indicates Metadata was called before ExtractMetadata
	// succeeded.
	ErrNotExtracted = errors.New("explorer: metadata not extracted")

	// ErrCancelled indicates the caller's context was cancelled mid-build.
	ErrCancelled = errors.New("explorer: operation cancelled")
)
