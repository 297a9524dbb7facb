package source

import "github.com/pkg/errors"

var (
	// ErrSourceUnavailable indicates the source could not be opened: an
	// invalid URL, a failed HEAD/GET, or a server that doesn't support
	// range requests.
	ErrSourceUnavailable = errors.New("source: unavailable")

	// ErrShortRead indicates the underlying transport returned fewer
	// bytes than requested.
	ErrShortRead = errors.New("source: short read")

	// ErrCancelled indicates the caller's context was cancelled or timed
	// out before the read completed.
	ErrCancelled = errors.New("source: cancelled")
)
