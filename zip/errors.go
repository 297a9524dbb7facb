package zip

import "github.com/pkg/errors"

// Sentinel error kinds. Callers match with errors.Is; errors that this
// package detects itself wrap one of these with human-readable context
// ("decoding entry 12", ...) via pkg/errors.Wrap, which preserves the chain
// for errors.Is/errors.Cause. Errors from the source.RangeReader (short
// reads, cancellation, transport failures) are passed through, wrapped with
// context such as "fetching EOCD", and keep the source package's sentinels.
var (
	// ErrSourceUnavailable names the kind "the byte source could not be
	// opened". Open and Extract do not return it; an unreachable remote
	// source fails earlier, in source.OpenRemote, with
	// source.ErrSourceUnavailable.
	ErrSourceUnavailable = errors.New("zip: source unavailable")

	// ErrMalformedArchive indicates the EOCD is missing, a central
	// directory entry has a bad signature or duplicate path, lengths are
	// inconsistent, or a local header is out of range. A read that
	// returns fewer bytes than requested is reported as source.ErrShortRead,
	// not as ErrMalformedArchive.
	ErrMalformedArchive = errors.New("zip: malformed archive")

	// ErrUnsupportedCompression indicates a compression method outside
	// {Store, Deflate}.
	ErrUnsupportedCompression = errors.New("zip: unsupported compression method")

	// ErrInvalidOperation indicates a caller error: extracting a
	// directory entry, for instance.
	ErrInvalidOperation = errors.New("zip: invalid operation")

	// ErrNotFound indicates a missing entry or metadata key.
	ErrNotFound = errors.New("zip: not found")

	// ErrCancelled names the kind "the caller's context was cancelled".
	// Open and Extract do not return it; a cancelled read surfaces as
	// source.ErrCancelled.
	ErrCancelled = errors.New("zip: operation cancelled")
)
