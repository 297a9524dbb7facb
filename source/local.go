package source

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// LocalBlob is a random-access, read-only byte-addressable blob of known
// length — an *os.File, a bytes.Reader, or anything else that can slice
// itself synchronously.
type LocalBlob interface {
	io.ReaderAt
	Len() int64
}

// Local adapts a LocalBlob to RangeReader. Reads are synchronous; multiple
// concurrent reads are safe exactly when the underlying ReaderAt is
// re-entrant (true for *os.File and bytes.Reader).
type Local struct {
	blob LocalBlob
}

// NewLocal wraps blob as a RangeReader.
func NewLocal(blob LocalBlob) *Local {
	return &Local{blob: blob}
}

func (l *Local) Len() uint64 {
	return uint64(l.blob.Len())
}

func (l *Local) Read(ctx context.Context, offset, length uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(ErrCancelled, err.Error())
	}
	if offset+length > l.Len() {
		return nil, errors.Wrapf(ErrShortRead, "reading %d bytes at offset %d from %d byte source", length, offset, l.Len())
	}
	buf := make([]byte, length)
	n, err := l.blob.ReadAt(buf, int64(offset))
	if err != nil && !(err == io.EOF && uint64(n) == length) {
		return nil, errors.Wrapf(err, "reading %d bytes at offset %d", length, offset)
	}
	if uint64(n) != length {
		return nil, errors.Wrapf(ErrShortRead, "read %d of %d requested bytes at offset %d", n, length, offset)
	}
	return buf, nil
}

// ReadStream returns a lazy view over [offset, offset+length) backed
// directly by the underlying ReaderAt, rather than reading it into memory
// up front — large members stream straight from the blob.
func (l *Local) ReadStream(ctx context.Context, offset, length uint64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(ErrCancelled, err.Error())
	}
	if offset+length > l.Len() {
		return nil, errors.Wrapf(ErrShortRead, "reading %d bytes at offset %d from %d byte source", length, offset, l.Len())
	}
	sr := io.NewSectionReader(l.blob, int64(offset), int64(length))
	return io.NopCloser(sr), nil
}
