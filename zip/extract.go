package zip

import (
	"context"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// Extract returns the decompressed bytes of a file entry in one call. It is
// a convenience wrapper around ExtractStream for callers that want the
// whole member resident in memory.
func (a *Archive) Extract(ctx context.Context, e *Entry) ([]byte, error) {
	rc, err := a.ExtractStream(ctx, e)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, 0, e.UncompressedSize)
	out := &growBuffer{buf: buf}
	if _, err := io.Copy(out, rc); err != nil {
		return nil, errors.Wrapf(err, "extracting %q", e.Path)
	}
	return out.buf, nil
}

// ExtractStream resolves the local file header preceding e's data, then
// returns a reader over the decompressed member bytes. The local header is
// fetched fresh on every call: it may disagree with the central directory
// copy (compressed-size placeholder in streamed archives, for instance),
// and the local value always wins for locating the data start.
func (a *Archive) ExtractStream(ctx context.Context, e *Entry) (io.ReadCloser, error) {
	if e.Kind == KindDirectory {
		return nil, errors.Wrapf(ErrInvalidOperation, "extracting %q: is a directory", e.Path)
	}

	dataOffset, compressedSize, err := a.resolveLocalHeader(ctx, e)
	if err != nil {
		return nil, err
	}

	raw, err := a.reader.ReadStream(ctx, dataOffset, compressedSize)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching member data for %q", e.Path)
	}

	switch e.CompressionMethod {
	case Store:
		return raw, nil
	case Deflate:
		return &deflateReader{raw: raw, fr: flate.NewReader(raw)}, nil
	default:
		raw.Close()
		return nil, errors.Wrapf(ErrUnsupportedCompression, "method %d on %q", e.CompressionMethod, e.Path)
	}
}

// resolveLocalHeader fetches the fixed 30-byte local file header plus its
// variable name/extra fields at e.HeaderOffset, and returns the offset and
// length of the member's compressed data.
func (a *Archive) resolveLocalHeader(ctx context.Context, e *Entry) (dataOffset, compressedSize uint64, err error) {
	if e.HeaderOffset+uint64(fileHeaderLen) > a.size {
		return 0, 0, errors.Wrapf(ErrMalformedArchive, "local header offset %d out of range for %q", e.HeaderOffset, e.Path)
	}

	fixed, err := a.reader.Read(ctx, e.HeaderOffset, uint64(fileHeaderLen))
	if err != nil {
		return 0, 0, errors.Wrapf(err, "fetching local header for %q", e.Path)
	}
	if binary.LittleEndian.Uint32(fixed[0:4]) != fileHeaderSignature {
		return 0, 0, errors.Wrapf(ErrMalformedArchive, "bad local file header signature for %q", e.Path)
	}

	nameLen := uint64(binary.LittleEndian.Uint16(fixed[26:28]))
	extraLen := uint64(binary.LittleEndian.Uint16(fixed[28:30]))

	headerTotal := uint64(fileHeaderLen) + nameLen + extraLen
	dataOffset = e.HeaderOffset + headerTotal

	compressedSize = e.CompressedSize
	if compressedSize > a.size-dataOffset {
		return 0, 0, errors.Wrapf(ErrMalformedArchive,
			"compressed size %d for %q exceeds archive bounds from offset %d", compressedSize, e.Path, dataOffset)
	}

	return dataOffset, compressedSize, nil
}

// deflateReader wraps a flate.Reader and closes both it and the underlying
// ranged stream together, so callers only ever need to Close once.
type deflateReader struct {
	raw io.ReadCloser
	fr  io.ReadCloser
}

func (d *deflateReader) Read(p []byte) (int, error) {
	return d.fr.Read(p)
}

func (d *deflateReader) Close() error {
	ferr := d.fr.Close()
	rerr := d.raw.Close()
	if ferr != nil {
		return ferr
	}
	return rerr
}

// growBuffer implements io.Writer by appending to a slice, avoiding the
// extra allocation bytes.Buffer would need to copy out of at the end.
type growBuffer struct {
	buf []byte
}

func (g *growBuffer) Write(p []byte) (int, error) {
	g.buf = append(g.buf, p...)
	return len(p), nil
}
