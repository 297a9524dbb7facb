package zip

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/rocratezip/explorer/source"
)

const eocdSearchWindow = 65536

// Open parses the trailer and central directory of an archive reachable
// through r, and returns an immutable Archive handle. Open issues a
// bounded number of ranged reads: the trailing window, the central
// directory itself, and nothing else — it never reads member data.
func Open(ctx context.Context, r source.RangeReader) (*Archive, error) {
	size := r.Len()

	windowLen := uint64(eocdSearchWindow)
	if windowLen > size {
		windowLen = size
	}
	windowStart := size - windowLen
	window, err := r.Read(ctx, windowStart, windowLen)
	if err != nil {
		return nil, errors.Wrap(err, "fetching EOCD")
	}

	eocdOffset, ok := findEOCD(window)
	if !ok {
		return nil, errors.Wrap(ErrMalformedArchive, "EOCD signature not found in trailing 64 KiB")
	}

	isZip64 := hasZip64Locator(window, eocdOffset)

	eocd := window[eocdOffset:]
	dirSize := uint64(binary.LittleEndian.Uint32(eocd[12:16]))
	dirOffset := uint64(binary.LittleEndian.Uint32(eocd[16:20]))
	commentLen := binary.LittleEndian.Uint16(eocd[20:22])
	comment := ""
	if int(commentLen) > 0 && len(eocd) >= 22+int(commentLen) {
		comment = string(eocd[22 : 22+int(commentLen)])
	}

	dirBuf, err := r.Read(ctx, dirOffset, dirSize)
	if err != nil {
		return nil, errors.Wrap(err, "fetching central directory")
	}

	order, entries, err := parseCentralDirectory(dirBuf)
	if err != nil {
		return nil, err
	}

	return &Archive{
		reader:  r,
		size:    size,
		isZip64: isZip64,
		comment: comment,
		order:   order,
		entries: entries,
	}, nil
}

// findEOCD scans window backward for the EOCD signature, returning the
// offset within window of the start of the record.
func findEOCD(window []byte) (int, bool) {
	if len(window) < directoryEndLen {
		return 0, false
	}
	for i := len(window) - directoryEndLen; i >= 0; i-- {
		if binary.LittleEndian.Uint32(window[i:i+4]) == directoryEndSignature {
			return i, true
		}
	}
	return 0, false
}

// hasZip64Locator reports whether the 20 bytes immediately preceding the
// EOCD carry the ZIP64 EOCD locator signature.
func hasZip64Locator(window []byte, eocdOffset int) bool {
	locOffset := eocdOffset - directory64LocLen
	if locOffset < 0 {
		return false
	}
	return binary.LittleEndian.Uint32(window[locOffset:locOffset+4]) == directory64LocSignature
}

// parseCentralDirectory walks buf from offset 0, decoding one
// central-directory header per iteration until the buffer is exhausted.
func parseCentralDirectory(buf []byte) ([]string, map[string]*Entry, error) {
	order := make([]string, 0)
	entries := make(map[string]*Entry)

	off := 0
	index := 0
	for off < len(buf) {
		if off+directoryHeaderLen > len(buf) {
			return nil, nil, errors.Wrapf(ErrMalformedArchive, "decoding entry %d: truncated header", index)
		}
		h := buf[off:]
		if binary.LittleEndian.Uint32(h[0:4]) != directoryHeaderSignature {
			return nil, nil, errors.Wrapf(ErrMalformedArchive, "decoding entry %d: bad signature", index)
		}

		creatorVersion := binary.LittleEndian.Uint16(h[4:6])
		method := binary.LittleEndian.Uint16(h[10:12])
		modDate := binary.LittleEndian.Uint16(h[14:16])
		modTime := binary.LittleEndian.Uint16(h[12:14])
		compressedSize := uint64(binary.LittleEndian.Uint32(h[20:24]))
		uncompressedSize := uint64(binary.LittleEndian.Uint32(h[24:28]))
		nameLen := int(binary.LittleEndian.Uint16(h[28:30]))
		extraLen := int(binary.LittleEndian.Uint16(h[30:32]))
		commentLen := int(binary.LittleEndian.Uint16(h[32:34]))
		externalAttrs := binary.LittleEndian.Uint32(h[38:42])
		headerOffset := uint64(binary.LittleEndian.Uint32(h[42:46]))

		total := directoryHeaderLen + nameLen + extraLen + commentLen
		if off+total > len(buf) {
			return nil, nil, errors.Wrapf(ErrMalformedArchive, "decoding entry %d: truncated name/extra/comment", index)
		}

		name := string(h[46 : 46+nameLen])
		extra := h[46+nameLen : 46+nameLen+extraLen]

		compressedSize, uncompressedSize, headerOffset = applyZip64Extra(extra, compressedSize, uncompressedSize, headerOffset)

		if _, dup := entries[name]; dup {
			return nil, nil, errors.Wrapf(ErrMalformedArchive, "decoding entry %d: duplicate path %q", index, name)
		}

		entries[name] = &Entry{
			Path:              name,
			HeaderOffset:      headerOffset,
			CompressionMethod: method,
			CompressedSize:    compressedSize,
			UncompressedSize:  uncompressedSize,
			ModifiedTime:      dosTimeToTime(modDate, modTime),
			ExternalAttrs:     externalAttrs,
			CreatorVersion:    creatorVersion,
			Kind:              kindForPath(name),
		}
		order = append(order, name)

		off += total
		index++
	}

	return order, entries, nil
}

// applyZip64Extra scans the extra-field block for a Zip64 extended
// information record (tag 0x0001) and overrides any of the three 32-bit
// fields that were stored as the 0xFFFFFFFF sentinel, in the fixed order
// the spec defines: uncompressed size, compressed size, header offset.
func applyZip64Extra(extra []byte, compressedSize, uncompressedSize, headerOffset uint64) (cs, us, ho uint64) {
	cs, us, ho = compressedSize, uncompressedSize, headerOffset

	needUncompressed := uncompressedSize == uint32max
	needCompressed := compressedSize == uint32max
	needOffset := headerOffset == uint32max

	pos := 0
	for pos+4 <= len(extra) {
		tag := binary.LittleEndian.Uint16(extra[pos : pos+2])
		size := int(binary.LittleEndian.Uint16(extra[pos+2 : pos+4]))
		fieldStart := pos + 4
		if fieldStart+size > len(extra) {
			break
		}
		field := extra[fieldStart : fieldStart+size]

		if tag == zip64ExtraID {
			p := 0
			if needUncompressed && p+8 <= len(field) {
				us = binary.LittleEndian.Uint64(field[p : p+8])
				p += 8
			} else if needUncompressed {
				p += 8
			}
			if needCompressed && p+8 <= len(field) {
				cs = binary.LittleEndian.Uint64(field[p : p+8])
				p += 8
			} else if needCompressed {
				p += 8
			}
			if needOffset && p+8 <= len(field) {
				ho = binary.LittleEndian.Uint64(field[p : p+8])
			}
			break
		}
		pos = fieldStart + size
	}

	return cs, us, ho
}
