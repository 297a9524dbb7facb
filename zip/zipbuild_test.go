package zip_test

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/klauspost/compress/flate"
)

// archiveBuilder synthesizes minimal, well-formed ZIP/ZIP64 archives for
// tests, in lieu of checked-in binary fixtures. It deliberately omits the
// data-descriptor path (bit 0x8 of the general purpose flag): every local
// header it writes carries the real compressed/uncompressed sizes up
// front, which is all this package's reader ever needs.
type archiveBuilder struct {
	entries []builtEntry
	comment string
}

type builtEntry struct {
	name       string
	method     uint16
	raw        []byte // uncompressed content
	modified   time.Time
	forceZip64 bool // write a zip64 extra block even though sizes are small
}

func newArchiveBuilder() *archiveBuilder {
	return &archiveBuilder{}
}

func (b *archiveBuilder) addFile(name string, content []byte, method uint16) *archiveBuilder {
	b.entries = append(b.entries, builtEntry{
		name:     name,
		method:   method,
		raw:      content,
		modified: time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC),
	})
	return b
}

func (b *archiveBuilder) addZip64File(name string, content []byte, method uint16) *archiveBuilder {
	b.entries = append(b.entries, builtEntry{
		name:       name,
		method:     method,
		raw:        content,
		modified:   time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC),
		forceZip64: true,
	})
	return b
}

func (b *archiveBuilder) addDirectory(name string) *archiveBuilder {
	b.entries = append(b.entries, builtEntry{
		name:     name,
		method:   0,
		modified: time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC),
	})
	return b
}

func (b *archiveBuilder) withComment(c string) *archiveBuilder {
	b.comment = c
	return b
}

const (
	fileHeaderSignature      = 0x04034b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50
	directory64LocSignature  = 0x07064b50
	directory64EndSignature  = 0x06064b50
	fileHeaderLen            = 30
	directoryHeaderLen       = 46
	directoryEndLen          = 22
	directory64LocLen        = 20
	directory64EndLen        = 56
	zip64ExtraID             = 0x0001
	uint16max                = (1 << 16) - 1
	uint32max                = (1 << 32) - 1
	zipVersion20             = 20
	zipVersion45             = 45
)

type writeBuf []byte

func (b *writeBuf) uint16(v uint16) { binary.LittleEndian.PutUint16(*b, v); *b = (*b)[2:] }
func (b *writeBuf) uint32(v uint32) { binary.LittleEndian.PutUint32(*b, v); *b = (*b)[4:] }
func (b *writeBuf) uint64(v uint64) { binary.LittleEndian.PutUint64(*b, v); *b = (*b)[8:] }

func dosTime(t time.Time) (date, clock uint16) {
	date = uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9)
	clock = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return
}

func deflate(raw []byte) []byte {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(raw); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// centralRecord carries what build() needs to remember about one entry
// between writing its local header/data and writing the central
// directory afterward.
type centralRecord struct {
	builtEntry
	offset           uint64
	compressedSize   uint64
	uncompressedSize uint64
}

// build serializes the archive and returns its bytes.
func (b *archiveBuilder) build() []byte {
	var out bytes.Buffer
	records := make([]centralRecord, 0, len(b.entries))

	for _, e := range b.entries {
		compressed := e.raw
		if e.method == deflateMethod {
			compressed = deflate(e.raw)
		}

		offset := uint64(out.Len())
		date, clock := dosTime(e.modified)

		var hdr [fileHeaderLen]byte
		hb := writeBuf(hdr[:])
		hb.uint32(fileHeaderSignature)
		hb.uint16(zipVersion20)
		hb.uint16(0) // flags: no data descriptor, no UTF-8 bit needed for ASCII test names
		hb.uint16(e.method)
		hb.uint16(clock)
		hb.uint16(date)
		hb.uint32(0) // CRC32: unused by this package's reader, left zero
		hb.uint32(uint32(len(compressed)))
		hb.uint32(uint32(len(e.raw)))
		hb.uint16(uint16(len(e.name)))
		hb.uint16(0) // no local extra field
		out.Write(hdr[:])
		out.WriteString(e.name)
		out.Write(compressed)

		records = append(records, centralRecord{
			builtEntry:       e,
			offset:           offset,
			compressedSize:   uint64(len(compressed)),
			uncompressedSize: uint64(len(e.raw)),
		})
	}

	dirStart := uint64(out.Len())
	for _, r := range records {
		date, clock := dosTime(r.modified)

		extra := []byte{}
		compressedField := uint32(r.compressedSize)
		uncompressedField := uint32(r.uncompressedSize)
		offsetField := uint32(r.offset)
		if r.forceZip64 {
			compressedField = uint32max
			uncompressedField = uint32max
			offsetField = uint32max

			var eb [28]byte
			w := writeBuf(eb[:])
			w.uint16(zip64ExtraID)
			w.uint16(24)
			w.uint64(r.uncompressedSize)
			w.uint64(r.compressedSize)
			w.uint64(r.offset)
			extra = eb[:]
		}

		var hdr [directoryHeaderLen]byte
		hb := writeBuf(hdr[:])
		hb.uint32(directoryHeaderSignature)
		hb.uint16(zipVersion20) // version made by (FAT/Unix doesn't matter for these tests)
		hb.uint16(zipVersion20)
		hb.uint16(0)
		hb.uint16(r.method)
		hb.uint16(clock)
		hb.uint16(date)
		hb.uint32(0) // CRC32
		hb.uint32(compressedField)
		hb.uint32(uncompressedField)
		hb.uint16(uint16(len(r.name)))
		hb.uint16(uint16(len(extra)))
		hb.uint16(0) // comment length
		hb.uint16(0) // disk number start
		hb.uint16(0) // internal attrs
		externalAttrs := uint32(0)
		if len(r.name) > 0 && r.name[len(r.name)-1] == '/' {
			externalAttrs = 0x10 // FAT directory bit, read back by msdosModeToFileMode
		}
		hb.uint32(externalAttrs)
		hb.uint32(offsetField)

		out.Write(hdr[:])
		out.WriteString(r.name)
		out.Write(extra)
	}
	dirSize := uint64(out.Len()) - dirStart

	// classicOverflow is true only when the classic EOCD's own 16/32-bit
	// fields genuinely cannot hold the real values. A per-entry forceZip64
	// (used to exercise the zip64 extra field on an otherwise tiny archive)
	// must NOT placeholder these fields: reader.go never re-derives
	// directory extent from the zip64 EOCD record, so it trusts the
	// classic EOCD's count/size/offset whenever they aren't 0xFFFFFFFF.
	classicOverflow := uint64(len(records)) >= uint16max || dirSize >= uint32max || dirStart >= uint32max

	writeZip64Record := classicOverflow
	for _, r := range records {
		if r.forceZip64 {
			writeZip64Record = true
		}
	}

	recordCount := uint64(len(records))
	dirSizeField := uint32(dirSize)
	dirOffsetField := uint32(dirStart)
	recordCountField := uint16(recordCount)

	if writeZip64Record {
		end := dirStart + dirSize

		var z64 [directory64EndLen + directory64LocLen]byte
		zb := writeBuf(z64[:])
		zb.uint32(directory64EndSignature)
		zb.uint64(directory64EndLen - 12)
		zb.uint16(zipVersion45)
		zb.uint16(zipVersion45)
		zb.uint32(0)
		zb.uint32(0)
		zb.uint64(recordCount)
		zb.uint64(recordCount)
		zb.uint64(dirSize)
		zb.uint64(dirStart)

		zb.uint32(directory64LocSignature)
		zb.uint32(0)
		zb.uint64(end)
		zb.uint32(1)

		out.Write(z64[:])
	}

	if classicOverflow {
		recordCountField = uint16max
		dirSizeField = uint32max
		dirOffsetField = uint32max
	}

	var eocd [directoryEndLen]byte
	eb := writeBuf(eocd[:])
	eb.uint32(directoryEndSignature)
	eb.uint16(0)
	eb.uint16(0)
	eb.uint16(recordCountField)
	eb.uint16(recordCountField)
	eb.uint32(dirSizeField)
	eb.uint32(dirOffsetField)
	eb.uint16(uint16(len(b.comment)))
	out.Write(eocd[:])
	out.WriteString(b.comment)

	return out.Bytes()
}

// deflateMethod mirrors zip.Deflate. zipbuild_test.go lives in package
// zip_test (alongside the black-box tests that exercise zip.Open), so it
// restates the constant rather than importing the package under test just
// for this one value.
const deflateMethod uint16 = 8
