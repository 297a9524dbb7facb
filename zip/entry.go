package zip

import (
	"os"
	"path"
	"strings"
	"time"
)

// EntryKind distinguishes a regular file from a directory. The distinction
// is purely syntactic: a path ending in "/" is a directory.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
)

func (k EntryKind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Entry describes one member of an archive, as recorded in the central
// directory (with ZIP64 extra-field overrides already applied).
type Entry struct {
	Path              string
	HeaderOffset      uint64
	CompressionMethod uint16
	CompressedSize    uint64
	UncompressedSize  uint64
	ModifiedTime      time.Time
	ExternalAttrs     uint32
	CreatorVersion    uint16
	Kind              EntryKind
}

// IsCompressed reports whether the stored bytes differ in length from the
// decompressed bytes.
func (e *Entry) IsCompressed() bool {
	return e.CompressedSize != e.UncompressedSize
}

// Name is the last path segment, used as the default display name.
func (e *Entry) Name() string {
	return path.Base(strings.TrimSuffix(e.Path, "/"))
}

// Mode derives a permission/type os.FileMode from the creator version and
// external attributes fields, the same way archive/zip does.
func (e *Entry) Mode() os.FileMode {
	var mode os.FileMode
	switch e.CreatorVersion >> 8 {
	case creatorUnix, creatorMacOSX:
		mode = unixModeToFileMode(e.ExternalAttrs >> 16)
	case creatorNTFS, creatorVFAT, creatorFAT:
		mode = msdosModeToFileMode(e.ExternalAttrs)
	}
	if e.Kind == KindDirectory {
		mode |= os.ModeDir
	}
	return mode
}

func kindForPath(p string) EntryKind {
	if strings.HasSuffix(p, "/") {
		return KindDirectory
	}
	return KindFile
}
