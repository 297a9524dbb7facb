package zip

import (
	"strings"

	"github.com/rocratezip/explorer/source"
)

// Archive is the frozen result of parsing an archive's central directory.
// It is immutable for the lifetime of the handle: entries are created once
// during Open and never mutated afterward.
type Archive struct {
	reader  source.RangeReader
	size    uint64
	isZip64 bool
	comment string

	order   []string
	entries map[string]*Entry
}

// Len returns the total archive byte length, as reported by the source.
func (a *Archive) Len() uint64 { return a.size }

// IsZip64 reports whether a ZIP64 End-of-Central-Directory locator
// immediately preceded the EOCD record.
func (a *Archive) IsZip64() bool { return a.isZip64 }

// Comment is the EOCD comment field, if any.
func (a *Archive) Comment() string { return a.comment }

// Entries returns the archive's entries, in central-directory order.
func (a *Archive) Entries() []*Entry {
	out := make([]*Entry, len(a.order))
	for i, p := range a.order {
		out[i] = a.entries[p]
	}
	return out
}

// Entry looks up an entry by its exact path.
func (a *Archive) Entry(path string) (*Entry, bool) {
	e, ok := a.entries[path]
	return e, ok
}

// FindFileByName returns the first File entry whose path ends with suffix.
// Directory entries are never matched.
func (a *Archive) FindFileByName(suffix string) (*Entry, bool) {
	return a.FindFunc(func(e *Entry) bool {
		return e.Kind == KindFile && strings.HasSuffix(e.Path, suffix)
	})
}

// FindFunc returns the first entry, in central-directory order, for which
// match returns true.
func (a *Archive) FindFunc(match func(*Entry) bool) (*Entry, bool) {
	for _, p := range a.order {
		e := a.entries[p]
		if match(e) {
			return e, true
		}
	}
	return nil, false
}
