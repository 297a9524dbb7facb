// Package explorer composes a zip.Archive with pluggable metadata
// enrichment behind a small open/extract lifecycle.
package explorer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rocratezip/explorer/source"
	"github.com/rocratezip/explorer/zip"
)

// EntryMetadata is the per-entry enrichment record: the archive-derived
// base fields (Entry, Size, ModifiedTime) every entry carries regardless of
// provider, plus whatever a MetadataProvider contributes on top (ID, Name,
// Description, Extra).
type EntryMetadata struct {
	Entry        *zip.Entry
	Size         uint64
	ModifiedTime time.Time

	ID          string
	Name        string
	Description string
	Extra       map[string]any
}

// MetadataProvider enriches an already-opened Explorer. LoadMetadata runs
// once per ExtractMetadata call and may fetch or parse whatever auxiliary
// data it needs (a sidecar JSON-LD document, for instance) from ex's
// archive. BuildEntryMetadata is then called once per entry to project
// that loaded state onto a single zip.Entry.
type MetadataProvider interface {
	LoadMetadata(ctx context.Context, ex *Explorer) error
	BuildEntryMetadata(ctx context.Context, e *zip.Entry) *EntryMetadata
}

// Explorer is a read-only view over one archive, moving through three
// states: created, opened (archive parsed), enriched (metadata built).
// Open is idempotent: once it has succeeded, later calls return the same
// archive without re-parsing. Concurrent ExtractMetadata calls share one
// run; a later call rebuilds the metadata map and replaces it wholesale.
type Explorer struct {
	reader   source.RangeReader
	provider MetadataProvider

	openOnce singleflight.Group
	archive  *zip.Archive

	metaOnce singleflight.Group
	mu       sync.RWMutex
	metadata map[string]*EntryMetadata
}

// New creates an Explorer over reader. provider may be nil, in which case
// ExtractMetadata builds only the base record (name, size, modification
// time) for each entry.
func New(reader source.RangeReader, provider MetadataProvider) *Explorer {
	return &Explorer{reader: reader, provider: provider}
}

// NewFromExplorer builds a new Explorer that shares base's reader and
// already-opened archive (base must already be open), swapping in a
// different provider. This lets a rocrate.Provider (or any other
// MetadataProvider) be layered onto an archive without re-parsing it.
func NewFromExplorer(base *Explorer, provider MetadataProvider) (*Explorer, error) {
	archive, err := base.Archive()
	if err != nil {
		return nil, err
	}
	ex := &Explorer{reader: base.reader, provider: provider}
	ex.archive = archive
	return ex, nil
}

// Open parses the archive's central directory if it has not been parsed
// yet. Concurrent callers all observe the same *zip.Archive and the same
// error.
func (ex *Explorer) Open(ctx context.Context) (*zip.Archive, error) {
	v, err, _ := ex.openOnce.Do("open", func() (any, error) {
		if ex.archive != nil {
			return ex.archive, nil
		}
		a, err := zip.Open(ctx, ex.reader)
		if err != nil {
			return nil, err
		}
		ex.archive = a
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*zip.Archive), nil
}

// Archive returns the already-opened archive, or ErrNotOpened if Open has
// not yet succeeded.
func (ex *Explorer) Archive() (*zip.Archive, error) {
	if ex.archive == nil {
		return nil, ErrNotOpened
	}
	return ex.archive, nil
}

// ExtractMetadata runs the configured provider's LoadMetadata hook, then
// builds an EntryMetadata for every entry in the archive. The archive must
// already be open. On success the previous metadata map (if any) is
// discarded wholesale and replaced; a failed attempt leaves the Explorer's
// visible metadata exactly as it was before the call — no reader ever
// observes a half-populated map.
func (ex *Explorer) ExtractMetadata(ctx context.Context) error {
	archive, err := ex.Archive()
	if err != nil {
		return err
	}

	_, err, _ = ex.metaOnce.Do("extract", func() (any, error) {
		if ex.provider != nil {
			if err := ex.provider.LoadMetadata(ctx, ex); err != nil {
				return nil, err
			}
		}

		built := make(map[string]*EntryMetadata, len(archive.Entries()))
		for _, e := range archive.Entries() {
			if ex.provider == nil {
				built[e.Path] = baseEntryMetadata(e)
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, ErrCancelled
			}
			if m := ex.provider.BuildEntryMetadata(ctx, e); m != nil {
				m.Entry = e
				m.Size = e.UncompressedSize
				m.ModifiedTime = e.ModifiedTime
				built[e.Path] = m
			}
		}

		ex.mu.Lock()
		ex.metadata = built
		ex.mu.Unlock()
		return nil, nil
	})
	return err
}

// baseEntryMetadata builds the provider-free EntryMetadata record: the
// archive's own fields and nothing else.
func baseEntryMetadata(e *zip.Entry) *EntryMetadata {
	return &EntryMetadata{
		Entry:        e,
		Size:         e.UncompressedSize,
		ModifiedTime: e.ModifiedTime,
		Name:         e.Name(),
	}
}

// Metadata looks up the enrichment built for path by the most recent
// successful ExtractMetadata call. Returns ErrNotExtracted if
// ExtractMetadata has not yet succeeded.
func (ex *Explorer) Metadata(path string) (*EntryMetadata, error) {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	if ex.metadata == nil {
		return nil, ErrNotExtracted
	}
	m, ok := ex.metadata[path]
	if !ok {
		return nil, zip.ErrNotFound
	}
	return m, nil
}
