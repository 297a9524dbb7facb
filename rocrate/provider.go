// Package rocrate provides an explorer.MetadataProvider that recognizes an
// RO-Crate JSON-LD graph (a top-level ro-crate-metadata.json entry) and
// projects its entities onto archive paths.
package rocrate

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/rocratezip/explorer/explorer"
	"github.com/rocratezip/explorer/zip"
)

// metadataFileName is the well-known RO-Crate metadata entry name, always
// located at the archive root.
const metadataFileName = "ro-crate-metadata.json"

// rootEntityID is the conventional @id of the crate's own descriptor
// entity within the graph, per the RO-Crate specification.
const rootEntityID = "ro-crate-metadata.json"

var (
	// ErrNoCrate indicates the archive has no ro-crate-metadata.json entry.
	ErrNoCrate = errors.New("rocrate: archive carries no RO-Crate metadata")
)

// Entity is one node of the RO-Crate @graph, projected down to the fields
// this package understands plus an Extra bag for everything else.
type Entity struct {
	ID          string
	Name        string
	Description string
	Extra       map[string]any
}

// Graph is a read-only view over a parsed RO-Crate document, keyed by
// entity @id (which, for file/directory entities, is the archive-relative
// path).
type Graph interface {
	Entity(id string) (Entity, bool)
	Entities() []Entity
}

// Provider implements explorer.MetadataProvider against an RO-Crate
// metadata document found at the archive root. Until LoadMetadata runs
// (via explorer.Explorer.ExtractMetadata), HasCrate reports false and
// Crate returns ErrNoCrate.
type Provider struct {
	mu    sync.RWMutex
	graph Graph
}

// NewProvider returns an empty Provider, ready to be passed to
// explorer.New or explorer.NewFromExplorer.
func NewProvider() *Provider {
	return &Provider{}
}

// LoadMetadata locates and parses ro-crate-metadata.json, if present. A
// missing metadata file is not an error: HasCrate/Crate report its
// absence instead, since many archives legitimately carry no RO-Crate
// descriptor.
func (p *Provider) LoadMetadata(ctx context.Context, ex *explorer.Explorer) error {
	archive, err := ex.Archive()
	if err != nil {
		return err
	}

	entry, ok := archive.Entry(metadataFileName)
	if !ok {
		p.mu.Lock()
		p.graph = nil
		p.mu.Unlock()
		return nil
	}

	raw, err := archive.Extract(ctx, entry)
	if err != nil {
		return errors.Wrap(err, "extracting ro-crate-metadata.json")
	}

	g, err := parseGraph(raw)
	if err != nil {
		return errors.Wrap(err, "parsing ro-crate-metadata.json")
	}

	p.mu.Lock()
	p.graph = g
	p.mu.Unlock()
	return nil
}

// BuildEntryMetadata projects the graph entity whose @id matches e.Path
// onto an explorer.EntryMetadata. Entries with no matching entity (common
// for files an RO-Crate author never described) still get the base
// EntryMetadata: display name, size and modification time, with no ID,
// description or extra fields.
func (p *Provider) BuildEntryMetadata(ctx context.Context, e *zip.Entry) *explorer.EntryMetadata {
	p.mu.RLock()
	g := p.graph
	p.mu.RUnlock()

	base := explorer.EntryMetadata{
		Entry:        e,
		Size:         e.UncompressedSize,
		ModifiedTime: e.ModifiedTime,
		Name:         e.Name(),
	}

	if g == nil {
		return &base
	}
	ent, ok := g.Entity(e.Path)
	if !ok {
		return &base
	}
	base.ID = ent.ID
	base.Name = firstNonEmpty(ent.Name, e.Name())
	base.Description = ent.Description
	base.Extra = ent.Extra
	return &base
}

// HasCrate reports whether LoadMetadata found a crate descriptor. It
// returns false both before LoadMetadata has run and after it ran and
// found none — callers that need to distinguish "not yet loaded" from
// "genuinely absent" should check explorer.Explorer's own state first.
func (p *Provider) HasCrate() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.graph != nil
}

// Crate returns the root dataset entity describing the crate itself, or
// ErrNoCrate if no RO-Crate metadata was found. By convention the root
// dataset is the entity with @id "./"; the ro-crate-metadata.json entity
// itself is only a descriptor pointing at it ("about": {"@id": "./"}) and
// rarely carries name/description, so it is used only as a last resort.
func (p *Provider) Crate() (Entity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.graph == nil {
		return Entity{}, ErrNoCrate
	}
	if e, ok := p.graph.Entity("./"); ok {
		return e, nil
	}
	if e, ok := p.graph.Entity(rootEntityID); ok {
		return e, nil
	}
	return Entity{}, ErrNoCrate
}

// Entities returns every entity in the graph, or nil if no crate was
// found.
func (p *Provider) Entities() []Entity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.graph == nil {
		return nil
	}
	return p.graph.Entities()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// document is the top-level shape of an RO-Crate metadata JSON-LD file.
type document struct {
	Context any       `json:"@context"`
	Graph   []rawNode `json:"@graph"`
}

// rawNode is one @graph member. Known JSON-LD properties are typed here;
// parseGraph decodes the same bytes a second time into loosely-typed maps
// to recover everything else into Entity.Extra.
type rawNode struct {
	ID          string     `json:"@id"`
	Name        jsonString `json:"name"`
	Description jsonString `json:"description"`
}

// jsonString accepts either a bare JSON string or a single-element array
// of strings, both of which appear in the wild for JSON-LD literal
// properties.
type jsonString string

func (s *jsonString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = jsonString(str)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		if len(arr) > 0 {
			*s = jsonString(arr[0])
		}
		return nil
	}
	// Some other JSON-LD shape (object, number) — leave empty rather than
	// failing the whole document over one decorative field.
	return nil
}

func parseGraph(raw []byte) (Graph, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	// Decode again into loosely-typed nodes so unknown properties survive
	// into Entity.Extra without a custom UnmarshalJSON on rawNode itself.
	var loose struct {
		Graph []map[string]any `json:"@graph"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, err
	}

	known := map[string]bool{"@id": true, "@type": true, "name": true, "description": true}

	entities := make(map[string]Entity, len(doc.Graph))
	order := make([]string, 0, len(doc.Graph))
	for i, n := range doc.Graph {
		extra := map[string]any{}
		if i < len(loose.Graph) {
			for k, v := range loose.Graph[i] {
				if !known[k] {
					extra[k] = v
				}
			}
		}
		e := Entity{
			ID:          n.ID,
			Name:        string(n.Name),
			Description: string(n.Description),
			Extra:       extra,
		}
		entities[n.ID] = e
		order = append(order, n.ID)
	}

	return &jsonGraph{entities: entities, order: order}, nil
}

// jsonGraph is an immutable, encoding/json-backed Graph: built once by
// parseGraph and never mutated afterward, so concurrent readers never
// need to synchronize on it directly (the Provider's mutex guards only
// the pointer swap).
type jsonGraph struct {
	entities map[string]Entity
	order    []string
}

func (g *jsonGraph) Entity(id string) (Entity, bool) {
	e, ok := g.entities[id]
	return e, ok
}

func (g *jsonGraph) Entities() []Entity {
	out := make([]Entity, len(g.order))
	for i, id := range g.order {
		out[i] = g.entities[id]
	}
	return out
}
