package workspace

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/sfc-typer/pkg/builder"
	"github.com/walteh/sfc-typer/pkg/macro"
	"github.com/walteh/sfc-typer/pkg/mapping"
	"github.com/walteh/sfc-typer/pkg/position"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	ErrStaleVersion = errors.Base("stale document version")
	ErrNotOpen      = errors.Base("document is not open")
)

type Options struct {
	Macro   macro.Options
	Builder builder.Options
	// ColumnMode is the unit of the characters in edit ranges.
	ColumnMode position.ColumnMode
	// Indent, when set, overrides Builder.Indent per document. An empty
	// result keeps Builder.Indent.
	Indent func(uri string) string
}

// Registry holds the open documents. It is safe for concurrent use.
type Registry struct {
	id   xid.ID
	opts Options

	mu   sync.RWMutex
	docs map[string]*entry

	group       singleflight.Group
	generations atomic.Int64
}

// entry is one document version with everything derived from it.
type entry struct {
	doc SourceDocument

	once sync.Once
	snap *Snapshot

	mu        sync.Mutex
	artifacts map[builder.Kind]*Artifact
}

func (e *entry) snapshot(ctx context.Context, opts macro.Options) *Snapshot {
	e.once.Do(func() {
		e.snap = Analyze(ctx, e.doc.Text, opts)
	})
	return e.snap
}

func (e *entry) cached(kind builder.Kind) *Artifact {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.artifacts[kind]
}

func (e *entry) store(a *Artifact) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.artifacts[a.Kind] = a
}

func newEntry(doc SourceDocument) *entry {
	return &entry{doc: doc, artifacts: map[builder.Kind]*Artifact{}}
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		id:   xid.New(),
		opts: opts,
		docs: map[string]*entry{},
	}
}

func (r *Registry) logger(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx).With().Str("registry", r.id.String()).Logger()
	return &l
}

// Generations counts the artifacts generated so far. Cache hits do not count.
func (r *Registry) Generations() int64 {
	return r.generations.Load()
}

// Open starts tracking a document. Opening a document that is already open
// replaces it, as long as the version increases.
func (r *Registry) Open(ctx context.Context, uri string, version int32, text string) (SourceDocument, error) {
	return r.update(ctx, uri, version, true, func(string) string { return text })
}

// ApplyEdits applies edits to the open document, producing version.
func (r *Registry) ApplyEdits(ctx context.Context, uri string, version int32, edits ...TextEdit) (SourceDocument, error) {
	return r.update(ctx, uri, version, false, func(prev string) string {
		return ApplyEdits(prev, edits, r.opts.ColumnMode)
	})
}

func (r *Registry) update(ctx context.Context, uri string, version int32, open bool, text func(prev string) string) (SourceDocument, error) {
	uri = normalizeURI(uri)
	log := r.logger(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.docs[uri]
	if !ok && !open {
		return SourceDocument{}, errors.Errorf("%w: %s", ErrNotOpen, uri)
	}
	var before string
	if ok {
		if version <= prev.doc.Version {
			return SourceDocument{}, errors.Errorf("%w: %s version %d, current %d", ErrStaleVersion, uri, version, prev.doc.Version)
		}
		before = prev.doc.Text
	}

	doc := SourceDocument{URI: uri, Version: version, Text: text(before)}
	r.docs[uri] = newEntry(doc)

	log.Debug().Str("uri", uri).Int32("version", version).Int("bytes", len(doc.Text)).Msg("document updated")
	return doc, nil
}

func (r *Registry) Close(ctx context.Context, uri string) {
	uri = normalizeURI(uri)
	r.mu.Lock()
	delete(r.docs, uri)
	r.mu.Unlock()
	r.logger(ctx).Debug().Str("uri", uri).Msg("document closed")
}

func (r *Registry) lookup(uri string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.docs[normalizeURI(uri)]
	return e, ok
}

// Get returns the current version of a document with its descriptor.
func (r *Registry) Get(ctx context.Context, uri string) (SourceDocument, bool) {
	e, ok := r.lookup(uri)
	if !ok {
		return SourceDocument{}, false
	}
	doc := e.doc
	doc.Descriptor = e.snapshot(ctx, r.opts.Macro).Descriptor
	return doc, true
}

// Snapshot returns the analysis of the current version of a document.
func (r *Registry) Snapshot(ctx context.Context, uri string) (*Snapshot, error) {
	e, ok := r.lookup(uri)
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrNotOpen, uri)
	}
	return e.snapshot(ctx, r.opts.Macro), nil
}

// URIs lists the open documents.
func (r *Registry) URIs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.docs))
	for uri := range r.docs {
		out = append(out, uri)
	}
	return out
}

// GetArtifact returns the artifact of kind for the current version of a
// document, generating it if the cached one is missing. Concurrent callers
// for the same version and kind share one generation.
func (r *Registry) GetArtifact(ctx context.Context, uri string, kind builder.Kind) (*Artifact, error) {
	e, ok := r.lookup(uri)
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrNotOpen, uri)
	}
	if a := e.cached(kind); a != nil {
		return a, nil
	}

	key := fmt.Sprintf("%s@%d#%s", e.doc.URI, e.doc.Version, kind)
	v, err, shared := r.group.Do(key, func() (interface{}, error) {
		if a := e.cached(kind); a != nil {
			return a, nil
		}
		a, err := r.generate(ctx, e, kind)
		if err != nil {
			return nil, err
		}
		e.store(a)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger(ctx).Trace().Str("key", key).Msg("shared artifact generation")
	}
	return v.(*Artifact), nil
}

func (r *Registry) generate(ctx context.Context, e *entry, kind builder.Kind) (*Artifact, error) {
	opts := r.opts.Builder
	if opts.OptionsModule == "" {
		opts.OptionsModule = OptionsModule(e.doc.URI)
	}
	if r.opts.Indent != nil {
		if indent := r.opts.Indent(e.doc.URI); indent != "" {
			opts.Indent = indent
		}
	}

	art, err := e.snapshot(ctx, r.opts.Macro).Assemble(ctx, kind, opts)
	if err != nil {
		return nil, errors.Errorf("generating %s artifact for %s: %w", kind, e.doc.URI, err)
	}

	a := &Artifact{
		Artifact:    art,
		URI:         e.doc.URI,
		Version:     e.doc.Version,
		VirtualPath: VirtualPath(e.doc.URI, kind),
		Generation:  uuid.New(),
		Mapper:      mapping.NewMapper(art.Script),
	}
	r.generations.Add(1)

	r.logger(ctx).Debug().
		Str("uri", a.URI).
		Int32("version", a.Version).
		Str("kind", string(kind)).
		Str("generation", a.Generation.String()).
		Msg("generated artifact")
	return a, nil
}

// GetArtifacts returns several kinds of one document version, generated in
// parallel. With no kinds it returns every kind.
func (r *Registry) GetArtifacts(ctx context.Context, uri string, kinds ...builder.Kind) ([]*Artifact, error) {
	if len(kinds) == 0 {
		kinds = builder.Kinds
	}
	out := make([]*Artifact, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			a, err := r.GetArtifact(gctx, uri, kind)
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Load opens a document from the file system. An unchanged file keeps its
// version; a changed one gets the next version.
func (r *Registry) Load(ctx context.Context, fsys afero.Fs, path string) (SourceDocument, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return SourceDocument{}, errors.Errorf("reading %s: %w", path, err)
	}

	uri := normalizeURI(path)
	r.mu.Lock()
	version := int32(1)
	if prev, ok := r.docs[uri]; ok {
		if prev.doc.Text == string(data) {
			r.mu.Unlock()
			return prev.doc, nil
		}
		version = prev.doc.Version + 1
	}
	doc := SourceDocument{URI: uri, Version: version, Text: string(data)}
	r.docs[uri] = newEntry(doc)
	r.mu.Unlock()

	r.logger(ctx).Debug().Str("uri", uri).Int32("version", version).Msg("document loaded")
	return doc, nil
}
