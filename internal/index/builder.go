package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/textqa/internal/document"
	"github.com/dgallion1/textqa/internal/embed"
	"github.com/dgallion1/textqa/internal/pdftext"
	"github.com/dgallion1/textqa/internal/splitter"
	"golang.org/x/sync/singleflight"
)

// Ingestor extracts ordered per-page text from raw document bytes.
// *pdftext.Extractor is the production implementation.
type Ingestor interface {
	Extract(data []byte) ([]document.Page, error)
}

// Builder turns raw document bytes into a persisted, queryable index, or
// returns the cached one when the same bytes have been seen before.
type Builder struct {
	store     *Store
	extractor Ingestor
	embedder  embed.Embedder
	splitCfg  splitter.Config
	creds     embed.Credentials
	log       *slog.Logger

	group singleflight.Group
}

func NewBuilder(store *Store, extractor Ingestor, embedder embed.Embedder, splitCfg splitter.Config, creds embed.Credentials, log *slog.Logger) *Builder {
	return &Builder{
		store:     store,
		extractor: extractor,
		embedder:  embedder,
		splitCfg:  splitCfg,
		creds:     creds,
		log:       log,
	}
}

type buildResult struct {
	index    *Index
	embedder embed.Embedder
	cached   bool
}

// GetOrBuild returns the index for the document bytes, building and
// persisting it on first sight. The returned embedder is the one to use for
// query embedding: for a cached index it is reconstructed from the persisted
// configuration so queries stay in the same vector space the index was built
// in. Concurrent calls for the same fingerprint share one build via
// singleflight; readers of an already-published index never block.
func (b *Builder) GetOrBuild(ctx context.Context, raw []byte) (*Index, embed.Embedder, bool, error) {
	fp := Fingerprint(raw)

	v, err, _ := b.group.Do(fp, func() (any, error) {
		if b.store.Exists(fp) {
			ix, err := b.store.Load(fp)
			if err == nil {
				queryEmbedder, err := embed.FromConfig(ix.EmbedConfig, b.creds)
				if err != nil {
					return nil, fmt.Errorf("restore query embedder: %w", err)
				}
				b.log.Info("index cache hit", "fingerprint", fp, "fragments", len(ix.Fragments))
				return buildResult{index: ix, embedder: queryEmbedder, cached: true}, nil
			}
			// Corrupt entry: rebuild over it.
			b.log.Warn("cached index unreadable, rebuilding", "fingerprint", fp, "error", err)
		}

		ix, err := b.build(ctx, fp, raw)
		if err != nil {
			return nil, err
		}
		return buildResult{index: ix, embedder: b.embedder}, nil
	})
	if err != nil {
		return nil, nil, false, err
	}

	res := v.(buildResult)
	return res.index, res.embedder, res.cached, nil
}

func (b *Builder) build(ctx context.Context, fp string, raw []byte) (*Index, error) {
	pages, err := b.extractor.Extract(raw)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no extractable text", pdftext.ErrUnreadable)
	}

	fragments := splitter.Split(pages, b.splitCfg)
	b.log.Info("building index", "fingerprint", fp, "pages", len(pages), "fragments", len(fragments))

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}
	vectors, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed fragments: %w", err)
	}
	if len(vectors) != len(fragments) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d fragments", len(vectors), len(fragments))
	}
	for i := range fragments {
		fragments[i].Vector = vectors[i]
	}

	// Honor caller cancellation before publishing anything.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix := &Index{
		Fingerprint: fp,
		EmbedConfig: b.embedder.Config(),
		Fragments:   fragments,
	}
	if err := b.store.Save(ix); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}
	return ix, nil
}

// Exists reports whether a complete index is on disk for the fingerprint.
func (b *Builder) Exists(fingerprint string) bool {
	return b.store.Exists(fingerprint)
}

// Load returns a previously persisted index and its query embedder without
// accepting new document bytes. Used by request paths that address a document
// by fingerprint.
func (b *Builder) Load(fingerprint string) (*Index, embed.Embedder, error) {
	if !b.store.Exists(fingerprint) {
		return nil, nil, fmt.Errorf("no index for fingerprint %s", fingerprint)
	}
	ix, err := b.store.Load(fingerprint)
	if err != nil {
		return nil, nil, err
	}
	queryEmbedder, err := embed.FromConfig(ix.EmbedConfig, b.creds)
	if err != nil {
		return nil, nil, fmt.Errorf("restore query embedder: %w", err)
	}
	return ix, queryEmbedder, nil
}
