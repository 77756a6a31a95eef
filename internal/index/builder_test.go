package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dgallion1/textqa/internal/document"
	"github.com/dgallion1/textqa/internal/embed"
	"github.com/dgallion1/textqa/internal/splitter"

	"log/slog"
)

// fakeIngestor returns fixed pages regardless of input bytes.
type fakeIngestor struct {
	pages []document.Page
	err   error
}

func (f *fakeIngestor) Extract(data []byte) ([]document.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

// fakeEmbedder produces deterministic vectors and counts embedding calls.
type fakeEmbedder struct {
	calls int64
	fail  bool
}

func (f *fakeEmbedder) Config() embed.Config {
	return embed.Config{Provider: embed.ProviderOllama, Model: "fake", Dimension: 3, BaseURL: "http://localhost:11434"}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt64(&f.calls, int64(len(texts)))
	if f.fail {
		return nil, &embed.ServiceError{Provider: "fake", Err: errors.New("unreachable")}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(strings.Count(t, " ")), 1}
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestBuilder(t *testing.T, ing Ingestor, emb embed.Embedder) *Builder {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return NewBuilder(store, ing, emb, splitter.Config{Window: 50, Overlap: 10}, embed.Credentials{}, testLogger())
}

func TestGetOrBuild_SecondCallHitsCache(t *testing.T) {
	emb := &fakeEmbedder{}
	ing := &fakeIngestor{pages: []document.Page{{Number: 1, Text: strings.Repeat("textbook content ", 20)}}}
	b := newTestBuilder(t, ing, emb)

	raw := []byte("the raw pdf bytes")
	ix1, _, cached1, err := b.GetOrBuild(context.Background(), raw)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	if cached1 {
		t.Error("first call must not be a cache hit")
	}
	callsAfterBuild := atomic.LoadInt64(&emb.calls)
	if callsAfterBuild == 0 {
		t.Fatal("expected embedding calls during build")
	}

	ix2, _, cached2, err := b.GetOrBuild(context.Background(), raw)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if !cached2 {
		t.Error("second call with identical bytes must hit cache")
	}
	if got := atomic.LoadInt64(&emb.calls); got != callsAfterBuild {
		t.Errorf("cache hit must not re-embed: %d calls before, %d after", callsAfterBuild, got)
	}

	if ix1.Fingerprint != ix2.Fingerprint {
		t.Errorf("fingerprints differ: %q vs %q", ix1.Fingerprint, ix2.Fingerprint)
	}
	if len(ix1.Fragments) != len(ix2.Fragments) {
		t.Fatalf("fragment counts differ: %d vs %d", len(ix1.Fragments), len(ix2.Fragments))
	}

	// Query results must match within float tolerance.
	query := []float32{10, 2, 1}
	r1 := ix1.Search(query, 3)
	r2 := ix2.Search(query, 3)
	for i := range r1 {
		if r1[i].Fragment.Text != r2[i].Fragment.Text {
			t.Errorf("result %d: fragment mismatch after cache round-trip", i)
		}
		if diff := r1[i].Score - r2[i].Score; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("result %d: score drift %g after cache round-trip", i, diff)
		}
	}
}

func TestGetOrBuild_EmbeddingFailureLeavesNoPartialIndex(t *testing.T) {
	emb := &fakeEmbedder{fail: true}
	ing := &fakeIngestor{pages: []document.Page{{Number: 1, Text: "some page text"}}}

	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	b := NewBuilder(store, ing, emb, splitter.DefaultConfig(), embed.Credentials{}, testLogger())

	_, _, _, err = b.GetOrBuild(context.Background(), []byte("doc"))
	var svcErr *embed.ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected embedding ServiceError, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		t.Errorf("unexpected file left behind after failed build: %s", e.Name())
	}
}

func TestGetOrBuild_ConcurrentCallsShareOneBuild(t *testing.T) {
	emb := &fakeEmbedder{}
	ing := &fakeIngestor{pages: []document.Page{{Number: 1, Text: strings.Repeat("shared document ", 10)}}}
	b := newTestBuilder(t, ing, emb)

	raw := []byte("same bytes from all goroutines")
	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _, errs[i] = b.GetOrBuild(context.Background(), raw)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("goroutine %d: %v", i, err)
		}
	}

	// One shared build: every fragment embedded exactly once.
	frags := splitter.Split(ing.pages, splitter.Config{Window: 50, Overlap: 10})
	if got := atomic.LoadInt64(&emb.calls); got != int64(len(frags)) {
		t.Errorf("expected %d embedding calls for one shared build, got %d", len(frags), got)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "indexes"))
	if err != nil {
		t.Fatalf("store must create its directory: %v", err)
	}

	ix := &Index{
		Fingerprint: Fingerprint([]byte("doc")),
		EmbedConfig: embed.Config{Provider: embed.ProviderOllama, Model: "m", Dimension: 2},
		Fragments: []document.Fragment{
			{Text: "fragment one", Page: 1, Vector: []float32{0.25, -0.5}},
			{Text: "fragment two", Page: 2, Vector: []float32{1, 0}},
		},
	}

	if store.Exists(ix.Fingerprint) {
		t.Fatal("index must not exist before save")
	}
	if err := store.Save(ix); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !store.Exists(ix.Fingerprint) {
		t.Fatal("index must exist after save")
	}

	loaded, err := store.Load(ix.Fingerprint)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Fingerprint != ix.Fingerprint {
		t.Errorf("fingerprint mismatch: %q", loaded.Fingerprint)
	}
	if loaded.EmbedConfig != ix.EmbedConfig {
		t.Errorf("embed config mismatch: %+v", loaded.EmbedConfig)
	}
	if len(loaded.Fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(loaded.Fragments))
	}
	for i := range ix.Fragments {
		if loaded.Fragments[i].Text != ix.Fragments[i].Text {
			t.Errorf("fragment %d text mismatch", i)
		}
		if loaded.Fragments[i].Page != ix.Fragments[i].Page {
			t.Errorf("fragment %d page mismatch", i)
		}
		for j := range ix.Fragments[i].Vector {
			if loaded.Fragments[i].Vector[j] != ix.Fragments[i].Vector[j] {
				t.Errorf("fragment %d vector drifted at %d", i, j)
			}
		}
	}
}

func TestStore_MissingEmbConfigMeansAbsent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	fp := Fingerprint([]byte("doc"))
	// Only the index blob, no embconfig: must count as absent.
	if err := os.WriteFile(filepath.Join(dir, fp+indexExt), []byte("partial"), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	if store.Exists(fp) {
		t.Error("partial entry (index without embconfig) must read as absent")
	}
}
