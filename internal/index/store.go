package index

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/textqa/internal/document"
	"github.com/dgallion1/textqa/internal/embed"
)

// Two artifacts per fingerprint: the similarity-index blob and the embedding
// configuration needed to re-embed future queries. Presence of both is the
// cache-hit signal; anything less counts as absent.
const (
	indexExt     = ".index"
	embConfigExt = ".embconfig"
)

// Store persists indexes under a content-addressed directory layout. The
// directory is an explicit dependency so tests run against isolated temp
// storage.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) indexPath(fingerprint string) string {
	return filepath.Join(s.dir, fingerprint+indexExt)
}

func (s *Store) embConfigPath(fingerprint string) string {
	return filepath.Join(s.dir, fingerprint+embConfigExt)
}

// Exists reports whether a complete index is persisted for the fingerprint.
func (s *Store) Exists(fingerprint string) bool {
	if _, err := os.Stat(s.indexPath(fingerprint)); err != nil {
		return false
	}
	if _, err := os.Stat(s.embConfigPath(fingerprint)); err != nil {
		return false
	}
	return true
}

type indexBlob struct {
	Fingerprint string
	Fragments   []document.Fragment
}

// Save publishes an index atomically: both artifacts are written to temp
// files in the same directory and renamed into place only on full success.
// A failed or cancelled build leaves no partial cache entry behind.
func (s *Store) Save(ix *Index) error {
	tmpIndex, err := os.CreateTemp(s.dir, ix.Fingerprint+".index.tmp-*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpIndexPath := tmpIndex.Name()
	cleanup := func() { os.Remove(tmpIndexPath) }

	if err := gob.NewEncoder(tmpIndex).Encode(indexBlob{
		Fingerprint: ix.Fingerprint,
		Fragments:   ix.Fragments,
	}); err != nil {
		tmpIndex.Close()
		cleanup()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := tmpIndex.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp index: %w", err)
	}

	cfgData, err := json.Marshal(ix.EmbedConfig)
	if err != nil {
		cleanup()
		return fmt.Errorf("marshal embed config: %w", err)
	}
	tmpCfg, err := os.CreateTemp(s.dir, ix.Fingerprint+".embconfig.tmp-*")
	if err != nil {
		cleanup()
		return fmt.Errorf("create temp embed config: %w", err)
	}
	tmpCfgPath := tmpCfg.Name()
	if _, err := tmpCfg.Write(cfgData); err != nil {
		tmpCfg.Close()
		os.Remove(tmpCfgPath)
		cleanup()
		return fmt.Errorf("write embed config: %w", err)
	}
	if err := tmpCfg.Close(); err != nil {
		os.Remove(tmpCfgPath)
		cleanup()
		return fmt.Errorf("close temp embed config: %w", err)
	}

	// Commit. The index blob goes first; a crash between the renames leaves
	// the entry incomplete, which Exists treats as absent.
	if err := os.Rename(tmpIndexPath, s.indexPath(ix.Fingerprint)); err != nil {
		os.Remove(tmpCfgPath)
		cleanup()
		return fmt.Errorf("commit index: %w", err)
	}
	if err := os.Rename(tmpCfgPath, s.embConfigPath(ix.Fingerprint)); err != nil {
		os.Remove(tmpCfgPath)
		return fmt.Errorf("commit embed config: %w", err)
	}

	return nil
}

// Load reads a persisted index. Callers should check Exists first; a missing
// or corrupt entry returns an error and the caller rebuilds.
func (s *Store) Load(fingerprint string) (*Index, error) {
	f, err := os.Open(s.indexPath(fingerprint))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	var blob indexBlob
	if err := gob.NewDecoder(f).Decode(&blob); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	cfgData, err := os.ReadFile(s.embConfigPath(fingerprint))
	if err != nil {
		return nil, fmt.Errorf("read embed config: %w", err)
	}
	var cfg embed.Config
	if err := json.Unmarshal(cfgData, &cfg); err != nil {
		return nil, fmt.Errorf("decode embed config: %w", err)
	}

	return &Index{
		Fingerprint: blob.Fingerprint,
		EmbedConfig: cfg,
		Fragments:   blob.Fragments,
	}, nil
}
