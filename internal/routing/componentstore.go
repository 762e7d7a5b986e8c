package routing

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// component is the durable unit the store persists: every peer that was
// part of an evicted, unreachable neighborhood, plus every edge (Active or
// Removed) adjacent to them. Peers are intentionally duplicated across the in-memory
// index so any one of them can rehydrate the whole neighborhood in O(1).
type component struct {
	ID    uuid.UUID
	Peers []PeerId
	Edges []Edge
}

// ComponentStore durably holds the edge neighborhoods of peers the
// routing table can no longer reach, so they can be restored verbatim if
// the peer becomes reachable again. Components are written as individual
// gob files under dir, with a manifest mapping every member peer to its
// component file so PopComponent is a single lookup regardless of which
// member peer triggers it.
type ComponentStore struct {
	mu    sync.Mutex
	dir   string
	index map[PeerId]uuid.UUID
}

const manifestFileName = "manifest.gob"

// NewComponentStore opens (or initializes) a component store rooted at
// dir, rebuilding its peer index from the on-disk manifest if one exists.
func NewComponentStore(dir string) (*ComponentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &ComponentStore{dir: dir, index: make(map[PeerId]uuid.UUID)}
	if err := s.loadManifest(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ComponentStore) manifestPath() string {
	return filepath.Join(s.dir, manifestFileName)
}

func (s *ComponentStore) componentPath(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".gob")
}

func (s *ComponentStore) loadManifest() error {
	f, err := os.Open(s.manifestPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(&s.index)
}

// persistManifest rewrites the manifest via a temp-file-then-rename swap so
// a crash mid-write never leaves a torn manifest on disk.
func (s *ComponentStore) persistManifest() error {
	tmp, err := os.CreateTemp(s.dir, "manifest-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if err := gob.NewEncoder(tmp).Encode(s.index); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.manifestPath())
}

// PushComponent persists the neighborhood of an evicted, unreachable set
// of peers. Every peer in peers can later be used to PopComponent it back.
func (s *ComponentStore) PushComponent(peers []PeerId, edges []Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	comp := component{ID: id, Peers: append([]PeerId{}, peers...), Edges: append([]Edge{}, edges...)}

	f, err := os.Create(s.componentPath(id))
	if err != nil {
		zap.L().Sugar().Errorf("create component file %s: %v", id, err)
		return err
	}
	if err := gob.NewEncoder(f).Encode(comp); err != nil {
		f.Close()
		os.Remove(s.componentPath(id))
		zap.L().Sugar().Errorf("encode component %s: %v", id, err)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	for _, p := range peers {
		s.index[p] = id
	}
	if err := s.persistManifest(); err != nil {
		zap.L().Sugar().Errorf("persist component manifest: %v", err)
		return err
	}
	zap.L().Sugar().Infof("archived component %s for %d peers", id, len(peers))
	return nil
}

// PopComponent removes and returns the stored neighborhood reachable
// through peer, if one exists. Every member peer's index entry is cleared
// as part of the same operation.
func (s *ComponentStore) PopComponent(peer PeerId) ([]Edge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.index[peer]
	if !ok {
		return nil, false, nil
	}

	f, err := os.Open(s.componentPath(id))
	if err != nil {
		zap.L().Sugar().Errorf("open component file %s: %v", id, err)
		return nil, false, err
	}
	var comp component
	decErr := gob.NewDecoder(f).Decode(&comp)
	f.Close()
	if decErr != nil {
		zap.L().Sugar().Errorf("decode component %s: %v", id, decErr)
		return nil, false, decErr
	}

	for _, p := range comp.Peers {
		delete(s.index, p)
	}
	if err := os.Remove(s.componentPath(id)); err != nil && !os.IsNotExist(err) {
		return nil, false, err
	}
	if err := s.persistManifest(); err != nil {
		zap.L().Sugar().Errorf("persist component manifest: %v", err)
		return nil, false, err
	}
	zap.L().Sugar().Infof("rehydrated component %s via peer %s", id, peer)
	return comp.Edges, true, nil
}

// HasComponent reports whether peer currently has a stored neighborhood,
// without loading or removing it.
func (s *ComponentStore) HasComponent(peer PeerId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[peer]
	return ok
}

// Len returns the number of distinct components currently stored.
func (s *ComponentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uuid.UUID]struct{}, len(s.index))
	for _, id := range s.index {
		seen[id] = struct{}{}
	}
	return len(seen)
}
