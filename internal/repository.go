package internal

import (
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// PackRepository reconciles all pack sources into one canonical view and
// caches it until explicitly invalidated. The cache is correctness-relevant:
// the host must observe updates after a mutation, never before.
type PackRepository struct {
	Logger zerolog.Logger

	sources []PackSource

	view  atomic.Pointer[[]*StickerPack]
	dirty atomic.Bool

	rebuildMu sync.Mutex
}

func NewPackRepository(logger zerolog.Logger, sources ...PackSource) *PackRepository {
	repository := &PackRepository{
		Logger:  logger,
		sources: sources,
	}

	repository.dirty.Store(true)

	return repository
}

// ListPacks returns the reconciled view, recomputing it first if it has been
// invalidated. The returned slice and its packs are a read-only projection.
func (pr *PackRepository) ListPacks() []*StickerPack {
	if !pr.dirty.Load() {
		if view := pr.view.Load(); view != nil {
			return *view
		}
	}

	return pr.rebuild()
}

// FindPack returns the pack with the given identifier from the reconciled
// view, or ErrNotFound.
func (pr *PackRepository) FindPack(identifier string) (*StickerPack, error) {
	for _, pack := range pr.ListPacks() {
		if pack.Identifier == identifier {
			return pack, nil
		}
	}

	return nil, ErrNotFound
}

// Invalidate marks the cached view stale. The next read recomputes.
func (pr *PackRepository) Invalidate() {
	pr.dirty.Store(true)
}

// rebuild recomputes the view into a fresh list and atomically swaps it in,
// so a concurrent reader never observes a half-built list.
func (pr *PackRepository) rebuild() []*StickerPack {
	pr.rebuildMu.Lock()
	defer pr.rebuildMu.Unlock()

	// Another caller may have rebuilt whilst we waited.
	if !pr.dirty.Load() {
		if view := pr.view.Load(); view != nil {
			return *view
		}
	}

	// Cleared before the scan, not after: an Invalidate landing whilst the
	// scan reads pre-mutation state must mark the freshly built view stale,
	// not be lost.
	pr.dirty.Store(false)

	discoveries := make([]Discovery, 0)

	for _, source := range pr.sources {
		discoveries = append(discoveries, source.Discover()...)
	}

	packs := Reconcile(pr.Logger, discoveries)

	pr.view.Store(&packs)

	stickerdCacheRebuildCount.Inc()

	pr.Logger.Debug().
		Int("packs", len(packs)).
		Msg("Rebuilt pack repository view")

	return packs
}
