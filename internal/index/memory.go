package index

import (
	"sync"
	"time"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
)

// MemoryIndex holds the ordered link collection in memory.
// All reads return copies so callers never share the backing slice.
type MemoryIndex struct {
	mu         sync.RWMutex
	links      []domain.Link  // display order
	byID       map[string]int // ID -> position
	lastReload time.Time      // Timestamp of last full replace
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{byID: make(map[string]int)}
}

// Replace swaps the whole collection.
func (idx *MemoryIndex) Replace(links []domain.Link) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Clear and rebuild
	idx.links = append(make([]domain.Link, 0, len(links)), links...)
	idx.byID = make(map[string]int, len(links))
	for i, l := range idx.links {
		idx.byID[l.ID] = i
	}
	idx.lastReload = time.Now()
}

// All returns the collection in display order.
func (idx *MemoryIndex) All() []domain.Link {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return append(make([]domain.Link, 0, len(idx.links)), idx.links...)
}

// Get retrieves a link by ID
func (idx *MemoryIndex) Get(id string) (domain.Link, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	i, ok := idx.byID[id]
	if !ok {
		return domain.Link{}, false
	}
	return idx.links[i], true
}

// Find retrieves a link by ID, falling back to the first link with url.
func (idx *MemoryIndex) Find(id, url string) (domain.Link, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if i, ok := idx.position(id, url); ok {
		return idx.links[i], true
	}
	return domain.Link{}, false
}

// Count returns the number of links in the index
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.links)
}

// LastReload returns the timestamp of the last full replace
func (idx *MemoryIndex) LastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}

// position must be called with the lock held.
func (idx *MemoryIndex) position(id, url string) (int, bool) {
	if id != "" {
		if i, ok := idx.byID[id]; ok {
			return i, true
		}
	}
	if url == "" {
		return 0, false
	}
	for i, l := range idx.links {
		if l.URL == url {
			return i, true
		}
	}
	return 0, false
}
