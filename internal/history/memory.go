package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Kyz7/kingsbuilder/internal/models"
)

type pageKey struct {
	shop   string
	pageID string
}

// MemoryStore keeps versions in process memory. Version assignment happens
// under the store mutex, so appends never race.
type MemoryStore struct {
	mu    sync.RWMutex
	pages map[pageKey][]models.PageVersion
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pages: make(map[pageKey][]models.PageVersion),
		now:   time.Now,
	}
}

func (s *MemoryStore) Available() bool { return true }

func (s *MemoryStore) Append(ctx context.Context, in AppendInput) (*models.PageVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pageKey{shop: in.Shop, pageID: in.PageID}
	next := 1
	for _, v := range s.pages[key] {
		if v.Version >= next {
			next = v.Version + 1
		}
	}

	v := in.build(next, s.now())
	s.pages[key] = append(s.pages[key], v)
	return &v, nil
}

func (s *MemoryStore) ListByPage(ctx context.Context, pageID, shop string) ([]models.PageVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.pages[pageKey{shop: shop, pageID: pageID}]
	out := make([]models.PageVersion, len(stored))
	copy(out, stored)
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, pageID, shop string, version int) (*models.PageVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.pages[pageKey{shop: shop, pageID: pageID}] {
		if v.Version == version {
			found := v
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) DeleteAllForPage(ctx context.Context, pageID, shop string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pages, pageKey{shop: shop, pageID: pageID})
	return nil
}
