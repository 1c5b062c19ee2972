package item

import (
	"context"
	"sort"
	"strings"
	"sync"

	"libris/internal/catalog/models"
	id "libris/pkg/domain"
	"libris/pkg/platform/sentinel"
)

// InMemoryStore is the test and dev implementation of the item store. Its
// mutex gives the same check-and-mutate atomicity per call that the row
// lock gives the Postgres store.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[id.ItemID]*models.Item
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{items: make(map[id.ItemID]*models.Item)}
}

func (s *InMemoryStore) FindByID(_ context.Context, itemID id.ItemID) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]*models.Item, 0, len(s.items))
	for _, item := range s.items {
		copied := *item
		items = append(items, &copied)
	}
	sortByTitle(items)
	return items, nil
}

func (s *InMemoryStore) Search(_ context.Context, q, category string) ([]*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(q)
	var items []*models.Item
	for _, item := range s.items {
		if category != "" && item.Category != category {
			continue
		}
		if strings.Contains(strings.ToLower(item.Title), needle) ||
			strings.Contains(strings.ToLower(item.Author), needle) ||
			strings.Contains(strings.ToLower(item.ISBN), needle) {
			copied := *item
			items = append(items, &copied)
		}
	}
	sortByTitle(items)
	return items, nil
}

func (s *InMemoryStore) Create(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *InMemoryStore) DecrementAvailable(_ context.Context, itemID id.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if item.AvailableCopies <= 0 {
		return sentinel.ErrUnavailable
	}
	item.AvailableCopies--
	return nil
}

func (s *InMemoryStore) IncrementAvailable(_ context.Context, itemID id.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if item.AvailableCopies >= item.TotalCopies {
		return sentinel.ErrInvalidState
	}
	item.AvailableCopies++
	return nil
}

func sortByTitle(items []*models.Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].Title < items[j].Title })
}
