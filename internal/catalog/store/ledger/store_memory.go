package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"libris/internal/catalog/models"
	id "libris/pkg/domain"
	"libris/pkg/platform/sentinel"
)

// InMemoryStore is the test and dev implementation of the borrowing ledger.
// Item metadata for history entries is resolved through the provided
// ItemLookup so tests wire it to the in-memory item store.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.BorrowingID]*models.BorrowingRecord
	items   ItemLookup
}

// ItemLookup resolves item metadata for history entries.
type ItemLookup interface {
	FindByID(ctx context.Context, itemID id.ItemID) (*models.Item, error)
}

func NewInMemory(items ItemLookup) *InMemoryStore {
	return &InMemoryStore{
		records: make(map[id.BorrowingID]*models.BorrowingRecord),
		items:   items,
	}
}

func (s *InMemoryStore) Create(_ context.Context, record *models.BorrowingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.records[record.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, borrowingID id.BorrowingID) (*models.BorrowingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[borrowingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *InMemoryStore) MarkReturned(_ context.Context, borrowingID id.BorrowingID, now time.Time) (*models.BorrowingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[borrowingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if record.Status != models.StatusBorrowed {
		return nil, sentinel.ErrAlreadyReturned
	}
	record.Status = models.StatusReturned
	returnedAt := now
	record.ReturnedAt = &returnedAt
	copied := *record
	return &copied, nil
}

func (s *InMemoryStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []*models.HistoryEntry
	for _, record := range s.records {
		if record.UserID != userID {
			continue
		}
		entry := &models.HistoryEntry{BorrowingRecord: *record}
		if s.items != nil {
			if item, err := s.items.FindByID(ctx, record.ItemID); err == nil {
				entry.Title = item.Title
				entry.Author = item.Author
				entry.ISBN = item.ISBN
			}
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].BorrowedAt.After(entries[j].BorrowedAt)
	})
	return entries, nil
}
