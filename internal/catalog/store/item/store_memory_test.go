package item

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"libris/internal/catalog/models"
	id "libris/pkg/domain"
	"libris/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
}

func (s *InMemoryStoreSuite) seed(title, author, isbn, category string, total, available int) *models.Item {
	item := &models.Item{
		ID:              id.ItemID(uuid.New()),
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		Category:        category,
		TotalCopies:     total,
		AvailableCopies: available,
	}
	s.Require().NoError(s.store.Create(s.ctx, item))
	return item
}

func (s *InMemoryStoreSuite) TestFindByIDNotFound() {
	_, err := s.store.FindByID(s.ctx, id.ItemID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestFindByIDReturnsCopy() {
	seeded := s.seed("The Go Programming Language", "Donovan", "978-0134190440", "programming", 3, 3)

	item, err := s.store.FindByID(s.ctx, seeded.ID)
	s.Require().NoError(err)
	item.AvailableCopies = 0

	again, err := s.store.FindByID(s.ctx, seeded.ID)
	s.Require().NoError(err)
	s.Equal(3, again.AvailableCopies)
}

func (s *InMemoryStoreSuite) TestListSortedByTitle() {
	s.seed("Zorba the Greek", "Kazantzakis", "978-0684825540", "fiction", 1, 1)
	s.seed("Anna Karenina", "Tolstoy", "978-0143035008", "fiction", 1, 1)

	items, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal("Anna Karenina", items[0].Title)
	s.Equal("Zorba the Greek", items[1].Title)
}

func (s *InMemoryStoreSuite) TestSearchMatchesTitleAuthorISBN() {
	s.seed("The Go Programming Language", "Donovan", "978-0134190440", "programming", 3, 3)
	s.seed("Clean Code", "Martin", "978-0132350884", "programming", 2, 2)

	byTitle, err := s.store.Search(s.ctx, "go programming", "")
	s.Require().NoError(err)
	s.Len(byTitle, 1)

	byAuthor, err := s.store.Search(s.ctx, "martin", "")
	s.Require().NoError(err)
	s.Len(byAuthor, 1)

	byISBN, err := s.store.Search(s.ctx, "0134190440", "")
	s.Require().NoError(err)
	s.Len(byISBN, 1)
}

func (s *InMemoryStoreSuite) TestSearchCategoryFilter() {
	s.seed("The Go Programming Language", "Donovan", "978-0134190440", "programming", 3, 3)
	s.seed("Go Down, Moses", "Faulkner", "978-0679732174", "fiction", 1, 1)

	items, err := s.store.Search(s.ctx, "go", "fiction")
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("Go Down, Moses", items[0].Title)
}

func (s *InMemoryStoreSuite) TestDecrementAvailable() {
	seeded := s.seed("Clean Code", "Martin", "978-0132350884", "programming", 2, 1)

	s.Require().NoError(s.store.DecrementAvailable(s.ctx, seeded.ID))

	item, err := s.store.FindByID(s.ctx, seeded.ID)
	s.Require().NoError(err)
	s.Equal(0, item.AvailableCopies)

	s.ErrorIs(s.store.DecrementAvailable(s.ctx, seeded.ID), sentinel.ErrUnavailable)
}

func (s *InMemoryStoreSuite) TestDecrementAvailableNotFound() {
	s.ErrorIs(s.store.DecrementAvailable(s.ctx, id.ItemID(uuid.New())), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestIncrementAvailable() {
	seeded := s.seed("Clean Code", "Martin", "978-0132350884", "programming", 2, 1)

	s.Require().NoError(s.store.IncrementAvailable(s.ctx, seeded.ID))

	item, err := s.store.FindByID(s.ctx, seeded.ID)
	s.Require().NoError(err)
	s.Equal(2, item.AvailableCopies)
}

func (s *InMemoryStoreSuite) TestIncrementAvailableAtCapacity() {
	seeded := s.seed("Clean Code", "Martin", "978-0132350884", "programming", 2, 2)

	s.ErrorIs(s.store.IncrementAvailable(s.ctx, seeded.ID), sentinel.ErrInvalidState)

	item, err := s.store.FindByID(s.ctx, seeded.ID)
	s.Require().NoError(err)
	s.Equal(2, item.AvailableCopies)
}

func (s *InMemoryStoreSuite) TestConcurrentDecrementLastCopy() {
	seeded := s.seed("Clean Code", "Martin", "978-0132350884", "programming", 5, 1)

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.store.DecrementAvailable(s.ctx, seeded.ID)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			s.ErrorIs(err, sentinel.ErrUnavailable)
		}
	}
	s.Equal(1, won)

	item, err := s.store.FindByID(s.ctx, seeded.ID)
	s.Require().NoError(err)
	s.Equal(0, item.AvailableCopies)
}
