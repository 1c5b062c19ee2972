package service

import (
	"context"
	"errors"
	"strings"

	"libris/internal/catalog/models"
	"libris/pkg/platform/sentinel"

	id "libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
)

// GetItem fetches a single catalog item.
func (s *Service) GetItem(ctx context.Context, itemID id.ItemID) (*models.Item, error) {
	if itemID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "book id is required")
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "book not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up book")
	}
	return item, nil
}

// ListItems returns the full catalog, title-sorted.
func (s *Service) ListItems(ctx context.Context) ([]*models.Item, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list books")
	}
	return items, nil
}

// SearchItems matches the query against title, author, and ISBN,
// case-insensitively, optionally narrowed to one category.
func (s *Service) SearchItems(ctx context.Context, q, category string) ([]*models.Item, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "search query is required")
	}
	items, err := s.items.Search(ctx, q, category)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search books")
	}
	return items, nil
}
