// Package inventory implements stock management for both product kinds:
// CRUD with name uniqueness, cursor-paginated listing, and search over
// the mirrored index.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"alltech-shop/internal/mirror"
	"alltech-shop/internal/models"
	"alltech-shop/internal/pagination"
	"alltech-shop/internal/search"
	"alltech-shop/internal/store"
	"alltech-shop/pkg/logger"
)

// ErrInvalidInput rejects a request before anything is written.
var ErrInvalidInput = errors.New("inventory: invalid input")

// Page is one window of a listed collection.
type Page struct {
	Items   []models.InventoryItem `json:"items"`
	HasMore bool                   `json:"has_more"`
	// NextAfter is the cursor for the following page; empty when exhausted.
	NextAfter string `json:"next_after,omitempty"`
}

type Service struct {
	st      store.Store
	writers map[string]*mirror.Writer
	log     *logger.Logger
}

func NewService(st store.Store, sc search.Client, log *logger.Logger) *Service {
	return &Service{
		st: st,
		writers: map[string]*mirror.Writer{
			models.Screens.Name:     mirror.NewWriter(st, sc, models.Screens, log),
			models.Accessories.Name: mirror.NewWriter(st, sc, models.Accessories, log),
		},
		log: log.WithComponent("inventory"),
	}
}

// Writer exposes the dual-write surface for a kind, shared with the
// order flows so stock adjustments hit the same index.
func (s *Service) Writer(kind models.Kind) *mirror.Writer {
	return s.writers[kind.Name]
}

func validate(item models.InventoryItem) error {
	if item.ProductName == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if item.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	return nil
}

// Add creates a new item and returns its key.
func (s *Service) Add(ctx context.Context, kind models.Kind, item models.InventoryItem) (string, error) {
	if err := validate(item); err != nil {
		return "", err
	}
	id, err := s.Writer(kind).Create(ctx, item)
	if err != nil {
		return "", err
	}
	s.log.Info("item added", "kind", kind.Name, "id", id, "product", item.ProductName)
	return id, nil
}

// Update replaces the stored fields of an existing item.
func (s *Service) Update(ctx context.Context, kind models.Kind, id string, item models.InventoryItem) error {
	if err := validate(item); err != nil {
		return err
	}
	if err := s.Writer(kind).Put(ctx, id, item); err != nil {
		return err
	}
	s.log.Info("item updated", "kind", kind.Name, "id", id)
	return nil
}

func (s *Service) Delete(ctx context.Context, kind models.Kind, id string) error {
	if err := s.Writer(kind).Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("item deleted", "kind", kind.Name, "id", id)
	return nil
}

func (s *Service) Get(ctx context.Context, kind models.Kind, id string) (models.InventoryItem, error) {
	return s.Writer(kind).Get(ctx, id)
}

// ListPage returns one page of the collection in key order, starting
// strictly after the given cursor.
func (s *Service) ListPage(ctx context.Context, kind models.Kind, after string, size int) (Page, error) {
	entries, hasMore, err := pagination.FetchPage(ctx, s.st, models.Path(kind.StorePath), after, size)
	if err != nil {
		return Page{}, err
	}
	items, err := decodeItems(entries)
	if err != nil {
		return Page{}, err
	}
	page := Page{Items: items, HasMore: hasMore}
	if hasMore && len(items) > 0 {
		page.NextAfter = items[len(items)-1].ID
	}
	return page, nil
}

// NewPager opens a live-updating pager over the collection.
func (s *Service) NewPager(ctx context.Context, kind models.Kind, size int) *pagination.Pager {
	return pagination.NewPager(ctx, s.st, models.Path(kind.StorePath), size)
}

// Search queries the kind's mirrored index.
func (s *Service) Search(ctx context.Context, kind models.Kind, query string, limit int) ([]models.IndexDocument, error) {
	return s.Writer(kind).Search(ctx, query, limit)
}

// Customers returns the distinct customer names appearing in the kind's
// receipt history, sorted for stable suggestion lists.
func (s *Service) Customers(ctx context.Context, kind models.Kind) ([]string, error) {
	entries, err := s.st.QueryByKey(ctx, models.Path(kind.ReceiptPath), "", 0)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		var order models.Order
		if err := json.Unmarshal(e.Data, &order); err != nil {
			return nil, fmt.Errorf("inventory: decode receipt %s: %w", e.Key, err)
		}
		if order.CustomerName == "" {
			continue
		}
		if _, ok := seen[order.CustomerName]; ok {
			continue
		}
		seen[order.CustomerName] = struct{}{}
		names = append(names, order.CustomerName)
	}
	sort.Strings(names)
	return names, nil
}

func decodeItems(entries []store.Entry) ([]models.InventoryItem, error) {
	items := make([]models.InventoryItem, 0, len(entries))
	for _, e := range entries {
		var item models.InventoryItem
		if err := json.Unmarshal(e.Data, &item); err != nil {
			return nil, fmt.Errorf("inventory: decode item %s: %w", e.Key, err)
		}
		item.ID = e.Key
		items = append(items, item)
	}
	return items, nil
}
