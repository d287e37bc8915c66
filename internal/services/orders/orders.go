// Package orders implements the sale flows: immediate and saved screen
// sales, accessory sales, completion of saved orders, and refunds. Every
// flow adjusts stock in the store first and mirrors the index after.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"

	"alltech-shop/internal/mirror"
	"alltech-shop/internal/models"
	"alltech-shop/internal/store"
	"alltech-shop/pkg/logger"
)

var (
	ErrInvalidInput      = errors.New("orders: invalid input")
	ErrInsufficientStock = errors.New("orders: insufficient stock")
	ErrOrderNotFound     = errors.New("orders: saved order not found")

	customerName = regexp.MustCompile(`^[a-zA-Z\s]+$`)
)

// SellScreenRequest sells exactly one screen. Save parks the order in
// the saved ledger instead of completing it; stock is reserved either way.
type SellScreenRequest struct {
	ID       string          `json:"id"`
	Price    decimal.Decimal `json:"price"`
	Customer string          `json:"customer_name"`
	Save     bool            `json:"save"`
}

// SellAccessoryRequest sells a quantity of one accessory at the given
// unit price. Accessory sales always complete immediately.
type SellAccessoryRequest struct {
	ID       string          `json:"id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Customer string          `json:"customer_name"`
}

type Service struct {
	st          store.Store
	screens     *mirror.Writer
	accessories *mirror.Writer
	log         *logger.Logger
}

func NewService(st store.Store, screens, accessories *mirror.Writer, log *logger.Logger) *Service {
	return &Service{
		st:          st,
		screens:     screens,
		accessories: accessories,
		log:         log.WithComponent("orders"),
	}
}

func validateCustomer(name string) error {
	if !customerName.MatchString(name) {
		return fmt.Errorf("%w: customer name must contain only letters and spaces", ErrInvalidInput)
	}
	return nil
}

// SellScreen reserves one unit of the screen, records the sale at the
// given price, and mirrors the new stock into the index. Nothing is
// written when stock or the customer name fail validation.
func (s *Service) SellScreen(ctx context.Context, req SellScreenRequest) (models.Order, error) {
	if err := validateCustomer(req.Customer); err != nil {
		return models.Order{}, err
	}
	if req.Price.IsNegative() {
		return models.Order{}, fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}

	item, err := s.screens.Get(ctx, req.ID)
	if err != nil {
		return models.Order{}, err
	}
	if item.Quantity < 1 {
		return models.Order{}, fmt.Errorf("%w: %s is out of stock", ErrInsufficientStock, item.ProductName)
	}

	remaining := item.Quantity - 1
	fields := map[string]interface{}{
		"product_name": item.ProductName,
		"price":        req.Price,
		"quantity":     remaining,
		"timestamp":    int64(0),
	}
	kind := s.screens.Kind()
	if err := s.st.Update(ctx, models.Path(kind.StorePath, req.ID), fields); err != nil {
		return models.Order{}, err
	}

	order := models.Order{
		ProductName:  item.ProductName,
		Price:        req.Price,
		Quantity:     1,
		CustomerName: req.Customer,
		ProductID:    req.ID,
	}

	if req.Save {
		id, err := s.st.Push(ctx, models.Path(models.PathSaved), order)
		if err != nil {
			return models.Order{}, err
		}
		order.ID = id
		s.log.Info("screen sale saved", "id", req.ID, "order", id, "customer", req.Customer)
	} else {
		id, err := s.recordCompletion(ctx, kind, order)
		if err != nil {
			return models.Order{}, err
		}
		order.ID = id
		s.log.Info("screen sold", "id", req.ID, "order", id, "customer", req.Customer)
	}

	doc := models.IndexDocument{
		ID:          req.ID,
		ProductName: item.ProductName,
		Quantity:    remaining,
		Price:       req.Price,
	}
	if err := s.screens.SyncIndex(ctx, doc); err != nil {
		return order, err
	}
	return order, nil
}

// SellAccessory sells a quantity of one accessory. The order total is the
// unit price times the quantity; the stored item keeps its own price.
func (s *Service) SellAccessory(ctx context.Context, req SellAccessoryRequest) (models.Order, error) {
	if err := validateCustomer(req.Customer); err != nil {
		return models.Order{}, err
	}
	if req.Quantity <= 0 {
		return models.Order{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if !req.Price.IsPositive() {
		return models.Order{}, fmt.Errorf("%w: unit price must be positive", ErrInvalidInput)
	}

	item, err := s.accessories.Get(ctx, req.ID)
	if err != nil {
		return models.Order{}, err
	}
	if req.Quantity > item.Quantity {
		return models.Order{}, fmt.Errorf("%w: %d of %s requested, %d in stock",
			ErrInsufficientStock, req.Quantity, item.ProductName, item.Quantity)
	}

	remaining := item.Quantity - req.Quantity
	kind := s.accessories.Kind()
	fields := map[string]interface{}{
		"quantity":  remaining,
		"timestamp": int64(0),
	}
	if err := s.st.Update(ctx, models.Path(kind.StorePath, req.ID), fields); err != nil {
		return models.Order{}, err
	}

	order := models.Order{
		ProductName:  item.ProductName,
		Price:        req.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
		Quantity:     req.Quantity,
		CustomerName: req.Customer,
		ProductID:    req.ID,
	}
	id, err := s.recordCompletion(ctx, kind, order)
	if err != nil {
		return models.Order{}, err
	}
	order.ID = id
	s.log.Info("accessory sold", "id", req.ID, "order", id, "quantity", req.Quantity)

	doc := models.IndexDocument{
		ID:          req.ID,
		ProductName: item.ProductName,
		Quantity:    remaining,
		Price:       item.Price,
	}
	if err := s.accessories.SyncIndex(ctx, doc); err != nil {
		return order, err
	}
	return order, nil
}

// recordCompletion writes the order into the kind's completed ledger and
// its receipt history.
func (s *Service) recordCompletion(ctx context.Context, kind models.Kind, order models.Order) (string, error) {
	id, err := s.st.Push(ctx, models.Path(kind.CompletePath), order)
	if err != nil {
		return "", err
	}
	if _, err := s.st.Push(ctx, models.Path(kind.ReceiptPath), order); err != nil {
		return id, err
	}
	return id, nil
}

// ListSaved returns the parked screen orders, newest first.
func (s *Service) ListSaved(ctx context.Context) ([]models.Order, error) {
	entries, err := s.st.QueryByKey(ctx, models.Path(models.PathSaved), "", 0)
	if err != nil {
		return nil, err
	}
	saved := make([]models.Order, 0, len(entries))
	for _, e := range entries {
		var order models.Order
		if err := json.Unmarshal(e.Data, &order); err != nil {
			return nil, fmt.Errorf("orders: decode saved %s: %w", e.Key, err)
		}
		order.ID = e.Key
		saved = append(saved, order)
	}
	sort.SliceStable(saved, func(i, j int) bool {
		return saved[i].Timestamp > saved[j].Timestamp
	})
	return saved, nil
}

func (s *Service) savedOrder(ctx context.Context, id string) (models.Order, error) {
	var order models.Order
	ok, err := s.st.Get(ctx, models.Path(models.PathSaved, id), &order)
	if err != nil {
		return models.Order{}, err
	}
	if !ok {
		return models.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	order.ID = id
	return order, nil
}

// Complete finalizes a saved order. Stock was already adjusted and
// indexed when the order was saved, so only the ledgers change here.
func (s *Service) Complete(ctx context.Context, id string) (models.Order, error) {
	order, err := s.savedOrder(ctx, id)
	if err != nil {
		return models.Order{}, err
	}

	record := order
	record.ID = ""
	record.Timestamp = 0
	kind := s.screens.Kind()
	completedID, err := s.recordCompletion(ctx, kind, record)
	if err != nil {
		return models.Order{}, err
	}
	if err := s.st.Delete(ctx, models.Path(models.PathSaved, id)); err != nil {
		return models.Order{}, err
	}
	record.ID = completedID
	s.log.Info("saved order completed", "order", id, "completed", completedID)
	return record, nil
}

// Refund cancels a saved order and returns its quantity to stock. The
// source item must still exist; otherwise nothing is written.
func (s *Service) Refund(ctx context.Context, id string) error {
	order, err := s.savedOrder(ctx, id)
	if err != nil {
		return err
	}

	item, err := s.screens.Get(ctx, order.ProductID)
	if err != nil {
		return err
	}

	restored := item.Quantity + order.Quantity
	kind := s.screens.Kind()
	fields := map[string]interface{}{
		"quantity":  restored,
		"timestamp": int64(0),
	}
	if err := s.st.Update(ctx, models.Path(kind.StorePath, order.ProductID), fields); err != nil {
		return err
	}

	doc := models.IndexDocument{
		ID:          order.ProductID,
		ProductName: item.ProductName,
		Quantity:    restored,
		Price:       item.Price,
	}
	if err := s.screens.SyncIndex(ctx, doc); err != nil {
		return err
	}

	if err := s.st.Delete(ctx, models.Path(models.PathSaved, id)); err != nil {
		return err
	}
	s.log.Info("saved order refunded", "order", id, "product", order.ProductID, "restored", restored)
	return nil
}
