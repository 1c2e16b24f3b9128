package services

import (
	"context"

	"hotelpro-backend/events"
	"hotelpro-backend/models"
	"hotelpro-backend/repository"

	"github.com/sirupsen/logrus"
)

type CreateItemInput struct {
	Name             string `json:"name" binding:"required" validate:"required,max=120"`
	SKU              string `json:"sku" binding:"required" validate:"required,max=64"`
	Category         string `json:"category" validate:"max=60"`
	ReorderThreshold int64  `json:"reorderThreshold" validate:"gte=0"`
	UnitPrice        int64  `json:"unitPrice" validate:"gte=0"`
}

type CreateExtraInput struct {
	Name           string `json:"name" binding:"required" validate:"required,max=120"`
	Description    string `json:"description" validate:"max=500"`
	UnitPrice      int64  `json:"unitPrice" validate:"gte=0"`
	TrackInventory *bool  `json:"trackInventory"`
}

// ProductService maintains the scope-agnostic catalog of inventory items and
// extras. Stock itself lives in the Ledger.
type ProductService struct {
	base
}

func NewProductService(store repository.Store, publisher events.Publisher, log *logrus.Logger) *ProductService {
	return &ProductService{base: newBase(store, publisher, log)}
}

func (s *ProductService) CreateItem(ctx context.Context, in CreateItemInput) (*models.InventoryItem, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	item := &models.InventoryItem{
		Name:             in.Name,
		SKU:              in.SKU,
		Category:         in.Category,
		ReorderThreshold: in.ReorderThreshold,
		UnitPrice:        in.UnitPrice,
	}
	if item.Category == "" {
		item.Category = "General"
	}
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		return storeErr(tx.Inventory().CreateItem(ctx, item), "item with SKU %q", in.SKU)
	})
	if err != nil {
		return nil, s.fail("create_item", err)
	}
	return item, nil
}

func (s *ProductService) CreateExtra(ctx context.Context, in CreateExtraInput) (*models.Extra, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	extra := &models.Extra{
		Name:           in.Name,
		Description:    in.Description,
		UnitPrice:      in.UnitPrice,
		TrackInventory: true,
		IsActive:       true,
	}
	if in.TrackInventory != nil {
		extra.TrackInventory = *in.TrackInventory
	}
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		return storeErr(tx.Extras().CreateExtra(ctx, extra), "extra %q", in.Name)
	})
	if err != nil {
		return nil, s.fail("create_extra", err)
	}
	return extra, nil
}
