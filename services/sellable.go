package services

import (
	"context"

	"hotelpro-backend/apperror"
	"hotelpro-backend/models"
	"hotelpro-backend/repository"

	"github.com/google/uuid"
)

// Sellable is anything an order line can sell. Each product table gets an
// adapter; callers resolve once and never branch on the product type again.
type Sellable interface {
	ID() uuid.UUID
	Type() models.ProductType
	Name() string
	UnitPrice() int64
	// Tracked is false for extras that never run out.
	Tracked() bool
	Availability(ctx context.Context, tx repository.Tx, scope models.Scope) (Balance, error)
	Reserve(ctx context.Context, tx repository.Tx, scope models.Scope, qty int64) error
	Commit(ctx context.Context, tx repository.Tx, scope models.Scope, qty int64) error
	Release(ctx context.Context, tx repository.Tx, scope models.Scope, qty int64) error
}

func resolveSellable(ctx context.Context, tx repository.Tx, productType models.ProductType, id uuid.UUID) (Sellable, error) {
	switch productType {
	case models.ProductTypeInventory, "":
		item, err := tx.Inventory().FindItem(ctx, id)
		if err != nil {
			return nil, storeErr(err, "inventory item %s", id)
		}
		return inventorySellable{item: item}, nil
	case models.ProductTypeExtra:
		extra, err := tx.Extras().FindExtra(ctx, id)
		if err != nil {
			return nil, storeErr(err, "extra %s", id)
		}
		return extraSellable{extra: extra}, nil
	}
	return nil, apperror.Validation("unknown product type %q", productType)
}

type inventorySellable struct {
	item *models.InventoryItem
}

func (s inventorySellable) ID() uuid.UUID            { return s.item.ID }
func (s inventorySellable) Type() models.ProductType { return models.ProductTypeInventory }
func (s inventorySellable) Name() string             { return s.item.Name }
func (s inventorySellable) UnitPrice() int64         { return s.item.UnitPrice }
func (s inventorySellable) Tracked() bool            { return true }

func (s inventorySellable) Availability(ctx context.Context, tx repository.Tx, scope models.Scope) (Balance, error) {
	row, err := tx.Inventory().FindBalance(ctx, scope, s.item.ID)
	if err != nil {
		return Balance{}, storeErr(err, "stock of item %s in %s", s.item.ID, scope)
	}
	return Balance{Quantity: row.Quantity, Reserved: row.Reserved, Available: row.Available()}, nil
}

func (s inventorySellable) Reserve(ctx context.Context, tx repository.Tx, scope models.Scope, qty int64) error {
	return reserveInventory(ctx, tx, scope, s.item.ID, qty)
}

func (s inventorySellable) Commit(ctx context.Context, tx repository.Tx, scope models.Scope, qty int64) error {
	return commitInventory(ctx, tx, scope, s.item.ID, qty)
}

func (s inventorySellable) Release(ctx context.Context, tx repository.Tx, scope models.Scope, qty int64) error {
	return releaseInventory(ctx, tx, scope, s.item.ID, qty)
}

type extraSellable struct {
	extra *models.Extra
}

func (s extraSellable) ID() uuid.UUID            { return s.extra.ID }
func (s extraSellable) Type() models.ProductType { return models.ProductTypeExtra }
func (s extraSellable) Name() string             { return s.extra.Name }
func (s extraSellable) UnitPrice() int64         { return s.extra.UnitPrice }
func (s extraSellable) Tracked() bool            { return s.extra.TrackInventory }

func (s extraSellable) Availability(ctx context.Context, tx repository.Tx, scope models.Scope) (Balance, error) {
	if !s.extra.TrackInventory {
		return untrackedBalance, nil
	}
	row, err := tx.Extras().FindBalance(ctx, scope, s.extra.ID)
	if err != nil {
		return Balance{}, storeErr(err, "extra %s in %s", s.extra.ID, scope)
	}
	return Balance{Quantity: row.Quantity, Reserved: row.Reserved, Available: row.Available()}, nil
}

func (s extraSellable) Reserve(ctx context.Context, tx repository.Tx, scope models.Scope, qty int64) error {
	return reserveExtra(ctx, tx, scope, s.extra.ID, qty)
}

func (s extraSellable) Commit(ctx context.Context, tx repository.Tx, scope models.Scope, qty int64) error {
	return commitExtra(ctx, tx, scope, s.extra.ID, qty)
}

func (s extraSellable) Release(ctx context.Context, tx repository.Tx, scope models.Scope, qty int64) error {
	return releaseExtra(ctx, tx, scope, s.extra.ID, qty)
}
