package services

import (
	"context"
	"errors"

	"hotelpro-backend/apperror"
	"hotelpro-backend/events"
	"hotelpro-backend/models"
	"hotelpro-backend/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Balance is a read of one ledger row.
type Balance struct {
	Quantity  int64 `json:"quantity"`
	Reserved  int64 `json:"reserved"`
	Available int64 `json:"available"`
}

// untrackedBalance is what an extra with TrackInventory=false always reads as.
var untrackedBalance = Balance{Quantity: 1, Reserved: 0, Available: 1}

// Ledger holds per-scope stock of inventory items and extras. Every method
// runs in its own transaction; the package-level helpers below do the same
// work inside a caller's transaction.
type Ledger struct {
	base
}

func NewLedger(store repository.Store, publisher events.Publisher, log *logrus.Logger) *Ledger {
	return &Ledger{base: newBase(store, publisher, log)}
}

func (l *Ledger) GetBalance(ctx context.Context, scope models.Scope, itemID uuid.UUID) (Balance, error) {
	var b Balance
	err := l.store.Transaction(ctx, func(tx repository.Tx) error {
		row, err := tx.Inventory().FindBalance(ctx, scope, itemID)
		if err != nil {
			return storeErr(err, "stock of item %s in %s", itemID, scope)
		}
		b = Balance{Quantity: row.Quantity, Reserved: row.Reserved, Available: row.Available()}
		return nil
	})
	return b, err
}

func (l *Ledger) Reserve(ctx context.Context, scope models.Scope, itemID uuid.UUID, qty int64) error {
	return l.run(ctx, "reserve", func(tx repository.Tx) error {
		return reserveInventory(ctx, tx, scope, itemID, qty)
	})
}

func (l *Ledger) Commit(ctx context.Context, scope models.Scope, itemID uuid.UUID, qty int64) error {
	return l.run(ctx, "commit", func(tx repository.Tx) error {
		return commitInventory(ctx, tx, scope, itemID, qty)
	})
}

func (l *Ledger) Release(ctx context.Context, scope models.Scope, itemID uuid.UUID, qty int64) error {
	return l.run(ctx, "release", func(tx repository.Tx) error {
		return releaseInventory(ctx, tx, scope, itemID, qty)
	})
}

func (l *Ledger) Transfer(ctx context.Context, from, to models.Scope, itemID uuid.UUID, qty int64) error {
	return l.run(ctx, "transfer", func(tx repository.Tx) error {
		return transferInventory(ctx, tx, from, to, itemID, qty)
	})
}

// Receive books goods in, creating the ledger row when the scope has none.
// A nil unitPrice keeps the row's price, or the item's for a new row.
func (l *Ledger) Receive(ctx context.Context, scope models.Scope, itemID uuid.UUID, qty int64, unitPrice *int64) (Balance, error) {
	var b Balance
	err := l.run(ctx, "receive", func(tx repository.Tx) error {
		row, err := receiveInventory(ctx, tx, scope, itemID, qty, unitPrice)
		if err != nil {
			return err
		}
		b = Balance{Quantity: row.Quantity, Reserved: row.Reserved, Available: row.Available()}
		return nil
	})
	return b, err
}

func (l *Ledger) GetExtraBalance(ctx context.Context, scope models.Scope, extraID uuid.UUID) (Balance, error) {
	var b Balance
	err := l.store.Transaction(ctx, func(tx repository.Tx) error {
		extra, err := tx.Extras().FindExtra(ctx, extraID)
		if err != nil {
			return storeErr(err, "extra %s", extraID)
		}
		row, err := tx.Extras().FindBalance(ctx, scope, extraID)
		if err != nil {
			return storeErr(err, "extra %s in %s", extraID, scope)
		}
		if !extra.TrackInventory {
			b = untrackedBalance
			return nil
		}
		b = Balance{Quantity: row.Quantity, Reserved: row.Reserved, Available: row.Available()}
		return nil
	})
	return b, err
}

func (l *Ledger) ReserveExtra(ctx context.Context, scope models.Scope, extraID uuid.UUID, qty int64) error {
	return l.run(ctx, "reserve_extra", func(tx repository.Tx) error {
		return reserveExtra(ctx, tx, scope, extraID, qty)
	})
}

func (l *Ledger) CommitExtra(ctx context.Context, scope models.Scope, extraID uuid.UUID, qty int64) error {
	return l.run(ctx, "commit_extra", func(tx repository.Tx) error {
		return commitExtra(ctx, tx, scope, extraID, qty)
	})
}

func (l *Ledger) ReleaseExtra(ctx context.Context, scope models.Scope, extraID uuid.UUID, qty int64) error {
	return l.run(ctx, "release_extra", func(tx repository.Tx) error {
		return releaseExtra(ctx, tx, scope, extraID, qty)
	})
}

func (l *Ledger) TransferExtra(ctx context.Context, from, to models.Scope, extraID uuid.UUID, qty int64) error {
	return l.run(ctx, "transfer_extra", func(tx repository.Tx) error {
		return transferExtra(ctx, tx, from, to, extraID, qty)
	})
}

func (l *Ledger) ReceiveExtra(ctx context.Context, scope models.Scope, extraID uuid.UUID, qty int64, unitPrice *int64) (Balance, error) {
	var b Balance
	err := l.run(ctx, "receive_extra", func(tx repository.Tx) error {
		extra, row, err := receiveExtra(ctx, tx, scope, extraID, qty, unitPrice)
		if err != nil {
			return err
		}
		if !extra.TrackInventory {
			b = untrackedBalance
			return nil
		}
		b = Balance{Quantity: row.Quantity, Reserved: row.Reserved, Available: row.Available()}
		return nil
	})
	return b, err
}

func (l *Ledger) run(ctx context.Context, op string, fn func(tx repository.Tx) error) error {
	if err := l.store.Transaction(ctx, fn); err != nil {
		return l.fail(op, err)
	}
	return nil
}

func positive(qty int64) error {
	if qty <= 0 {
		return apperror.Validation("quantity must be greater than zero")
	}
	return nil
}

func reserveInventory(ctx context.Context, tx repository.Tx, scope models.Scope, itemID uuid.UUID, qty int64) error {
	if err := positive(qty); err != nil {
		return err
	}
	row, err := tx.Inventory().FindBalance(ctx, scope, itemID)
	if err != nil {
		return storeErr(err, "stock of item %s in %s", itemID, scope)
	}
	if row.Available() < qty {
		return apperror.InsufficientStock("only %d of item %s available in %s, %d requested",
			row.Available(), itemID, scope, qty)
	}
	row.Reserved += qty
	return storeErr(tx.Inventory().SaveBalance(ctx, row), "stock row")
}

func commitInventory(ctx context.Context, tx repository.Tx, scope models.Scope, itemID uuid.UUID, qty int64) error {
	if err := positive(qty); err != nil {
		return err
	}
	row, err := tx.Inventory().FindBalance(ctx, scope, itemID)
	if err != nil {
		return storeErr(err, "stock of item %s in %s", itemID, scope)
	}
	if row.Quantity < qty || row.Reserved < qty {
		return apperror.InvariantViolation("commit of %d would leave item %s in %s at quantity %d, reserved %d",
			qty, itemID, scope, row.Quantity-qty, row.Reserved-qty)
	}
	row.Quantity -= qty
	row.Reserved -= qty
	return storeErr(tx.Inventory().SaveBalance(ctx, row), "stock row")
}

func releaseInventory(ctx context.Context, tx repository.Tx, scope models.Scope, itemID uuid.UUID, qty int64) error {
	if err := positive(qty); err != nil {
		return err
	}
	row, err := tx.Inventory().FindBalance(ctx, scope, itemID)
	if err != nil {
		return storeErr(err, "stock of item %s in %s", itemID, scope)
	}
	if row.Reserved < qty {
		return apperror.InvariantViolation("release of %d exceeds the %d reserved for item %s in %s",
			qty, row.Reserved, itemID, scope)
	}
	row.Reserved -= qty
	return storeErr(tx.Inventory().SaveBalance(ctx, row), "stock row")
}

// lockOrder returns the two scopes in the order their rows are locked, so two
// opposite transfers can never wait on each other.
func lockOrder(a, b models.Scope) [2]models.Scope {
	if b.Key() < a.Key() {
		return [2]models.Scope{b, a}
	}
	return [2]models.Scope{a, b}
}

// transferInventory moves available stock between two scopes. Reserved stock
// stays where it is, so the source can never end up with reserved > quantity.
func transferInventory(ctx context.Context, tx repository.Tx, from, to models.Scope, itemID uuid.UUID, qty int64) error {
	if err := positive(qty); err != nil {
		return err
	}
	if from.Key() == to.Key() {
		return apperror.Validation("source and destination are the same scope")
	}

	rows := map[string]*models.DepartmentInventory{}
	for _, scope := range lockOrder(from, to) {
		row, err := tx.Inventory().FindBalance(ctx, scope, itemID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return storeErr(err, "stock row")
		}
		rows[scope.Key()] = row
	}

	src, ok := rows[from.Key()]
	if !ok {
		return apperror.NotFound("stock of item %s in %s not found", itemID, from)
	}
	if src.Available() < qty {
		return apperror.InsufficientStock("only %d of item %s available in %s, %d requested",
			src.Available(), itemID, from, qty)
	}
	dst, ok := rows[to.Key()]
	if !ok {
		dst = &models.DepartmentInventory{InventoryItemID: itemID, UnitPrice: src.UnitPrice}
		dst.SetScope(to)
	}

	src.Quantity -= qty
	dst.Quantity += qty
	if err := tx.Inventory().SaveBalance(ctx, src); err != nil {
		return storeErr(err, "stock row")
	}
	return storeErr(tx.Inventory().SaveBalance(ctx, dst), "stock row")
}

func receiveInventory(ctx context.Context, tx repository.Tx, scope models.Scope, itemID uuid.UUID, qty int64, unitPrice *int64) (*models.DepartmentInventory, error) {
	if err := positive(qty); err != nil {
		return nil, err
	}
	if unitPrice != nil && *unitPrice < 0 {
		return nil, apperror.Validation("unit price must not be negative")
	}
	item, err := tx.Inventory().FindItem(ctx, itemID)
	if err != nil {
		return nil, storeErr(err, "inventory item %s", itemID)
	}
	row, err := tx.Inventory().FindBalance(ctx, scope, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		row = &models.DepartmentInventory{InventoryItemID: itemID, UnitPrice: item.UnitPrice}
		row.SetScope(scope)
	} else if err != nil {
		return nil, storeErr(err, "stock row")
	}
	row.Quantity += qty
	if unitPrice != nil {
		row.UnitPrice = *unitPrice
	}
	if err := tx.Inventory().SaveBalance(ctx, row); err != nil {
		return nil, storeErr(err, "stock row")
	}
	return row, nil
}

func findExtra(ctx context.Context, tx repository.Tx, extraID uuid.UUID) (*models.Extra, error) {
	extra, err := tx.Extras().FindExtra(ctx, extraID)
	if err != nil {
		return nil, storeErr(err, "extra %s", extraID)
	}
	return extra, nil
}

func reserveExtra(ctx context.Context, tx repository.Tx, scope models.Scope, extraID uuid.UUID, qty int64) error {
	extra, err := findExtra(ctx, tx, extraID)
	if err != nil || !extra.TrackInventory {
		return err
	}
	if err := positive(qty); err != nil {
		return err
	}
	row, err := tx.Extras().FindBalance(ctx, scope, extraID)
	if err != nil {
		return storeErr(err, "extra %s in %s", extraID, scope)
	}
	if row.Available() < qty {
		return apperror.InsufficientStock("only %d of extra %q available in %s, %d requested",
			row.Available(), extra.Name, scope, qty)
	}
	row.Reserved += qty
	return storeErr(tx.Extras().SaveBalance(ctx, row), "extra row")
}

func commitExtra(ctx context.Context, tx repository.Tx, scope models.Scope, extraID uuid.UUID, qty int64) error {
	extra, err := findExtra(ctx, tx, extraID)
	if err != nil || !extra.TrackInventory {
		return err
	}
	if err := positive(qty); err != nil {
		return err
	}
	row, err := tx.Extras().FindBalance(ctx, scope, extraID)
	if err != nil {
		return storeErr(err, "extra %s in %s", extraID, scope)
	}
	if row.Quantity < qty || row.Reserved < qty {
		return apperror.InvariantViolation("commit of %d would leave extra %q in %s at quantity %d, reserved %d",
			qty, extra.Name, scope, row.Quantity-qty, row.Reserved-qty)
	}
	row.Quantity -= qty
	row.Reserved -= qty
	return storeErr(tx.Extras().SaveBalance(ctx, row), "extra row")
}

func releaseExtra(ctx context.Context, tx repository.Tx, scope models.Scope, extraID uuid.UUID, qty int64) error {
	extra, err := findExtra(ctx, tx, extraID)
	if err != nil || !extra.TrackInventory {
		return err
	}
	if err := positive(qty); err != nil {
		return err
	}
	row, err := tx.Extras().FindBalance(ctx, scope, extraID)
	if err != nil {
		return storeErr(err, "extra %s in %s", extraID, scope)
	}
	if row.Reserved < qty {
		return apperror.InvariantViolation("release of %d exceeds the %d reserved for extra %q in %s",
			qty, row.Reserved, extra.Name, scope)
	}
	row.Reserved -= qty
	return storeErr(tx.Extras().SaveBalance(ctx, row), "extra row")
}

// transferExtra moves quantity for tracked extras. For untracked ones it moves
// the assignment itself and qty is ignored.
func transferExtra(ctx context.Context, tx repository.Tx, from, to models.Scope, extraID uuid.UUID, qty int64) error {
	if from.Key() == to.Key() {
		return apperror.Validation("source and destination are the same scope")
	}
	extra, err := findExtra(ctx, tx, extraID)
	if err != nil {
		return err
	}
	if extra.TrackInventory {
		if err := positive(qty); err != nil {
			return err
		}
	}

	rows := map[string]*models.DepartmentExtra{}
	for _, scope := range lockOrder(from, to) {
		row, err := tx.Extras().FindBalance(ctx, scope, extraID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return storeErr(err, "extra row")
		}
		rows[scope.Key()] = row
	}
	src, ok := rows[from.Key()]
	if !ok {
		return apperror.NotFound("extra %q in %s not found", extra.Name, from)
	}
	dst, dstExists := rows[to.Key()]

	if !extra.TrackInventory {
		if dstExists {
			return apperror.Conflict("extra %q is already assigned to %s", extra.Name, to)
		}
		src.SetScope(to)
		return storeErr(tx.Extras().SaveBalance(ctx, src), "extra row")
	}

	if src.Available() < qty {
		return apperror.InsufficientStock("only %d of extra %q available in %s, %d requested",
			src.Available(), extra.Name, from, qty)
	}
	if !dstExists {
		dst = &models.DepartmentExtra{ExtraID: extraID, UnitPrice: src.UnitPrice}
		dst.SetScope(to)
	}
	src.Quantity -= qty
	dst.Quantity += qty
	if err := tx.Extras().SaveBalance(ctx, src); err != nil {
		return storeErr(err, "extra row")
	}
	return storeErr(tx.Extras().SaveBalance(ctx, dst), "extra row")
}

// receiveExtra books tracked extras in like inventory. For untracked extras it
// only makes sure the scope has the assignment, pinned at quantity 1.
func receiveExtra(ctx context.Context, tx repository.Tx, scope models.Scope, extraID uuid.UUID, qty int64, unitPrice *int64) (*models.Extra, *models.DepartmentExtra, error) {
	extra, err := findExtra(ctx, tx, extraID)
	if err != nil {
		return nil, nil, err
	}
	if extra.TrackInventory {
		if err := positive(qty); err != nil {
			return nil, nil, err
		}
	}
	if unitPrice != nil && *unitPrice < 0 {
		return nil, nil, apperror.Validation("unit price must not be negative")
	}
	row, err := tx.Extras().FindBalance(ctx, scope, extraID)
	if errors.Is(err, repository.ErrNotFound) {
		row = &models.DepartmentExtra{ExtraID: extraID, UnitPrice: extra.UnitPrice}
		row.SetScope(scope)
	} else if err != nil {
		return nil, nil, storeErr(err, "extra row")
	}
	if extra.TrackInventory {
		row.Quantity += qty
	} else {
		row.Quantity = 1
	}
	if unitPrice != nil {
		row.UnitPrice = *unitPrice
	}
	if err := tx.Extras().SaveBalance(ctx, row); err != nil {
		return nil, nil, storeErr(err, "extra row")
	}
	return extra, row, nil
}
