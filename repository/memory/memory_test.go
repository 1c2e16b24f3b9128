package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hotelpro-backend/models"
	"hotelpro-backend/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBalance(t *testing.T, s *Store, qty int64) (models.Scope, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	var scope models.Scope
	var itemID uuid.UUID
	err := s.Transaction(ctx, func(tx repository.Tx) error {
		dept := &models.Department{Code: "bar", Name: "Bar"}
		if err := tx.Departments().CreateDepartment(ctx, dept); err != nil {
			return err
		}
		item := &models.InventoryItem{Name: "Cola", SKU: "COLA-330"}
		if err := tx.Inventory().CreateItem(ctx, item); err != nil {
			return err
		}
		row := &models.DepartmentInventory{InventoryItemID: item.ID, Quantity: qty}
		row.SetScope(dept.Scope())
		scope, itemID = dept.Scope(), item.ID
		return tx.Inventory().SaveBalance(ctx, row)
	})
	require.NoError(t, err)
	return scope, itemID
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	scope, itemID := seedBalance(t, s, 10)

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx repository.Tx) error {
		row, err := tx.Inventory().FindBalance(ctx, scope, itemID)
		if err != nil {
			return err
		}
		row.Quantity = 0
		if err := tx.Inventory().SaveBalance(ctx, row); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_ = s.Transaction(ctx, func(tx repository.Tx) error {
		row, err := tx.Inventory().FindBalance(ctx, scope, itemID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), row.Quantity)
		return nil
	})
}

func TestReturnedRowsAreCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	scope, itemID := seedBalance(t, s, 5)

	_ = s.Transaction(ctx, func(tx repository.Tx) error {
		row, err := tx.Inventory().FindBalance(ctx, scope, itemID)
		require.NoError(t, err)
		row.Quantity = 99

		again, err := tx.Inventory().FindBalance(ctx, scope, itemID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), again.Quantity)
		return nil
	})
}

func TestSaveBalanceEnforcesCheckConstraints(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	scope, itemID := seedBalance(t, s, 1)

	err := s.Transaction(ctx, func(tx repository.Tx) error {
		row, err := tx.Inventory().FindBalance(ctx, scope, itemID)
		if err != nil {
			return err
		}
		row.Quantity = -1
		return tx.Inventory().SaveBalance(ctx, row)
	})
	assert.ErrorIs(t, err, ErrCheckViolation)
}

func TestDuplicateIdentitiesAreRejected(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedBalance(t, s, 1)

	err := s.Transaction(ctx, func(tx repository.Tx) error {
		return tx.Departments().CreateDepartment(ctx, &models.Department{Code: "bar", Name: "Other bar"})
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	err = s.Transaction(ctx, func(tx repository.Tx) error {
		return tx.Inventory().CreateItem(ctx, &models.InventoryItem{Name: "Cola", SKU: "COLA-330"})
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestConcurrentTransactionsAreSerialised(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	scope, itemID := seedBalance(t, s, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Transaction(ctx, func(tx repository.Tx) error {
				row, err := tx.Inventory().FindBalance(ctx, scope, itemID)
				if err != nil {
					return err
				}
				row.Quantity++
				return tx.Inventory().SaveBalance(ctx, row)
			})
		}()
	}
	wg.Wait()

	_ = s.Transaction(ctx, func(tx repository.Tx) error {
		row, err := tx.Inventory().FindBalance(ctx, scope, itemID)
		require.NoError(t, err)
		assert.Equal(t, int64(50), row.Quantity)
		return nil
	})
}

func TestOrderChildrenAreLinked(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	order := &models.Order{
		OrderNumber: "ORD-20240101-abc123",
		CustomerID:  uuid.New(),
		Lines:       []models.OrderLine{{ProductName: "Cola", Quantity: 1}},
		Departments: []models.OrderDepartment{{DepartmentCode: "bar", Status: models.LineStatusPending}},
	}
	require.NoError(t, s.Transaction(ctx, func(tx repository.Tx) error {
		return tx.Orders().Create(ctx, order)
	}))

	_ = s.Transaction(ctx, func(tx repository.Tx) error {
		found, err := tx.Orders().Find(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, found.Lines, 1)
		assert.Equal(t, order.ID, found.Lines[0].OrderID)
		assert.NotEqual(t, uuid.Nil, found.Lines[0].ID)

		queue, err := tx.Orders().ListDepartmentQueue(ctx, "bar", models.LineStatusPending)
		require.NoError(t, err)
		assert.Len(t, queue, 1)
		return nil
	})
}

func TestCancelledContextSkipsTransaction(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Transaction(ctx, func(tx repository.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
