package services

import (
	"errors"
	"sync/atomic"
	"testing"

	"hotelpro-backend/apperror"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLedgerReserveCommitRelease(t *testing.T) {
	f := newFixture(t)
	scope := f.department("bar")
	itemID := f.item("COLA", 300)
	f.stock(scope, itemID, 10)

	require.NoError(t, f.ledger.Reserve(f.ctx, scope, itemID, 3))
	assert.Equal(t, Balance{Quantity: 10, Reserved: 3, Available: 7}, f.balance(scope, itemID))

	require.NoError(t, f.ledger.Commit(f.ctx, scope, itemID, 2))
	assert.Equal(t, Balance{Quantity: 8, Reserved: 1, Available: 7}, f.balance(scope, itemID))

	require.NoError(t, f.ledger.Release(f.ctx, scope, itemID, 1))
	assert.Equal(t, Balance{Quantity: 8, Reserved: 0, Available: 8}, f.balance(scope, itemID))
}

func TestLedgerReserveBeyondAvailable(t *testing.T) {
	f := newFixture(t)
	scope := f.department("bar")
	itemID := f.item("COLA", 300)
	f.stock(scope, itemID, 2)

	err := f.ledger.Reserve(f.ctx, scope, itemID, 3)
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Equal(t, Balance{Quantity: 2, Reserved: 0, Available: 2}, f.balance(scope, itemID))
}

func TestLedgerRejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture(t)
	scope := f.department("bar")
	itemID := f.item("COLA", 300)
	f.stock(scope, itemID, 2)

	assert.ErrorIs(t, f.ledger.Reserve(f.ctx, scope, itemID, 0), apperror.ErrValidation)
	assert.ErrorIs(t, f.ledger.Commit(f.ctx, scope, itemID, -1), apperror.ErrValidation)
	_, err := f.ledger.Receive(f.ctx, scope, itemID, 0, nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestLedgerReleaseMoreThanReserved(t *testing.T) {
	f := newFixture(t)
	scope := f.department("bar")
	itemID := f.item("COLA", 300)
	f.stock(scope, itemID, 5)
	require.NoError(t, f.ledger.Reserve(f.ctx, scope, itemID, 1))

	err := f.ledger.Release(f.ctx, scope, itemID, 2)
	assert.ErrorIs(t, err, apperror.ErrInvariantViolation)
	assert.Equal(t, Balance{Quantity: 5, Reserved: 1, Available: 4}, f.balance(scope, itemID))
}

func TestLedgerCommitBeyondQuantity(t *testing.T) {
	f := newFixture(t)
	scope := f.department("bar")
	itemID := f.item("COLA", 300)
	f.stock(scope, itemID, 2)

	err := f.ledger.Commit(f.ctx, scope, itemID, 3)
	assert.ErrorIs(t, err, apperror.ErrInvariantViolation)
	assert.Equal(t, Balance{Quantity: 2, Reserved: 0, Available: 2}, f.balance(scope, itemID))

	require.NoError(t, f.ledger.Reserve(f.ctx, scope, itemID, 2))
	err = f.ledger.Commit(f.ctx, scope, itemID, 3)
	assert.ErrorIs(t, err, apperror.ErrInvariantViolation)
	assert.Equal(t, Balance{Quantity: 2, Reserved: 2, Available: 0}, f.balance(scope, itemID))
}

func TestLedgerLogsInvariantViolationToItsLogger(t *testing.T) {
	f := newFixture(t)
	scope := f.department("bar")
	itemID := f.item("COLA", 300)
	f.stock(scope, itemID, 2)

	log, hook := test.NewNullLogger()
	ledger := NewLedger(f.store, f.events, log)
	assert.ErrorIs(t, ledger.Commit(f.ctx, scope, itemID, 3), apperror.ErrInvariantViolation)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, true, entry.Data["invariant_violation"])
}

func TestLedgerCommitExtraBeyondQuantity(t *testing.T) {
	f := newFixture(t)
	spa := f.department("spa")
	towel := f.extra("Towel", 200, true)
	_, err := f.ledger.ReceiveExtra(f.ctx, spa, towel, 2, nil)
	require.NoError(t, err)

	err = f.ledger.CommitExtra(f.ctx, spa, towel, 3)
	assert.ErrorIs(t, err, apperror.ErrInvariantViolation)
	b, err := f.ledger.GetExtraBalance(f.ctx, spa, towel)
	require.NoError(t, err)
	assert.Equal(t, Balance{Quantity: 2, Reserved: 0, Available: 2}, b)
}

func TestLedgerMissingRow(t *testing.T) {
	f := newFixture(t)
	scope := f.department("bar")
	itemID := f.item("COLA", 300)

	_, err := f.ledger.GetBalance(f.ctx, scope, itemID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, f.ledger.Reserve(f.ctx, scope, itemID, 1), apperror.ErrNotFound)
}

func TestLedgerTransferConservesStock(t *testing.T) {
	f := newFixture(t)
	bar := f.department("bar")
	kitchen := f.department("kitchen")
	itemID := f.item("LIME", 50)
	f.stock(bar, itemID, 10)
	require.NoError(t, f.ledger.Reserve(f.ctx, bar, itemID, 4))

	require.NoError(t, f.ledger.Transfer(f.ctx, bar, kitchen, itemID, 6))
	assert.Equal(t, Balance{Quantity: 4, Reserved: 4, Available: 0}, f.balance(bar, itemID))
	assert.Equal(t, Balance{Quantity: 6, Reserved: 0, Available: 6}, f.balance(kitchen, itemID))

	err := f.ledger.Transfer(f.ctx, bar, kitchen, itemID, 1)
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)

	require.NoError(t, f.ledger.Transfer(f.ctx, kitchen, bar, itemID, 2))
	bb, kb := f.balance(bar, itemID), f.balance(kitchen, itemID)
	assert.Equal(t, int64(10), bb.Quantity+kb.Quantity)
}

func TestLedgerTransferToSameScope(t *testing.T) {
	f := newFixture(t)
	bar := f.department("bar")
	itemID := f.item("LIME", 50)
	f.stock(bar, itemID, 10)

	assert.ErrorIs(t, f.ledger.Transfer(f.ctx, bar, bar, itemID, 1), apperror.ErrValidation)
}

func TestLedgerConcurrentReservesNeverOversell(t *testing.T) {
	f := newFixture(t)
	scope := f.department("bar")
	itemID := f.item("COLA", 300)
	f.stock(scope, itemID, 10)

	var reserved atomic.Int64
	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			err := f.ledger.Reserve(f.ctx, scope, itemID, 1)
			switch {
			case err == nil:
				reserved.Add(1)
			case !errors.Is(err, apperror.ErrInsufficientStock):
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(10), reserved.Load())
	assert.Equal(t, Balance{Quantity: 10, Reserved: 10, Available: 0}, f.balance(scope, itemID))
}

func TestUntrackedExtraIsAlwaysAvailable(t *testing.T) {
	f := newFixture(t)
	spa := f.department("spa")
	extraID := f.extra("Robe", 0, false)

	b, err := f.ledger.ReceiveExtra(f.ctx, spa, extraID, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, Balance{Quantity: 1, Reserved: 0, Available: 1}, b)

	require.NoError(t, f.ledger.ReserveExtra(f.ctx, spa, extraID, 5))
	require.NoError(t, f.ledger.CommitExtra(f.ctx, spa, extraID, 5))
	require.NoError(t, f.ledger.ReleaseExtra(f.ctx, spa, extraID, 5))

	b, err = f.ledger.GetExtraBalance(f.ctx, spa, extraID)
	require.NoError(t, err)
	assert.Equal(t, Balance{Quantity: 1, Reserved: 0, Available: 1}, b)
}

func TestUntrackedExtraTransferMovesAssignment(t *testing.T) {
	f := newFixture(t)
	spa := f.department("spa")
	pool := f.department("pool")
	extraID := f.extra("Towel", 0, false)
	_, err := f.ledger.ReceiveExtra(f.ctx, spa, extraID, 1, nil)
	require.NoError(t, err)

	require.NoError(t, f.ledger.TransferExtra(f.ctx, spa, pool, extraID, 0))

	_, err = f.ledger.GetExtraBalance(f.ctx, spa, extraID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	b, err := f.ledger.GetExtraBalance(f.ctx, pool, extraID)
	require.NoError(t, err)
	assert.Equal(t, untrackedBalance, b)

	_, err = f.ledger.ReceiveExtra(f.ctx, spa, extraID, 1, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, f.ledger.TransferExtra(f.ctx, spa, pool, extraID, 0), apperror.ErrConflict)
}

func TestTrackedExtraTransfer(t *testing.T) {
	f := newFixture(t)
	bar := f.department("bar")
	pool := f.department("pool")
	extraID := f.extra("Ice bucket", 500, true)
	_, err := f.ledger.ReceiveExtra(f.ctx, bar, extraID, 4, nil)
	require.NoError(t, err)

	require.NoError(t, f.ledger.TransferExtra(f.ctx, bar, pool, extraID, 3))
	b, err := f.ledger.GetExtraBalance(f.ctx, pool, extraID)
	require.NoError(t, err)
	assert.Equal(t, Balance{Quantity: 3, Reserved: 0, Available: 3}, b)

	assert.ErrorIs(t, f.ledger.TransferExtra(f.ctx, bar, pool, extraID, 2), apperror.ErrInsufficientStock)
	assert.ErrorIs(t, f.ledger.ReserveExtra(f.ctx, bar, extraID, 2), apperror.ErrInsufficientStock)
}

func TestResolveScopeHasNoFallback(t *testing.T) {
	f := newFixture(t)
	f.department("restaurant")
	f.section("restaurant", "main")

	got, err := f.departments.ResolveScope(f.ctx, "restaurant:main")
	require.NoError(t, err)
	assert.Equal(t, "restaurant:main", got.Code)
	assert.True(t, got.Scope.IsSection())

	_, err = f.departments.ResolveScope(f.ctx, "restaurant:terrace")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.departments.ResolveScope(f.ctx, "restaurant:")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.departments.ResolveScope(f.ctx, "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestDepartmentCodesAreUnique(t *testing.T) {
	f := newFixture(t)
	f.department("bar")

	_, err := f.departments.CreateDepartment(f.ctx, CreateDepartmentInput{Code: "bar", Name: "Bar 2"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
	_, err = f.departments.CreateDepartment(f.ctx, CreateDepartmentInput{Code: "Bad Code", Name: "x"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
