package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hotelpro-backend/apperror"
	"hotelpro-backend/events"
	"hotelpro-backend/models"
	"hotelpro-backend/pricing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingProcessor struct{}

func (failingProcessor) Charge(context.Context, *models.Order, int64, string) (string, error) {
	return "", errors.New("card declined")
}

func (failingProcessor) Refund(context.Context, *models.Order, int64) error {
	return errors.New("gateway down")
}

func TestCreateOrderReservesStock(t *testing.T) {
	f := newFixture(t)
	scope, itemID := f.restaurantMain()

	order, err := f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:main", itemID, 3, 1250))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	assert.Len(t, order.OrderNumber, len("ORD-20060102-XXXXXX"))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Equal(t, int64(3750), order.Subtotal)
	assert.Equal(t, int64(3750), order.Total)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "restaurant:main", order.Lines[0].DepartmentCode)
	assert.Equal(t, "STEAK", order.Lines[0].ProductName)
	require.Len(t, order.Departments, 1)
	assert.Equal(t, models.LineStatusPending, order.Departments[0].Status)

	assert.Equal(t, Balance{Quantity: 10, Reserved: 3, Available: 7}, f.balance(scope, itemID))
	assert.Equal(t, []string{events.OrderCreated}, f.events.Types())
}

func TestCreateOrderCreatesGuestCustomer(t *testing.T) {
	f := newFixture(t)
	_, itemID := f.restaurantMain()

	order, err := f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:main", itemID, 1, 1250))
	require.NoError(t, err)

	guest, err := f.customers.Get(f.ctx, order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, "Walk-in Guest", guest.Name)
	assert.True(t, guest.IsGuest)
	assert.Equal(t, 1, guest.TotalOrders)
	assert.Equal(t, int64(1250), guest.TotalSpent)
}

func TestCreateOrderUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	scope, itemID := f.restaurantMain()
	in := orderOf("restaurant:main", itemID, 1, 1250)
	missing := uuid.New()
	in.CustomerID = &missing

	_, err := f.orders.CreateOrder(f.ctx, "u1", in)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, Balance{Quantity: 10, Reserved: 0, Available: 10}, f.balance(scope, itemID))
}

func TestCreateOrderInsufficientStockLeavesLedgerUnchanged(t *testing.T) {
	f := newFixture(t)
	f.department("restaurant")
	scope := f.section("restaurant", "main")
	itemID := f.item("STEAK", 1250)
	f.stock(scope, itemID, 2)

	_, err := f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:main", itemID, 3, 1250))
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Equal(t, Balance{Quantity: 2, Reserved: 0, Available: 2}, f.balance(scope, itemID))
	assert.Empty(t, f.store.AuditEntries())
	assert.Empty(t, f.events.Types())
}

func TestCreateOrderIsAllOrNothingAcrossLines(t *testing.T) {
	f := newFixture(t)
	scope, steak := f.restaurantMain()
	wine := f.item("WINE", 4000)
	f.stock(scope, wine, 1)

	in := orderOf("restaurant:main", steak, 3, 1250)
	in.Items = append(in.Items, OrderItemInput{ProductID: wine, Quantity: 2, DepartmentCode: "restaurant:main", UnitPrice: minor(4000)})

	_, err := f.orders.CreateOrder(f.ctx, "u1", in)
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Equal(t, int64(0), f.balance(scope, steak).Reserved)
	assert.Equal(t, int64(0), f.balance(scope, wine).Reserved)
}

func TestCreateOrderUnknownSection(t *testing.T) {
	f := newFixture(t)
	_, itemID := f.restaurantMain()

	_, err := f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:terrace", itemID, 1, 1250))
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	_, itemID := f.restaurantMain()

	_, err := f.orders.CreateOrder(f.ctx, "u1", CreateOrderInput{})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:main", itemID, 0, 1250))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.orders.CreateOrder(f.ctx, "u1", orderOf("", itemID, 1, 1250))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	in := orderOf("restaurant:main", itemID, 1, 1250)
	in.Discounts = []pricing.DiscountRule{{Code: "X", Type: "bogus", Value: 1}}
	_, err = f.orders.CreateOrder(f.ctx, "u1", in)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCreateOrderUsesSectionDefault(t *testing.T) {
	f := newFixture(t)
	scope, itemID := f.restaurantMain()
	in := orderOf("", itemID, 2, 1250)
	in.Section = "restaurant:main"

	order, err := f.orders.CreateOrder(f.ctx, "u1", in)
	require.NoError(t, err)
	assert.Equal(t, "restaurant:main", order.Lines[0].DepartmentCode)
	assert.Equal(t, int64(2), f.balance(scope, itemID).Reserved)
}

func TestCreateOrderTotalsWithDiscountAndTax(t *testing.T) {
	f := newFixture(t)
	_, itemID := f.restaurantMain()
	svc := NewOrderService(f.store, f.payments, OrderServiceConfig{TaxBasisPoints: 1000}, f.events, quietLogger())

	in := orderOf("restaurant:main", itemID, 2, 1250)
	in.Discounts = []pricing.DiscountRule{{Code: "HAPPY", Type: models.DiscountPercentage, Value: 1000}}
	order, err := svc.CreateOrder(f.ctx, "u1", in)
	require.NoError(t, err)

	assert.Equal(t, int64(2500), order.Subtotal)
	assert.Equal(t, int64(250), order.DiscountTotal)
	assert.Equal(t, int64(225), order.Tax)
	assert.Equal(t, int64(2475), order.Total)
	require.Len(t, order.Discounts, 1)
	assert.Equal(t, int64(250), order.Discounts[0].Amount)
}

func TestCreateOrderWithPayment(t *testing.T) {
	f := newFixture(t)
	_, itemID := f.restaurantMain()

	in := orderOf("restaurant:main", itemID, 2, 1250)
	in.Payment = &PaymentInput{Amount: 2500, PaymentMethod: "card"}
	order, err := f.orders.CreateOrder(f.ctx, "u1", in)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, int64(2500), order.AmountPaid)
	require.Len(t, order.Payments, 1)
	assert.Equal(t, []string{events.OrderCreated, events.PaymentRecorded}, f.events.Types())

	in.Payment = &PaymentInput{Amount: 1000, PaymentMethod: "cash"}
	order, err = f.orders.CreateOrder(f.ctx, "u1", in)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartial, order.PaymentStatus)

	in.Payment = &PaymentInput{Deferred: true}
	order, err = f.orders.CreateOrder(f.ctx, "u1", in)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Empty(t, order.Payments)
}

func TestCreateOrderOverpaymentRollsBack(t *testing.T) {
	f := newFixture(t)
	scope, itemID := f.restaurantMain()

	in := orderOf("restaurant:main", itemID, 1, 1250)
	in.Payment = &PaymentInput{Amount: 5000, PaymentMethod: "card"}
	_, err := f.orders.CreateOrder(f.ctx, "u1", in)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, int64(0), f.balance(scope, itemID).Reserved)
}

func TestCreateOrderPaymentFailureRollsBack(t *testing.T) {
	f := newFixtureWithProcessor(t, failingProcessor{})
	scope, itemID := f.restaurantMain()

	in := orderOf("restaurant:main", itemID, 3, 1250)
	in.Payment = &PaymentInput{Amount: 3750, PaymentMethod: "card"}
	_, err := f.orders.CreateOrder(f.ctx, "u1", in)
	require.Error(t, err)
	assert.Equal(t, Balance{Quantity: 10, Reserved: 0, Available: 10}, f.balance(scope, itemID))
	assert.Empty(t, f.store.AuditEntries())
}

func TestCreateOrderIdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t)
	scope, itemID := f.restaurantMain()

	in := orderOf("restaurant:main", itemID, 3, 1250)
	in.IdempotencyKey = "retry-1"
	first, err := f.orders.CreateOrder(f.ctx, "u1", in)
	require.NoError(t, err)
	second, err := f.orders.CreateOrder(f.ctx, "u1", in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(3), f.balance(scope, itemID).Reserved)
	assert.Equal(t, []string{events.OrderCreated}, f.events.Types())
}

func TestCreateOrderWithUntrackedExtra(t *testing.T) {
	f := newFixture(t)
	spa := f.department("spa")
	extraID := f.extra("Robe", 800, false)
	_, err := f.ledger.ReceiveExtra(f.ctx, spa, extraID, 1, nil)
	require.NoError(t, err)

	order, err := f.orders.CreateOrder(f.ctx, "u1", CreateOrderInput{Items: []OrderItemInput{{
		ProductID: extraID, ProductType: models.ProductTypeExtra, Quantity: 4, DepartmentCode: "spa", UnitPrice: minor(800),
	}}})
	require.NoError(t, err)
	assert.Equal(t, int64(3200), order.Total)

	b, err := f.ledger.GetExtraBalance(f.ctx, spa, extraID)
	require.NoError(t, err)
	assert.Equal(t, untrackedBalance, b)

	_, err = f.orders.UpdateLineStatus(f.ctx, "u1", order.ID, order.Lines[0].ID, models.LineStatusFulfilled)
	require.NoError(t, err)
}

func TestCancelOrderReleasesStock(t *testing.T) {
	f := newFixture(t)
	scope, itemID := f.restaurantMain()
	order, err := f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:main", itemID, 3, 1250))
	require.NoError(t, err)

	cancelled, err := f.orders.CancelOrder(f.ctx, "u1", order.ID, "guest left")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, "guest left", cancelled.CancelReason)
	assert.Equal(t, Balance{Quantity: 10, Reserved: 0, Available: 10}, f.balance(scope, itemID))

	_, err = f.orders.CancelOrder(f.ctx, "u1", order.ID, "")
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestCancelOrderRefundsPayment(t *testing.T) {
	f := newFixture(t)
	_, itemID := f.restaurantMain()
	in := orderOf("restaurant:main", itemID, 2, 1250)
	in.Payment = &PaymentInput{Amount: 2500, PaymentMethod: "card"}
	order, err := f.orders.CreateOrder(f.ctx, "u1", in)
	require.NoError(t, err)

	cancelled, err := f.orders.CancelOrder(f.ctx, "u1", order.ID, "double booking")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, cancelled.PaymentStatus)
	assert.Equal(t, int64(0), cancelled.AmountPaid)
	require.Len(t, cancelled.Payments, 2)
	assert.Equal(t, int64(-2500), cancelled.Payments[1].Amount)
	assert.Equal(t, models.PaymentKindRefund, cancelled.Payments[1].Kind)
	assert.Contains(t, f.events.Types(), events.OrderRefunded)
}

func TestCancelOnlyPendingOrders(t *testing.T) {
	f := newFixture(t)
	_, itemID := f.restaurantMain()
	order, err := f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:main", itemID, 1, 1250))
	require.NoError(t, err)
	_, err = f.orders.UpdateOrderStatus(f.ctx, "u1", order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(f.ctx, "u1", order.ID, "")
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestFulfillLineCommitsOnce(t *testing.T) {
	f := newFixture(t)
	scope, itemID := f.restaurantMain()
	order, err := f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:main", itemID, 3, 1250))
	require.NoError(t, err)
	lineID := order.Lines[0].ID

	order, err = f.orders.UpdateLineStatus(f.ctx, "chef", order.ID, lineID, models.LineStatusFulfilled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFulfilled, order.Status)
	assert.Equal(t, models.LineStatusFulfilled, order.Lines[0].Status)
	require.Len(t, order.Fulfillments, 1)
	assert.Equal(t, "chef", order.Fulfillments[0].FulfilledBy)
	assert.Equal(t, models.LineStatusFulfilled, order.Departments[0].Status)
	assert.Equal(t, Balance{Quantity: 7, Reserved: 0, Available: 7}, f.balance(scope, itemID))

	_, err = f.orders.UpdateLineStatus(f.ctx, "chef", order.ID, lineID, models.LineStatusFulfilled)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, Balance{Quantity: 7, Reserved: 0, Available: 7}, f.balance(scope, itemID))

	order, err = f.orders.UpdateOrderStatus(f.ctx, "u1", order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
}

func TestLineProgressDrivesHeader(t *testing.T) {
	f := newFixture(t)
	restaurant, steak := f.restaurantMain()
	bar := f.department("bar")
	cola := f.item("COLA", 300)
	f.stock(bar, cola, 5)

	in := orderOf("restaurant:main", steak, 1, 1250)
	in.Items = append(in.Items, OrderItemInput{ProductID: cola, Quantity: 2, DepartmentCode: "bar", UnitPrice: minor(300)})
	order, err := f.orders.CreateOrder(f.ctx, "u1", in)
	require.NoError(t, err)
	require.Len(t, order.Departments, 2)

	order, err = f.orders.UpdateLineStatus(f.ctx, "u1", order.ID, order.Lines[0].ID, models.LineStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)

	_, err = f.orders.UpdateLineStatus(f.ctx, "u1", order.ID, order.Lines[0].ID, models.LineStatusPending)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.orders.UpdateOrderStatus(f.ctx, "u1", order.ID, models.OrderStatusFulfilled)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	order, err = f.orders.UpdateLineStatus(f.ctx, "u1", order.ID, order.Lines[1].ID, models.LineStatusFulfilled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	byCode := map[string]models.LineStatus{}
	for _, d := range order.Departments {
		byCode[d.DepartmentCode] = d.Status
	}
	assert.Equal(t, models.LineStatusProcessing, byCode["restaurant:main"])
	assert.Equal(t, models.LineStatusFulfilled, byCode["bar"])

	order, err = f.orders.UpdateLineStatus(f.ctx, "u1", order.ID, order.Lines[0].ID, models.LineStatusFulfilled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFulfilled, order.Status)
	assert.Equal(t, int64(9), f.balance(restaurant, steak).Quantity)
	assert.Equal(t, int64(3), f.balance(bar, cola).Quantity)
}

func TestUpdateOrderStatusTransitions(t *testing.T) {
	f := newFixture(t)
	_, itemID := f.restaurantMain()
	order, err := f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:main", itemID, 1, 1250))
	require.NoError(t, err)

	_, err = f.orders.UpdateOrderStatus(f.ctx, "u1", order.ID, models.OrderStatusCompleted)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	_, err = f.orders.UpdateOrderStatus(f.ctx, "u1", order.ID, models.OrderStatusPending)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	_, err = f.orders.UpdateOrderStatus(f.ctx, "u1", order.ID, "shipped")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	cancelled, err := f.orders.UpdateOrderStatus(f.ctx, "u1", order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	_, err = f.orders.UpdateOrderStatus(f.ctx, "u1", uuid.New(), models.OrderStatusProcessing)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRecordRefundPreconditions(t *testing.T) {
	f := newFixture(t)
	_, itemID := f.restaurantMain()

	unpaid, err := f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:main", itemID, 1, 1250))
	require.NoError(t, err)
	_, err = f.orders.RecordRefund(f.ctx, "u1", unpaid.ID, "")
	assert.ErrorIs(t, err, apperror.ErrConflict)

	in := orderOf("restaurant:main", itemID, 1, 1250)
	in.Payment = &PaymentInput{Amount: 500, PaymentMethod: "cash"}
	partial, err := f.orders.CreateOrder(f.ctx, "u1", in)
	require.NoError(t, err)
	refunded, err := f.orders.RecordRefund(f.ctx, "u1", partial.ID, "complaint")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.PaymentStatus)
	assert.Equal(t, "complaint", refunded.RefundReason)
	assert.Equal(t, int64(0), refunded.AmountPaid)

	_, err = f.orders.RecordRefund(f.ctx, "u1", partial.ID, "")
	assert.ErrorIs(t, err, apperror.ErrConflict)
	_, err = f.payments.RecordPayment(f.ctx, "u1", partial.ID, PaymentInput{Amount: 100, PaymentMethod: "cash"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t)
	_, itemID := f.restaurantMain()
	order, err := f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:main", itemID, 2, 1250))
	require.NoError(t, err)

	order, err = f.payments.RecordPayment(f.ctx, "u1", order.ID, PaymentInput{Amount: 1000, PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartial, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)

	_, err = f.payments.RecordPayment(f.ctx, "u1", order.ID, PaymentInput{Amount: 2000, PaymentMethod: "cash"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	order, err = f.payments.RecordPayment(f.ctx, "u1", order.ID, PaymentInput{Amount: 1500, PaymentMethod: "card"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, int64(2500), order.AmountPaid)

	_, err = f.payments.RecordPayment(f.ctx, "u1", order.ID, PaymentInput{Amount: 0, PaymentMethod: "card"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestRecordPaymentOnCancelledOrder(t *testing.T) {
	f := newFixture(t)
	_, itemID := f.restaurantMain()
	order, err := f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:main", itemID, 1, 1250))
	require.NoError(t, err)
	_, err = f.orders.CancelOrder(f.ctx, "u1", order.ID, "")
	require.NoError(t, err)

	_, err = f.payments.RecordPayment(f.ctx, "u1", order.ID, PaymentInput{Amount: 100, PaymentMethod: "cash"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestDepartmentQueue(t *testing.T) {
	f := newFixture(t)
	_, steak := f.restaurantMain()
	bar := f.department("bar")
	cola := f.item("COLA", 300)
	f.stock(bar, cola, 5)

	first, err := f.orders.CreateOrder(f.ctx, "u1", orderOf("restaurant:main", steak, 1, 1250))
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(f.ctx, "u1", orderOf("bar", cola, 1, 300))
	require.NoError(t, err)

	rows, err := f.orders.DepartmentQueue(f.ctx, "restaurant:main", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first.ID, rows[0].OrderID)

	_, err = f.orders.UpdateLineStatus(f.ctx, "u1", first.ID, first.Lines[0].ID, models.LineStatusFulfilled)
	require.NoError(t, err)
	rows, err = f.orders.DepartmentQueue(f.ctx, "restaurant:main", models.LineStatusPending)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = f.orders.DepartmentQueue(f.ctx, "restaurant", "nope")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestRollupDepartmentsTakesLeastAdvancedStatus(t *testing.T) {
	lines := []models.OrderLine{
		{DepartmentCode: "bar", Status: models.LineStatusFulfilled},
		{DepartmentCode: "bar", Status: models.LineStatusProcessing},
		{DepartmentCode: "kitchen", Status: models.LineStatusFulfilled},
		{DepartmentCode: "spa", Status: models.LineStatusPending},
		{DepartmentCode: "spa", Status: models.LineStatusFulfilled},
	}

	rows := rollupDepartments(lines)
	require.Len(t, rows, 3)
	assert.Equal(t, "bar", rows[0].DepartmentCode)
	assert.Equal(t, models.LineStatusProcessing, rows[0].Status)
	assert.Equal(t, 2, rows[0].TotalLines)
	assert.Equal(t, models.LineStatusFulfilled, rows[1].Status)
	assert.Equal(t, models.LineStatusPending, rows[2].Status)
}

func TestDerivePaymentStatus(t *testing.T) {
	tests := []struct {
		total, paid int64
		want        models.PaymentStatus
	}{
		{1000, 0, models.PaymentStatusUnpaid},
		{1000, 400, models.PaymentStatusPartial},
		{1000, 1000, models.PaymentStatusPaid},
		{0, 0, models.PaymentStatusPaid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DerivePaymentStatus(tt.total, tt.paid), "total=%d paid=%d", tt.total, tt.paid)
	}
}
