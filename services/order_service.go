package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"hotelpro-backend/apperror"
	"hotelpro-backend/events"
	"hotelpro-backend/models"
	"hotelpro-backend/pricing"
	"hotelpro-backend/repository"
	"hotelpro-backend/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultGuestName = "Walk-in Guest"

// OrderItemInput is one requested line. A nil UnitPrice takes the catalog
// price of the product.
type OrderItemInput struct {
	ProductID      uuid.UUID          `json:"productId"`
	ProductType    models.ProductType `json:"productType"`
	Quantity       int64              `json:"quantity"`
	DepartmentCode string             `json:"departmentCode"`
	UnitPrice      *int64             `json:"unitPrice"`
}

type CreateOrderInput struct {
	CustomerID *uuid.UUID             `json:"customerId"`
	Items      []OrderItemInput       `json:"items"`
	Discounts  []pricing.DiscountRule `json:"discounts" validate:"dive"`
	Notes      string                 `json:"notes"`
	Payment    *PaymentInput          `json:"payment" validate:"-"`

	// Section is the default department code for items that carry none.
	Section        string `json:"section"`
	IdempotencyKey string `json:"-"`
}

type OrderServiceConfig struct {
	TaxBasisPoints    int64
	GuestCustomerName string
}

// OrderService runs the order lifecycle: creation with stock reservation,
// line fulfillment, header status changes, cancellation and refunds.
type OrderService struct {
	base
	payments *PaymentService
	cfg      OrderServiceConfig
	now      func() time.Time
}

func NewOrderService(store repository.Store, payments *PaymentService, cfg OrderServiceConfig, publisher events.Publisher, log *logrus.Logger) *OrderService {
	if cfg.GuestCustomerName == "" {
		cfg.GuestCustomerName = defaultGuestName
	}
	return &OrderService{
		base:     newBase(store, publisher, log),
		payments: payments,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *OrderService) newOrderNumber() string {
	return "ORD-" + s.now().Format("20060102") + "-" + strings.ToUpper(utils.GenerateRandomString(6))
}

func validateOrderInput(in *CreateOrderInput) error {
	if len(in.Items) == 0 {
		return apperror.Validation("order needs at least one item")
	}
	for i := range in.Items {
		item := &in.Items[i]
		if item.ProductID == uuid.Nil {
			return apperror.Validation("item %d: productId is required", i)
		}
		if item.Quantity <= 0 {
			return apperror.Validation("item %d: quantity must be greater than zero", i)
		}
		if item.UnitPrice != nil && *item.UnitPrice < 0 {
			return apperror.Validation("item %d: unitPrice must not be negative", i)
		}
		if item.DepartmentCode == "" {
			item.DepartmentCode = in.Section
		}
		if item.DepartmentCode == "" {
			return apperror.Validation("item %d: departmentCode is required", i)
		}
		if item.ProductType == "" {
			item.ProductType = models.ProductTypeInventory
		}
		if item.ProductType != models.ProductTypeInventory && item.ProductType != models.ProductTypeExtra {
			return apperror.Validation("item %d: unknown productType %q", i, item.ProductType)
		}
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.Payment != nil && !in.Payment.Deferred {
		if err := validateStruct(in.Payment); err != nil {
			return err
		}
	}
	return nil
}

// CreateOrder reserves stock for every line, prices the order, stores it and,
// unless deferred, takes the accompanying payment. All of it is one
// transaction: a failed reservation or a failed payment leaves nothing
// behind. A repeated IdempotencyKey returns the order created the first time.
func (s *OrderService) CreateOrder(ctx context.Context, actor string, in CreateOrderInput) (*models.Order, error) {
	if err := validateOrderInput(&in); err != nil {
		return nil, s.fail("create_order", err)
	}

	var (
		order    *models.Order
		payment  *models.Payment
		replayed bool
	)
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		if in.IdempotencyKey != "" {
			existing, err := tx.Orders().FindByIdempotencyKey(ctx, in.IdempotencyKey)
			if err == nil {
				order, replayed = existing, true
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return storeErr(err, "order")
			}
		}

		customer, err := s.resolveCustomer(ctx, tx, in.CustomerID)
		if err != nil {
			return err
		}

		scopes := map[string]ResolvedScope{}
		holds := make([]hold, 0, len(in.Items))
		lines := make([]models.OrderLine, 0, len(in.Items))
		priced := make([]pricing.Line, 0, len(in.Items))
		for _, item := range in.Items {
			scope, ok := scopes[item.DepartmentCode]
			if !ok {
				scope, err = resolveScope(ctx, tx, item.DepartmentCode)
				if err != nil {
					return err
				}
				scopes[item.DepartmentCode] = scope
			}
			product, err := resolveSellable(ctx, tx, item.ProductType, item.ProductID)
			if err != nil {
				return err
			}
			unitPrice := product.UnitPrice()
			if item.UnitPrice != nil {
				unitPrice = *item.UnitPrice
			}
			lineTotal, err := pricing.LineTotal(pricing.Line{Quantity: item.Quantity, UnitPrice: unitPrice})
			if err != nil {
				return err
			}
			holds = append(holds, hold{scope: scope.Scope, product: product, qty: item.Quantity})
			lines = append(lines, models.OrderLine{
				ProductID:      product.ID(),
				ProductType:    product.Type(),
				ProductName:    product.Name(),
				DepartmentCode: scope.Code,
				DepartmentID:   scope.Scope.DepartmentID(),
				SectionID:      scope.Scope.SectionPtr(),
				Quantity:       item.Quantity,
				UnitPrice:      unitPrice,
				LineTotal:      lineTotal,
				Status:         models.LineStatusPending,
			})
			priced = append(priced, pricing.Line{Quantity: item.Quantity, UnitPrice: unitPrice})
		}
		if err := reserveAll(ctx, tx, holds); err != nil {
			return err
		}

		totals, err := pricing.Compute(priced, in.Discounts, s.cfg.TaxBasisPoints)
		if err != nil {
			return err
		}

		order = &models.Order{
			OrderNumber:   s.newOrderNumber(),
			CustomerID:    customer.ID,
			Status:        models.OrderStatusPending,
			PaymentStatus: DerivePaymentStatus(totals.Total, 0),
			Subtotal:      totals.Subtotal,
			DiscountTotal: totals.DiscountTotal,
			Tax:           totals.Tax,
			Total:         totals.Total,
			Notes:         in.Notes,
			CreatedBy:     actor,
			Lines:         lines,
			Departments:   rollupDepartments(lines),
			Discounts:     totals.Applied,
		}
		if in.IdempotencyKey != "" {
			key := in.IdempotencyKey
			order.IdempotencyKey = &key
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return storeErr(err, "order %s", order.OrderNumber)
		}

		if in.Payment != nil && !in.Payment.Deferred {
			payment, err = s.payments.chargeInTx(ctx, tx, order, *in.Payment, actor)
			if err != nil {
				return err
			}
			if err := tx.Orders().UpdateHeader(ctx, order); err != nil {
				return storeErr(err, "order %s", order.OrderNumber)
			}
		}

		if err := tx.Customers().RecordVisit(ctx, customer.ID, order.Total); err != nil {
			return storeErr(err, "customer %s", customer.ID)
		}
		if err := recordAudit(ctx, tx, "order", order.ID, "create", actor, models.JSONB{
			"orderNumber": order.OrderNumber,
			"total":       order.Total,
			"lines":       len(order.Lines),
		}); err != nil {
			return err
		}
		order, err = tx.Orders().Find(ctx, order.ID)
		return storeErr(err, "order")
	})
	if err != nil {
		return nil, s.fail("create_order", err)
	}
	if replayed {
		s.log.WithField("order_number", order.OrderNumber).Info("idempotent order create replayed")
		return order, nil
	}

	s.log.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"total":        pricing.FormatMinor(order.Total),
	}).Info("order created")
	evts := []*events.Event{orderEvent(events.OrderCreated, order, actor)}
	if payment != nil {
		evts = append(evts, paymentEvent(order, payment, actor))
	}
	s.publish(ctx, evts...)
	return order, nil
}

// hold is one line's claim on a ledger row.
type hold struct {
	scope   models.Scope
	product Sellable
	qty     int64
}

func (h hold) key() string {
	return h.scope.Key() + "|" + string(h.product.Type()) + "|" + h.product.ID().String()
}

// reserveAll checks the summed demand per ledger row against its availability
// and then reserves every line. Rows are visited in key order so concurrent
// orders lock shared rows in the same sequence.
func reserveAll(ctx context.Context, tx repository.Tx, holds []hold) error {
	sorted := make([]hold, len(holds))
	copy(sorted, holds)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].key() < sorted[j].key() })

	demand := map[string]int64{}
	for _, h := range sorted {
		demand[h.key()] += h.qty
	}
	checked := map[string]bool{}
	for _, h := range sorted {
		k := h.key()
		if checked[k] || !h.product.Tracked() {
			continue
		}
		checked[k] = true
		b, err := h.product.Availability(ctx, tx, h.scope)
		if err != nil {
			return err
		}
		if b.Available < demand[k] {
			return apperror.InsufficientStock("only %d of %q available in %s, %d requested",
				b.Available, h.product.Name(), h.scope, demand[k])
		}
	}
	for _, h := range sorted {
		if err := h.product.Reserve(ctx, tx, h.scope, h.qty); err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderService) resolveCustomer(ctx context.Context, tx repository.Tx, id *uuid.UUID) (*models.Customer, error) {
	if id == nil || *id == uuid.Nil {
		guest := &models.Customer{Name: s.cfg.GuestCustomerName, IsGuest: true}
		if err := tx.Customers().Create(ctx, guest); err != nil {
			return nil, storeErr(err, "guest customer")
		}
		return guest, nil
	}
	customer, err := tx.Customers().Find(ctx, *id)
	if err != nil {
		return nil, storeErr(err, "customer %s", *id)
	}
	return customer, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		var err error
		order, err = tx.Orders().Find(ctx, id)
		return storeErr(err, "order %s", id)
	})
	return order, err
}

// UpdateOrderStatus moves the header along
// pending -> processing -> fulfilled -> completed. Cancelling goes through
// CancelOrder; fulfilled needs every line fulfilled first.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, actor string, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperror.Validation("unknown order status %q", status)
	}
	if status == models.OrderStatusCancelled {
		return s.CancelOrder(ctx, actor, orderID, "")
	}

	var (
		order    *models.Order
		previous models.OrderStatus
	)
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		var err error
		order, err = tx.Orders().Find(ctx, orderID)
		if err != nil {
			return storeErr(err, "order %s", orderID)
		}
		previous = order.Status
		if err := checkHeaderTransition(order, status); err != nil {
			return err
		}
		order.Status = status
		if err := tx.Orders().UpdateHeader(ctx, order); err != nil {
			return storeErr(err, "order %s", orderID)
		}
		if err := syncDepartments(ctx, tx, order); err != nil {
			return err
		}
		if err := recordAudit(ctx, tx, "order", order.ID, "status", actor, models.JSONB{
			"from": previous,
			"to":   status,
		}); err != nil {
			return err
		}
		order, err = tx.Orders().Find(ctx, orderID)
		return storeErr(err, "order %s", orderID)
	})
	if err != nil {
		return nil, s.fail("update_order_status", err)
	}
	s.publish(ctx, statusEvent(order, previous, actor))
	return order, nil
}

func checkHeaderTransition(order *models.Order, to models.OrderStatus) error {
	from := order.Status
	if from == to {
		return apperror.Conflict("order %s is already %s", order.OrderNumber, to)
	}
	switch {
	case from == models.OrderStatusPending && to == models.OrderStatusProcessing:
		return nil
	case from == models.OrderStatusProcessing && to == models.OrderStatusFulfilled:
		for _, l := range order.Lines {
			if l.Status != models.LineStatusFulfilled {
				return apperror.Conflict("order %s still has unfulfilled lines", order.OrderNumber)
			}
		}
		return nil
	case from == models.OrderStatusFulfilled && to == models.OrderStatusCompleted:
		return nil
	}
	return apperror.Conflict("order %s cannot move from %s to %s", order.OrderNumber, from, to)
}

// UpdateLineStatus advances one line. Fulfilling commits the line's
// reservation and writes its Fulfillment row, exactly once.
func (s *OrderService) UpdateLineStatus(ctx context.Context, actor string, orderID, lineID uuid.UUID, status models.LineStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperror.Validation("unknown line status %q", status)
	}

	var (
		order    *models.Order
		previous models.OrderStatus
	)
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		var err error
		order, err = tx.Orders().Find(ctx, orderID)
		if err != nil {
			return storeErr(err, "order %s", orderID)
		}
		previous = order.Status
		if order.Status == models.OrderStatusCancelled || order.Status == models.OrderStatusCompleted {
			return apperror.Conflict("order %s is %s", order.OrderNumber, order.Status)
		}
		line := order.Line(lineID)
		if line == nil {
			return apperror.NotFound("line %s not found on order %s", lineID, order.OrderNumber)
		}
		if err := checkLineTransition(line, status); err != nil {
			return err
		}

		if status == models.LineStatusFulfilled {
			product, err := resolveSellable(ctx, tx, line.ProductType, line.ProductID)
			if err != nil {
				return err
			}
			if err := product.Commit(ctx, tx, line.Scope(), line.Quantity); err != nil {
				return err
			}
			if err := tx.Orders().AddFulfillment(ctx, &models.Fulfillment{
				OrderID:     order.ID,
				OrderLineID: line.ID,
				Quantity:    line.Quantity,
				FulfilledBy: actor,
			}); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return apperror.Conflict("line %s is already fulfilled", line.ID)
				}
				return storeErr(err, "fulfillment")
			}
		}

		line.Status = status
		if err := tx.Orders().UpdateLine(ctx, line); err != nil {
			return storeErr(err, "order line %s", line.ID)
		}

		order.Status = headerStatusFromLines(order)
		if order.Status != previous {
			if err := tx.Orders().UpdateHeader(ctx, order); err != nil {
				return storeErr(err, "order %s", orderID)
			}
		}
		if err := syncDepartments(ctx, tx, order); err != nil {
			return err
		}
		order, err = tx.Orders().Find(ctx, orderID)
		return storeErr(err, "order %s", orderID)
	})
	if err != nil {
		return nil, s.fail("update_line_status", err)
	}
	if order.Status != previous {
		s.publish(ctx, statusEvent(order, previous, actor))
	}
	return order, nil
}

func checkLineTransition(line *models.OrderLine, to models.LineStatus) error {
	from := line.Status
	switch {
	case from == models.LineStatusFulfilled:
		return apperror.Conflict("line %s is already fulfilled", line.ID)
	case from == to:
		return apperror.Conflict("line %s is already %s", line.ID, to)
	case from == models.LineStatusProcessing && to == models.LineStatusPending:
		return apperror.Conflict("line %s cannot go back to pending", line.ID)
	}
	return nil
}

// headerStatusFromLines derives the header after a line change: the first
// started line makes a pending order processing, and all lines fulfilled
// makes it fulfilled.
func headerStatusFromLines(order *models.Order) models.OrderStatus {
	allFulfilled, anyStarted := true, false
	for _, l := range order.Lines {
		if l.Status != models.LineStatusFulfilled {
			allFulfilled = false
		}
		if l.Status != models.LineStatusPending {
			anyStarted = true
		}
	}
	switch {
	case allFulfilled && len(order.Lines) > 0:
		return models.OrderStatusFulfilled
	case anyStarted && order.Status == models.OrderStatusPending:
		return models.OrderStatusProcessing
	}
	return order.Status
}

// CancelOrder releases every line's reservation and marks the order
// cancelled. Only pending orders can be cancelled. Money already taken is
// refunded in the same transaction.
func (s *OrderService) CancelOrder(ctx context.Context, actor string, orderID uuid.UUID, reason string) (*models.Order, error) {
	var (
		order  *models.Order
		refund *models.Payment
	)
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		var err error
		order, err = tx.Orders().Find(ctx, orderID)
		if err != nil {
			return storeErr(err, "order %s", orderID)
		}
		if order.Status != models.OrderStatusPending {
			return apperror.Conflict("order %s is %s; only pending orders can be cancelled", order.OrderNumber, order.Status)
		}

		for _, line := range order.Lines {
			if line.Status == models.LineStatusFulfilled {
				continue
			}
			product, err := resolveSellable(ctx, tx, line.ProductType, line.ProductID)
			if err != nil {
				return err
			}
			if err := product.Release(ctx, tx, line.Scope(), line.Quantity); err != nil {
				return err
			}
		}

		if order.AmountPaid > 0 {
			refund, err = s.payments.refundInTx(ctx, tx, order, actor)
			if err != nil {
				return err
			}
			order.RefundReason = reason
		}

		order.Status = models.OrderStatusCancelled
		order.CancelReason = reason
		if err := tx.Orders().UpdateHeader(ctx, order); err != nil {
			return storeErr(err, "order %s", orderID)
		}
		if err := syncDepartments(ctx, tx, order); err != nil {
			return err
		}
		if err := recordAudit(ctx, tx, "order", order.ID, "cancel", actor, models.JSONB{
			"reason": reason,
		}); err != nil {
			return err
		}
		order, err = tx.Orders().Find(ctx, orderID)
		return storeErr(err, "order %s", orderID)
	})
	if err != nil {
		return nil, s.fail("cancel_order", err)
	}
	evts := []*events.Event{orderEvent(events.OrderCancelled, order, actor)}
	if refund != nil {
		evts = append(evts, orderEvent(events.OrderRefunded, order, actor))
	}
	s.publish(ctx, evts...)
	return order, nil
}

// RecordRefund reverses everything paid. Allowed only while the order is
// pending and at least partly paid; later orders settle another way.
func (s *OrderService) RecordRefund(ctx context.Context, actor string, orderID uuid.UUID, reason string) (*models.Order, error) {
	var order *models.Order
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		var err error
		order, err = tx.Orders().Find(ctx, orderID)
		if err != nil {
			return storeErr(err, "order %s", orderID)
		}
		if order.Status != models.OrderStatusPending {
			return apperror.Conflict("order %s is %s; refunds need a pending order", order.OrderNumber, order.Status)
		}
		if order.PaymentStatus != models.PaymentStatusPaid && order.PaymentStatus != models.PaymentStatusPartial {
			return apperror.Conflict("order %s is %s; nothing to refund", order.OrderNumber, order.PaymentStatus)
		}
		refund, err := s.payments.refundInTx(ctx, tx, order, actor)
		if err != nil {
			return err
		}
		order.RefundReason = reason
		if err := tx.Orders().UpdateHeader(ctx, order); err != nil {
			return storeErr(err, "order %s", orderID)
		}
		if err := recordAudit(ctx, tx, "order", order.ID, "refund", actor, models.JSONB{
			"amount": -refund.Amount,
			"reason": reason,
		}); err != nil {
			return err
		}
		order, err = tx.Orders().Find(ctx, orderID)
		return storeErr(err, "order %s", orderID)
	})
	if err != nil {
		return nil, s.fail("record_refund", err)
	}
	s.publish(ctx, orderEvent(events.OrderRefunded, order, actor))
	return order, nil
}

// DepartmentQueue lists the order rollups of one department or section code,
// optionally filtered by status.
func (s *OrderService) DepartmentQueue(ctx context.Context, code string, status models.LineStatus) ([]models.OrderDepartment, error) {
	if status != "" && !status.Valid() {
		return nil, apperror.Validation("unknown status %q", status)
	}
	var rows []models.OrderDepartment
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		scope, err := resolveScope(ctx, tx, code)
		if err != nil {
			return err
		}
		rows, err = tx.Orders().ListDepartmentQueue(ctx, scope.Code, status)
		return storeErr(err, "department queue")
	})
	return rows, err
}

// rollupDepartments builds one row per department code from the lines. A
// row's status is its least advanced line: any pending line makes it pending,
// otherwise any processing line makes it processing.
func rollupDepartments(lines []models.OrderLine) []models.OrderDepartment {
	byCode := map[string]*models.OrderDepartment{}
	var codes []string
	for _, l := range lines {
		d, ok := byCode[l.DepartmentCode]
		if !ok {
			d = &models.OrderDepartment{DepartmentCode: l.DepartmentCode}
			byCode[l.DepartmentCode] = d
			codes = append(codes, l.DepartmentCode)
		}
		d.TotalLines++
		switch l.Status {
		case models.LineStatusPending:
			d.PendingLines++
		case models.LineStatusProcessing:
			d.ProcessingLines++
		case models.LineStatusFulfilled:
			d.FulfilledLines++
		}
	}
	sort.Strings(codes)

	rows := make([]models.OrderDepartment, 0, len(codes))
	for _, code := range codes {
		d := byCode[code]
		switch {
		case d.PendingLines > 0:
			d.Status = models.LineStatusPending
		case d.ProcessingLines > 0:
			d.Status = models.LineStatusProcessing
		default:
			d.Status = models.LineStatusFulfilled
		}
		rows = append(rows, *d)
	}
	return rows
}

func syncDepartments(ctx context.Context, tx repository.Tx, order *models.Order) error {
	return storeErr(tx.Orders().ReplaceDepartments(ctx, order.ID, rollupDepartments(order.Lines)), "order departments")
}

func orderEvent(eventType string, order *models.Order, actor string) *events.Event {
	return events.New(eventType, order.ID.String(), actor, map[string]interface{}{
		"orderNumber":   order.OrderNumber,
		"status":        order.Status,
		"paymentStatus": order.PaymentStatus,
		"total":         order.Total,
	})
}

func statusEvent(order *models.Order, previous models.OrderStatus, actor string) *events.Event {
	e := orderEvent(events.OrderStatus, order, actor)
	e.Data["previousStatus"] = previous
	return e
}
