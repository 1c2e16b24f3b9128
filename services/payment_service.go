package services

import (
	"context"

	"hotelpro-backend/apperror"
	"hotelpro-backend/events"
	"hotelpro-backend/models"
	"hotelpro-backend/pricing"
	"hotelpro-backend/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PaymentProcessor settles money outside the system. It runs inside the
// order's transaction, so an error leaves no trace of the attempt.
type PaymentProcessor interface {
	Charge(ctx context.Context, order *models.Order, amount int64, method string) (reference string, err error)
	Refund(ctx context.Context, order *models.Order, amount int64) error
}

// ManualProcessor records payments taken at the desk; it never fails.
type ManualProcessor struct{}

func (ManualProcessor) Charge(context.Context, *models.Order, int64, string) (string, error) {
	return "", nil
}

func (ManualProcessor) Refund(context.Context, *models.Order, int64) error {
	return nil
}

type PaymentInput struct {
	Amount               int64   `json:"amount" validate:"gt=0"`
	PaymentMethod        string  `json:"paymentMethod" validate:"required,max=40"`
	TransactionReference *string `json:"transactionReference"`
	Deferred             bool    `json:"deferred"`
}

// DerivePaymentStatus compares what was paid with what is owed.
func DerivePaymentStatus(total, paid int64) models.PaymentStatus {
	switch {
	case paid == total:
		return models.PaymentStatusPaid
	case paid > 0 && paid < total:
		return models.PaymentStatusPartial
	}
	return models.PaymentStatusUnpaid
}

type PaymentService struct {
	base
	processor PaymentProcessor
}

func NewPaymentService(store repository.Store, processor PaymentProcessor, publisher events.Publisher, log *logrus.Logger) *PaymentService {
	if processor == nil {
		processor = ManualProcessor{}
	}
	return &PaymentService{base: newBase(store, publisher, log), processor: processor}
}

// RecordPayment adds a payment to an existing order. The first payment moves
// a pending order to processing.
func (s *PaymentService) RecordPayment(ctx context.Context, actor string, orderID uuid.UUID, in PaymentInput) (*models.Order, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	var (
		order   *models.Order
		payment *models.Payment
	)
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		var err error
		order, err = tx.Orders().Find(ctx, orderID)
		if err != nil {
			return storeErr(err, "order %s", orderID)
		}
		payment, err = s.chargeInTx(ctx, tx, order, in, actor)
		if err != nil {
			return err
		}
		if order.Status == models.OrderStatusPending {
			order.Status = models.OrderStatusProcessing
		}
		if err := tx.Orders().UpdateHeader(ctx, order); err != nil {
			return storeErr(err, "order %s", orderID)
		}
		if err := syncDepartments(ctx, tx, order); err != nil {
			return err
		}
		if err := recordAudit(ctx, tx, "order", order.ID, "payment", actor, models.JSONB{
			"amount": payment.Amount,
			"method": payment.PaymentMethod,
		}); err != nil {
			return err
		}
		order, err = tx.Orders().Find(ctx, orderID)
		return storeErr(err, "order %s", orderID)
	})
	if err != nil {
		return nil, s.fail("record_payment", err)
	}
	s.publish(ctx, paymentEvent(order, payment, actor))
	return order, nil
}

// chargeInTx validates and charges a payment, stores it and updates the
// order's paid amount and payment status in memory. The caller persists the
// header.
func (s *PaymentService) chargeInTx(ctx context.Context, tx repository.Tx, order *models.Order, in PaymentInput, actor string) (*models.Payment, error) {
	if order.Status == models.OrderStatusCancelled {
		return nil, apperror.Conflict("order %s is cancelled", order.OrderNumber)
	}
	if order.PaymentStatus == models.PaymentStatusRefunded {
		return nil, apperror.Conflict("order %s has been refunded", order.OrderNumber)
	}
	if in.Amount <= 0 {
		return nil, apperror.Validation("payment amount must be greater than zero")
	}
	if order.AmountPaid+in.Amount > order.Total {
		return nil, apperror.Validation("payment of %s exceeds the %s outstanding",
			pricing.FormatMinor(in.Amount), pricing.FormatMinor(order.Total-order.AmountPaid))
	}

	ref, err := s.processor.Charge(ctx, order, in.Amount, in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	payment := &models.Payment{
		OrderID:              order.ID,
		Kind:                 models.PaymentKindPayment,
		Amount:               in.Amount,
		PaymentMethod:        in.PaymentMethod,
		TransactionReference: in.TransactionReference,
		RecordedBy:           actor,
	}
	if payment.TransactionReference == nil && ref != "" {
		payment.TransactionReference = &ref
	}
	if err := tx.Orders().AddPayment(ctx, payment); err != nil {
		return nil, storeErr(err, "payment")
	}
	order.AmountPaid += in.Amount
	order.PaymentStatus = DerivePaymentStatus(order.Total, order.AmountPaid)
	return payment, nil
}

// refundInTx reverses everything paid on the order with one negative payment.
func (s *PaymentService) refundInTx(ctx context.Context, tx repository.Tx, order *models.Order, actor string) (*models.Payment, error) {
	amount := order.AmountPaid
	if amount <= 0 {
		return nil, apperror.Conflict("order %s has nothing to refund", order.OrderNumber)
	}
	if err := s.processor.Refund(ctx, order, amount); err != nil {
		return nil, err
	}
	method := "refund"
	for _, p := range order.Payments {
		if p.Kind == models.PaymentKindPayment {
			method = p.PaymentMethod
		}
	}
	refund := &models.Payment{
		OrderID:       order.ID,
		Kind:          models.PaymentKindRefund,
		Amount:        -amount,
		PaymentMethod: method,
		RecordedBy:    actor,
	}
	if err := tx.Orders().AddPayment(ctx, refund); err != nil {
		return nil, storeErr(err, "refund")
	}
	order.AmountPaid = 0
	order.PaymentStatus = models.PaymentStatusRefunded
	return refund, nil
}

func paymentEvent(order *models.Order, p *models.Payment, actor string) *events.Event {
	return events.New(events.PaymentRecorded, order.ID.String(), actor, map[string]interface{}{
		"orderNumber":   order.OrderNumber,
		"amount":        p.Amount,
		"method":        p.PaymentMethod,
		"paymentStatus": order.PaymentStatus,
	})
}
