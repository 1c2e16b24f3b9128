package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusFulfilled  OrderStatus = "fulfilled"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusFulfilled,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// LineStatus is shared by order lines and the per-department rollup.
type LineStatus string

const (
	LineStatusPending    LineStatus = "pending"
	LineStatusProcessing LineStatus = "processing"
	LineStatusFulfilled  LineStatus = "fulfilled"
)

func (s LineStatus) Valid() bool {
	return s == LineStatusPending || s == LineStatusProcessing || s == LineStatusFulfilled
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type ProductType string

const (
	ProductTypeInventory ProductType = "inventory"
	ProductTypeExtra     ProductType = "extra"
)

// Order is the header of one customer transaction. Money is in minor units.
type Order struct {
	ID             uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	OrderNumber    string        `gorm:"uniqueIndex;not null" json:"orderNumber"`
	CustomerID     uuid.UUID     `gorm:"type:uuid;index;not null" json:"customerId"`
	IdempotencyKey *string       `gorm:"uniqueIndex" json:"-"`
	Status         OrderStatus   `gorm:"type:varchar(20);index;not null;default:'pending'" json:"status"`
	PaymentStatus  PaymentStatus `gorm:"type:varchar(20);not null;default:'unpaid'" json:"paymentStatus"`

	Subtotal      int64 `gorm:"not null" json:"subtotal"`
	DiscountTotal int64 `gorm:"not null;default:0" json:"discountTotal"`
	Tax           int64 `gorm:"not null;default:0" json:"tax"`
	Total         int64 `gorm:"not null" json:"total"`
	AmountPaid    int64 `gorm:"not null;default:0" json:"amountPaid"`

	Notes        string `json:"notes"`
	CancelReason string `json:"cancelReason,omitempty"`
	RefundReason string `json:"refundReason,omitempty"`
	CreatedBy    string `json:"createdBy"`

	Lines        []OrderLine       `gorm:"foreignKey:OrderID" json:"lines"`
	Departments  []OrderDepartment `gorm:"foreignKey:OrderID" json:"departments"`
	Payments     []Payment         `gorm:"foreignKey:OrderID" json:"payments"`
	Fulfillments []Fulfillment     `gorm:"foreignKey:OrderID" json:"fulfillments"`
	Discounts    []Discount        `gorm:"foreignKey:OrderID" json:"discounts"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return
}

// Line returns the line with the given id, or nil.
func (o *Order) Line(id uuid.UUID) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i]
		}
	}
	return nil
}

type OrderLine struct {
	ID             uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	OrderID        uuid.UUID   `gorm:"type:uuid;index;not null" json:"orderId"`
	ProductID      uuid.UUID   `gorm:"type:uuid;index;not null" json:"productId"`
	ProductType    ProductType `gorm:"type:varchar(20);not null;default:'inventory'" json:"productType"`
	ProductName    string      `gorm:"not null" json:"productName"`
	DepartmentCode string      `gorm:"index;not null" json:"departmentCode"`
	DepartmentID   uuid.UUID   `gorm:"type:uuid;not null" json:"departmentId"`
	SectionID      *uuid.UUID  `gorm:"type:uuid" json:"sectionId"`
	Quantity       int64       `gorm:"not null" json:"quantity"`
	UnitPrice      int64       `gorm:"not null" json:"unitPrice"`
	LineTotal      int64       `gorm:"not null" json:"lineTotal"`
	Status         LineStatus  `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (l *OrderLine) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return
}

func (l *OrderLine) Scope() Scope {
	return ScopeOf(l.DepartmentID, l.SectionID)
}

// OrderDepartment is the per-department rollup of line statuses, kept so that
// department queues never scan order lines.
type OrderDepartment struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	OrderID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_order_department,priority:1" json:"orderId"`
	DepartmentCode  string     `gorm:"not null;index;uniqueIndex:idx_order_department,priority:2" json:"departmentCode"`
	Status          LineStatus `gorm:"type:varchar(20);index;not null" json:"status"`
	TotalLines      int        `json:"totalLines"`
	PendingLines    int        `json:"pendingLines"`
	ProcessingLines int        `json:"processingLines"`
	FulfilledLines  int        `json:"fulfilledLines"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (d *OrderDepartment) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return
}

type PaymentKind string

const (
	PaymentKindPayment PaymentKind = "payment"
	PaymentKindRefund  PaymentKind = "refund"
)

// Payment is positive for payments and negative for refunds.
type Payment struct {
	ID                   uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	OrderID              uuid.UUID   `gorm:"type:uuid;index;not null" json:"orderId"`
	Kind                 PaymentKind `gorm:"type:varchar(20);not null;default:'payment'" json:"kind"`
	Amount               int64       `gorm:"not null" json:"amount"`
	PaymentMethod        string      `gorm:"not null" json:"paymentMethod"`
	TransactionReference *string     `json:"transactionReference"`
	RecordedBy           string      `json:"recordedBy"`

	CreatedAt time.Time `json:"createdAt"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

type Fulfillment struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;index;not null" json:"orderId"`
	OrderLineID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"orderLineId"`
	Quantity    int64     `gorm:"not null" json:"quantity"`
	FulfilledBy string    `json:"fulfilledBy"`

	CreatedAt time.Time `json:"createdAt"`
}

func (f *Fulfillment) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount records one applied rule. Value is basis points for percentage
// discounts and minor units for fixed ones; Amount is what it took off.
type Discount struct {
	ID      uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	OrderID uuid.UUID    `gorm:"type:uuid;index;not null" json:"orderId"`
	Code    string       `json:"code"`
	Type    DiscountType `gorm:"type:varchar(20);not null" json:"type"`
	Value   int64        `gorm:"not null" json:"value"`
	Amount  int64        `gorm:"not null" json:"amount"`
}

func (d *Discount) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return
}
