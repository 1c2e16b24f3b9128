package services

import (
	"context"
	"io"
	"testing"

	"hotelpro-backend/events"
	"hotelpro-backend/models"
	"hotelpro-backend/repository/memory"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Store
	events *events.Recorder

	departments *DepartmentService
	products    *ProductService
	ledger      *Ledger
	catalog     *ServiceCatalog
	payments    *PaymentService
	orders      *OrderService
	transfers   *TransferService
	units       *UnitService
	customers   *CustomerService
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithProcessor(t, nil)
}

func newFixtureWithProcessor(t *testing.T, processor PaymentProcessor) *fixture {
	t.Helper()
	store := memory.NewStore()
	rec := &events.Recorder{}
	log := quietLogger()

	payments := NewPaymentService(store, processor, rec, log)
	return &fixture{
		t:           t,
		ctx:         context.Background(),
		store:       store,
		events:      rec,
		departments: NewDepartmentService(store, rec, log),
		products:    NewProductService(store, rec, log),
		ledger:      NewLedger(store, rec, log),
		catalog:     NewServiceCatalog(store, rec, log),
		payments:    payments,
		orders:      NewOrderService(store, payments, OrderServiceConfig{}, rec, log),
		transfers:   NewTransferService(store, rec, log),
		units:       NewUnitService(store, rec, log),
		customers:   NewCustomerService(store, rec, log),
	}
}

func (f *fixture) department(code string) models.Scope {
	f.t.Helper()
	d, err := f.departments.CreateDepartment(f.ctx, CreateDepartmentInput{Code: code, Name: code})
	require.NoError(f.t, err)
	return d.Scope()
}

func (f *fixture) section(parent, slug string) models.Scope {
	f.t.Helper()
	s, err := f.departments.CreateSection(f.ctx, parent, CreateSectionInput{Slug: slug, Name: slug})
	require.NoError(f.t, err)
	return s.Scope()
}

func (f *fixture) item(sku string, price int64) uuid.UUID {
	f.t.Helper()
	item, err := f.products.CreateItem(f.ctx, CreateItemInput{Name: sku, SKU: sku, UnitPrice: price})
	require.NoError(f.t, err)
	return item.ID
}

func (f *fixture) stock(scope models.Scope, itemID uuid.UUID, qty int64) {
	f.t.Helper()
	_, err := f.ledger.Receive(f.ctx, scope, itemID, qty, nil)
	require.NoError(f.t, err)
}

func (f *fixture) extra(name string, price int64, tracked bool) uuid.UUID {
	f.t.Helper()
	extra, err := f.products.CreateExtra(f.ctx, CreateExtraInput{Name: name, UnitPrice: price, TrackInventory: &tracked})
	require.NoError(f.t, err)
	return extra.ID
}

func (f *fixture) balance(scope models.Scope, itemID uuid.UUID) Balance {
	f.t.Helper()
	b, err := f.ledger.GetBalance(f.ctx, scope, itemID)
	require.NoError(f.t, err)
	return b
}

// restaurantMain seeds restaurant:main with 10 of one item priced 1250.
func (f *fixture) restaurantMain() (models.Scope, uuid.UUID) {
	f.t.Helper()
	f.department("restaurant")
	scope := f.section("restaurant", "main")
	itemID := f.item("STEAK", 1250)
	f.stock(scope, itemID, 10)
	return scope, itemID
}

func minor(v int64) *int64 { return &v }

func orderOf(code string, itemID uuid.UUID, qty, price int64) CreateOrderInput {
	return CreateOrderInput{
		Items: []OrderItemInput{{
			ProductID:      itemID,
			ProductType:    models.ProductTypeInventory,
			Quantity:       qty,
			DepartmentCode: code,
			UnitPrice:      &price,
		}},
	}
}
