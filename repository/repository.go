// Package repository holds the storage interfaces the services depend on,
// with a gorm/postgres implementation and an in-memory one (package memory).
package repository

import (
	"context"
	"errors"

	"hotelpro-backend/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned by every lookup that matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique identity already exists.
var ErrDuplicate = errors.New("duplicate record")

// Store runs units of work. Every write made through tx inside fn commits
// together, or none of it does when fn returns an error.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	Departments() DepartmentRepository
	Inventory() InventoryRepository
	Extras() ExtraRepository
	Services() ServiceRepository
	Orders() OrderRepository
	Transfers() TransferRepository
	Units() UnitRepository
	Customers() CustomerRepository
	Audit() AuditRepository
}

type DepartmentRepository interface {
	CreateDepartment(ctx context.Context, d *models.Department) error
	CreateSection(ctx context.Context, s *models.Section) error
	FindDepartmentByCode(ctx context.Context, code string) (*models.Department, error)
	FindDepartmentByID(ctx context.Context, id uuid.UUID) (*models.Department, error)
	FindSection(ctx context.Context, departmentID uuid.UUID, slug string) (*models.Section, error)
	FindSectionByID(ctx context.Context, id uuid.UUID) (*models.Section, error)
}

// InventoryRepository owns inventory items and their per-scope ledger rows.
// FindBalance locks the row for the rest of the transaction.
type InventoryRepository interface {
	CreateItem(ctx context.Context, item *models.InventoryItem) error
	FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	FindBalance(ctx context.Context, scope models.Scope, itemID uuid.UUID) (*models.DepartmentInventory, error)
	SaveBalance(ctx context.Context, row *models.DepartmentInventory) error
	ListBalances(ctx context.Context) ([]models.DepartmentInventory, error)
}

type ExtraRepository interface {
	CreateExtra(ctx context.Context, extra *models.Extra) error
	FindExtra(ctx context.Context, id uuid.UUID) (*models.Extra, error)
	FindBalance(ctx context.Context, scope models.Scope, extraID uuid.UUID) (*models.DepartmentExtra, error)
	SaveBalance(ctx context.Context, row *models.DepartmentExtra) error
}

type ServiceRepository interface {
	Create(ctx context.Context, svc *models.ServiceInventory) error
	Find(ctx context.Context, id uuid.UUID) (*models.ServiceInventory, error)
	FindByName(ctx context.Context, scope models.Scope, name string) (*models.ServiceInventory, error)
	Save(ctx context.Context, svc *models.ServiceInventory) error
	// ListVisible returns services of the department that are either
	// department-wide or scoped to sectionID.
	ListVisible(ctx context.Context, departmentID, sectionID uuid.UUID) ([]models.ServiceInventory, error)
}

type OrderRepository interface {
	// Create stores the header together with its lines, department rows and
	// discounts.
	Create(ctx context.Context, order *models.Order) error
	Find(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	UpdateHeader(ctx context.Context, order *models.Order) error
	UpdateLine(ctx context.Context, line *models.OrderLine) error
	ReplaceDepartments(ctx context.Context, orderID uuid.UUID, rows []models.OrderDepartment) error
	AddPayment(ctx context.Context, p *models.Payment) error
	AddFulfillment(ctx context.Context, f *models.Fulfillment) error
	ListDepartmentQueue(ctx context.Context, departmentCode string, status models.LineStatus) ([]models.OrderDepartment, error)
}

type TransferRepository interface {
	Create(ctx context.Context, t *models.DepartmentTransfer) error
	Find(ctx context.Context, id uuid.UUID) (*models.DepartmentTransfer, error)
	Update(ctx context.Context, t *models.DepartmentTransfer) error
}

type UnitRepository interface {
	Create(ctx context.Context, u *models.Unit) error
	Find(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.UnitStatus) error
	AppendHistory(ctx context.Context, h *models.UnitStatusHistory) error
	ListHistory(ctx context.Context, unitID uuid.UUID) ([]models.UnitStatusHistory, error)
	CreateReservation(ctx context.Context, r *models.UnitReservation) error
	HasOccupyingReservation(ctx context.Context, unitID uuid.UUID) (bool, error)
	CreateMaintenance(ctx context.Context, m *models.MaintenanceRequest) error
	FindMaintenance(ctx context.Context, id uuid.UUID) (*models.MaintenanceRequest, error)
	SaveMaintenance(ctx context.Context, m *models.MaintenanceRequest) error
	CountActiveMaintenance(ctx context.Context, unitID uuid.UUID) (int64, error)
}

type CustomerRepository interface {
	Create(ctx context.Context, c *models.Customer) error
	Find(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	RecordVisit(ctx context.Context, id uuid.UUID, spent int64) error
}

type AuditRepository interface {
	Record(ctx context.Context, entry *models.AuditLog) error
	RecordStockAlert(ctx context.Context, entry *models.StockAlertLog) error
}
