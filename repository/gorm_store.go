package repository

import (
	"context"
	"errors"
	"time"

	"hotelpro-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) Departments() DepartmentRepository { return &gormDepartments{t.db} }
func (t *gormTx) Inventory() InventoryRepository     { return &gormInventory{t.db} }
func (t *gormTx) Extras() ExtraRepository            { return &gormExtras{t.db} }
func (t *gormTx) Services() ServiceRepository        { return &gormServices{t.db} }
func (t *gormTx) Orders() OrderRepository            { return &gormOrders{t.db} }
func (t *gormTx) Transfers() TransferRepository      { return &gormTransfers{t.db} }
func (t *gormTx) Units() UnitRepository              { return &gormUnits{t.db} }
func (t *gormTx) Customers() CustomerRepository      { return &gormCustomers{t.db} }
func (t *gormTx) Audit() AuditRepository             { return &gormAudit{t.db} }

// translate maps gorm sentinel errors onto the package ones.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

type gormDepartments struct{ db *gorm.DB }

func (r *gormDepartments) CreateDepartment(ctx context.Context, d *models.Department) error {
	return translate(r.db.WithContext(ctx).Create(d).Error)
}

func (r *gormDepartments) CreateSection(ctx context.Context, s *models.Section) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *gormDepartments) FindDepartmentByCode(ctx context.Context, code string) (*models.Department, error) {
	var d models.Department
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *gormDepartments) FindDepartmentByID(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	var d models.Department
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *gormDepartments) FindSection(ctx context.Context, departmentID uuid.UUID, slug string) (*models.Section, error) {
	var s models.Section
	if err := r.db.WithContext(ctx).
		Where("department_id = ? AND slug = ?", departmentID, slug).
		First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *gormDepartments) FindSectionByID(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	var s models.Section
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

type gormInventory struct{ db *gorm.DB }

func (r *gormInventory) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	return translate(r.db.WithContext(ctx).Create(item).Error)
}

func (r *gormInventory) FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *gormInventory) FindBalance(ctx context.Context, scope models.Scope, itemID uuid.UUID) (*models.DepartmentInventory, error) {
	var row models.DepartmentInventory
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("scope_key = ? AND inventory_item_id = ?", scope.Key(), itemID).
		First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *gormInventory) SaveBalance(ctx context.Context, row *models.DepartmentInventory) error {
	row.ScopeKey = row.Scope().Key()
	return translate(r.db.WithContext(ctx).Save(row).Error)
}

func (r *gormInventory) ListBalances(ctx context.Context) ([]models.DepartmentInventory, error) {
	var rows []models.DepartmentInventory
	if err := r.db.WithContext(ctx).Order("scope_key, inventory_item_id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

type gormExtras struct{ db *gorm.DB }

func (r *gormExtras) CreateExtra(ctx context.Context, extra *models.Extra) error {
	return translate(r.db.WithContext(ctx).Create(extra).Error)
}

func (r *gormExtras) FindExtra(ctx context.Context, id uuid.UUID) (*models.Extra, error) {
	var extra models.Extra
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&extra).Error; err != nil {
		return nil, translate(err)
	}
	return &extra, nil
}

func (r *gormExtras) FindBalance(ctx context.Context, scope models.Scope, extraID uuid.UUID) (*models.DepartmentExtra, error) {
	var row models.DepartmentExtra
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("scope_key = ? AND extra_id = ?", scope.Key(), extraID).
		First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *gormExtras) SaveBalance(ctx context.Context, row *models.DepartmentExtra) error {
	row.ScopeKey = row.Scope().Key()
	return translate(r.db.WithContext(ctx).Save(row).Error)
}

type gormServices struct{ db *gorm.DB }

func (r *gormServices) Create(ctx context.Context, svc *models.ServiceInventory) error {
	return translate(r.db.WithContext(ctx).Create(svc).Error)
}

func (r *gormServices) Find(ctx context.Context, id uuid.UUID) (*models.ServiceInventory, error) {
	var svc models.ServiceInventory
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&svc).Error; err != nil {
		return nil, translate(err)
	}
	return &svc, nil
}

func (r *gormServices) FindByName(ctx context.Context, scope models.Scope, name string) (*models.ServiceInventory, error) {
	var svc models.ServiceInventory
	if err := r.db.WithContext(ctx).
		Where("scope_key = ? AND name = ?", scope.Key(), name).
		First(&svc).Error; err != nil {
		return nil, translate(err)
	}
	return &svc, nil
}

func (r *gormServices) Save(ctx context.Context, svc *models.ServiceInventory) error {
	svc.ScopeKey = svc.Scope().Key()
	return translate(r.db.WithContext(ctx).Save(svc).Error)
}

func (r *gormServices) ListVisible(ctx context.Context, departmentID, sectionID uuid.UUID) ([]models.ServiceInventory, error) {
	var services []models.ServiceInventory
	if err := r.db.WithContext(ctx).
		Where("department_id = ? AND (section_id = ? OR section_id IS NULL)", departmentID, sectionID).
		Find(&services).Error; err != nil {
		return nil, translate(err)
	}
	return services, nil
}

type gormOrders struct{ db *gorm.DB }

func (r *gormOrders) Create(ctx context.Context, order *models.Order) error {
	return translate(r.db.WithContext(ctx).Create(order).Error)
}

func (r *gormOrders) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Preload("Departments", func(db *gorm.DB) *gorm.DB { return db.Order("department_code") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Fulfillments").
		Preload("Discounts")
}

func (r *gormOrders) Find(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := forUpdate(r.preloaded(ctx)).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *gormOrders) FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	if err := r.preloaded(ctx).Where("idempotency_key = ?", key).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *gormOrders) UpdateHeader(ctx context.Context, order *models.Order) error {
	return translate(r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
			"amount_paid":    order.AmountPaid,
			"cancel_reason":  order.CancelReason,
			"refund_reason":  order.RefundReason,
			"notes":          order.Notes,
			"updated_at":     time.Now(),
		}).Error)
}

func (r *gormOrders) UpdateLine(ctx context.Context, line *models.OrderLine) error {
	return translate(r.db.WithContext(ctx).Model(&models.OrderLine{}).
		Where("id = ?", line.ID).
		Updates(map[string]interface{}{
			"status":     line.Status,
			"updated_at": time.Now(),
		}).Error)
}

// ReplaceDepartments upserts one rollup row per department code and drops
// codes the order no longer has. Existing rows keep their id and created_at,
// which the department queue orders by.
func (r *gormOrders) ReplaceDepartments(ctx context.Context, orderID uuid.UUID, rows []models.OrderDepartment) error {
	db := r.db.WithContext(ctx)
	if len(rows) == 0 {
		return translate(db.Where("order_id = ?", orderID).Delete(&models.OrderDepartment{}).Error)
	}

	codes := make([]string, 0, len(rows))
	for i := range rows {
		rows[i].OrderID = orderID
		codes = append(codes, rows[i].DepartmentCode)
	}
	if err := db.Where("order_id = ? AND department_code NOT IN ?", orderID, codes).
		Delete(&models.OrderDepartment{}).Error; err != nil {
		return translate(err)
	}
	return translate(db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}, {Name: "department_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "total_lines", "pending_lines", "processing_lines", "fulfilled_lines", "updated_at",
		}),
	}).Create(&rows).Error)
}

func (r *gormOrders) AddPayment(ctx context.Context, p *models.Payment) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *gormOrders) AddFulfillment(ctx context.Context, f *models.Fulfillment) error {
	return translate(r.db.WithContext(ctx).Create(f).Error)
}

func (r *gormOrders) ListDepartmentQueue(ctx context.Context, departmentCode string, status models.LineStatus) ([]models.OrderDepartment, error) {
	query := r.db.WithContext(ctx).Where("department_code = ?", departmentCode)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var rows []models.OrderDepartment
	if err := query.Order("created_at").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

type gormTransfers struct{ db *gorm.DB }

func (r *gormTransfers) Create(ctx context.Context, t *models.DepartmentTransfer) error {
	return translate(r.db.WithContext(ctx).Create(t).Error)
}

func (r *gormTransfers) Find(ctx context.Context, id uuid.UUID) (*models.DepartmentTransfer, error) {
	var t models.DepartmentTransfer
	if err := forUpdate(r.db.WithContext(ctx).Preload("Items")).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *gormTransfers) Update(ctx context.Context, t *models.DepartmentTransfer) error {
	return translate(r.db.WithContext(ctx).Model(&models.DepartmentTransfer{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"status":     t.Status,
			"decided_by": t.DecidedBy,
			"decided_at": t.DecidedAt,
			"updated_at": time.Now(),
		}).Error)
}

type gormUnits struct{ db *gorm.DB }

func (r *gormUnits) Create(ctx context.Context, u *models.Unit) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

func (r *gormUnits) Find(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var u models.Unit
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *gormUnits) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UnitStatus) error {
	return translate(r.db.WithContext(ctx).Model(&models.Unit{}).
		Where("id = ?", id).
		Update("status", status).Error)
}

func (r *gormUnits) AppendHistory(ctx context.Context, h *models.UnitStatusHistory) error {
	return translate(r.db.WithContext(ctx).Create(h).Error)
}

func (r *gormUnits) ListHistory(ctx context.Context, unitID uuid.UUID) ([]models.UnitStatusHistory, error) {
	var rows []models.UnitStatusHistory
	if err := r.db.WithContext(ctx).Where("unit_id = ?", unitID).Order("created_at").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (r *gormUnits) CreateReservation(ctx context.Context, res *models.UnitReservation) error {
	return translate(r.db.WithContext(ctx).Create(res).Error)
}

func (r *gormUnits) HasOccupyingReservation(ctx context.Context, unitID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UnitReservation{}).
		Where("unit_id = ? AND status IN ?", unitID,
			[]models.ReservationStatus{models.ReservationConfirmed, models.ReservationCheckedIn}).
		Count(&count).Error
	return count > 0, translate(err)
}

func (r *gormUnits) CreateMaintenance(ctx context.Context, m *models.MaintenanceRequest) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *gormUnits) FindMaintenance(ctx context.Context, id uuid.UUID) (*models.MaintenanceRequest, error) {
	var m models.MaintenanceRequest
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *gormUnits) SaveMaintenance(ctx context.Context, m *models.MaintenanceRequest) error {
	return translate(r.db.WithContext(ctx).Save(m).Error)
}

func (r *gormUnits) CountActiveMaintenance(ctx context.Context, unitID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MaintenanceRequest{}).
		Where("unit_id = ? AND status NOT IN ?", unitID,
			[]models.MaintenanceStatus{models.MaintenanceVerified, models.MaintenanceCancelled}).
		Count(&count).Error
	return count, translate(err)
}

type gormCustomers struct{ db *gorm.DB }

func (r *gormCustomers) Create(ctx context.Context, c *models.Customer) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *gormCustomers) Find(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var c models.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *gormCustomers) RecordVisit(ctx context.Context, id uuid.UUID, spent int64) error {
	return translate(r.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_orders": gorm.Expr("total_orders + ?", 1),
			"total_spent":  gorm.Expr("total_spent + ?", spent),
			"last_visit":   time.Now(),
		}).Error)
}

type gormAudit struct{ db *gorm.DB }

func (r *gormAudit) Record(ctx context.Context, entry *models.AuditLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *gormAudit) RecordStockAlert(ctx context.Context, entry *models.StockAlertLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}
