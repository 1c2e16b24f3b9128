// Package memory is an in-process repository.Store. Transactions are
// serialised by one mutex and run against a private copy of the state that
// replaces the live state only when the transaction function succeeds.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"hotelpro-backend/models"
	"hotelpro-backend/repository"

	"github.com/google/uuid"
)

// ErrCheckViolation mirrors the quantity/reserved check constraints of the
// postgres schema.
var ErrCheckViolation = errors.New("check constraint violated")

type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

type state struct {
	departments   map[uuid.UUID]models.Department
	sections      map[uuid.UUID]models.Section
	items         map[uuid.UUID]models.InventoryItem
	balances      map[uuid.UUID]models.DepartmentInventory
	extras        map[uuid.UUID]models.Extra
	extraBalances map[uuid.UUID]models.DepartmentExtra
	services      map[uuid.UUID]models.ServiceInventory
	orders        map[uuid.UUID]models.Order
	transfers     map[uuid.UUID]models.DepartmentTransfer
	units         map[uuid.UUID]models.Unit
	reservations  map[uuid.UUID]models.UnitReservation
	maintenance   map[uuid.UUID]models.MaintenanceRequest
	history       []models.UnitStatusHistory
	customers     map[uuid.UUID]models.Customer
	audit         []models.AuditLog
	stockAlerts   []models.StockAlertLog
}

func newState() *state {
	return &state{
		departments:   map[uuid.UUID]models.Department{},
		sections:      map[uuid.UUID]models.Section{},
		items:         map[uuid.UUID]models.InventoryItem{},
		balances:      map[uuid.UUID]models.DepartmentInventory{},
		extras:        map[uuid.UUID]models.Extra{},
		extraBalances: map[uuid.UUID]models.DepartmentExtra{},
		services:      map[uuid.UUID]models.ServiceInventory{},
		orders:        map[uuid.UUID]models.Order{},
		transfers:     map[uuid.UUID]models.DepartmentTransfer{},
		units:         map[uuid.UUID]models.Unit{},
		reservations:  map[uuid.UUID]models.UnitReservation{},
		maintenance:   map[uuid.UUID]models.MaintenanceRequest{},
		customers:     map[uuid.UUID]models.Customer{},
	}
}

func copyMap[K comparable, V any](m map[K]V, cp func(V) V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		if cp != nil {
			v = cp(v)
		}
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		departments:   copyMap(s.departments, nil),
		sections:      copyMap(s.sections, nil),
		items:         copyMap(s.items, nil),
		balances:      copyMap(s.balances, nil),
		extras:        copyMap(s.extras, nil),
		extraBalances: copyMap(s.extraBalances, nil),
		services:      copyMap(s.services, nil),
		orders:        copyMap(s.orders, cloneOrder),
		transfers:     copyMap(s.transfers, cloneTransfer),
		units:         copyMap(s.units, nil),
		reservations:  copyMap(s.reservations, nil),
		maintenance:   copyMap(s.maintenance, nil),
		history:       append([]models.UnitStatusHistory(nil), s.history...),
		customers:     copyMap(s.customers, nil),
		audit:         append([]models.AuditLog(nil), s.audit...),
		stockAlerts:   append([]models.StockAlertLog(nil), s.stockAlerts...),
	}
}

func cloneOrder(o models.Order) models.Order {
	o.Lines = append([]models.OrderLine(nil), o.Lines...)
	o.Departments = append([]models.OrderDepartment(nil), o.Departments...)
	o.Payments = append([]models.Payment(nil), o.Payments...)
	o.Fulfillments = append([]models.Fulfillment(nil), o.Fulfillments...)
	o.Discounts = append([]models.Discount(nil), o.Discounts...)
	return o
}

func cloneTransfer(t models.DepartmentTransfer) models.DepartmentTransfer {
	t.Items = append([]models.DepartmentTransferItem(nil), t.Items...)
	return t
}

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

type memTx struct {
	st *state
}

func (t *memTx) Departments() repository.DepartmentRepository { return departments{t.st} }
func (t *memTx) Inventory() repository.InventoryRepository     { return inventory{t.st} }
func (t *memTx) Extras() repository.ExtraRepository            { return extras{t.st} }
func (t *memTx) Services() repository.ServiceRepository        { return services{t.st} }
func (t *memTx) Orders() repository.OrderRepository            { return orders{t.st} }
func (t *memTx) Transfers() repository.TransferRepository      { return transfers{t.st} }
func (t *memTx) Units() repository.UnitRepository              { return units{t.st} }
func (t *memTx) Customers() repository.CustomerRepository      { return customers{t.st} }
func (t *memTx) Audit() repository.AuditRepository             { return audit{t.st} }

type departments struct{ st *state }

func (r departments) CreateDepartment(_ context.Context, d *models.Department) error {
	for _, existing := range r.st.departments {
		if existing.Code == d.Code {
			return repository.ErrDuplicate
		}
	}
	_ = d.BeforeCreate(nil)
	stamp(&d.CreatedAt, &d.UpdatedAt)
	stored := *d
	stored.Sections = nil
	r.st.departments[d.ID] = stored
	return nil
}

func (r departments) CreateSection(_ context.Context, s *models.Section) error {
	if _, ok := r.st.departments[s.DepartmentID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range r.st.sections {
		if existing.DepartmentID == s.DepartmentID && existing.Slug == s.Slug {
			return repository.ErrDuplicate
		}
	}
	_ = s.BeforeCreate(nil)
	stamp(&s.CreatedAt, &s.UpdatedAt)
	r.st.sections[s.ID] = *s
	return nil
}

func (r departments) FindDepartmentByCode(_ context.Context, code string) (*models.Department, error) {
	for _, d := range r.st.departments {
		if d.Code == code {
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r departments) FindDepartmentByID(_ context.Context, id uuid.UUID) (*models.Department, error) {
	d, ok := r.st.departments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r departments) FindSection(_ context.Context, departmentID uuid.UUID, slug string) (*models.Section, error) {
	for _, s := range r.st.sections {
		if s.DepartmentID == departmentID && s.Slug == slug {
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r departments) FindSectionByID(_ context.Context, id uuid.UUID) (*models.Section, error) {
	s, ok := r.st.sections[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

type inventory struct{ st *state }

func (r inventory) CreateItem(_ context.Context, item *models.InventoryItem) error {
	for _, existing := range r.st.items {
		if existing.SKU == item.SKU {
			return repository.ErrDuplicate
		}
	}
	_ = item.BeforeCreate(nil)
	stamp(&item.CreatedAt, &item.UpdatedAt)
	r.st.items[item.ID] = *item
	return nil
}

func (r inventory) FindItem(_ context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	item, ok := r.st.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

func (r inventory) FindBalance(_ context.Context, scope models.Scope, itemID uuid.UUID) (*models.DepartmentInventory, error) {
	key := scope.Key()
	for _, row := range r.st.balances {
		if row.ScopeKey == key && row.InventoryItemID == itemID {
			return &row, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r inventory) SaveBalance(_ context.Context, row *models.DepartmentInventory) error {
	if row.Quantity < 0 || row.Reserved < 0 {
		return ErrCheckViolation
	}
	row.ScopeKey = row.Scope().Key()
	if row.ID == uuid.Nil {
		for _, existing := range r.st.balances {
			if existing.ScopeKey == row.ScopeKey && existing.InventoryItemID == row.InventoryItemID {
				return repository.ErrDuplicate
			}
		}
		_ = row.BeforeCreate(nil)
	}
	stamp(&row.CreatedAt, &row.UpdatedAt)
	r.st.balances[row.ID] = *row
	return nil
}

func (r inventory) ListBalances(_ context.Context) ([]models.DepartmentInventory, error) {
	rows := make([]models.DepartmentInventory, 0, len(r.st.balances))
	for _, row := range r.st.balances {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ScopeKey != rows[j].ScopeKey {
			return rows[i].ScopeKey < rows[j].ScopeKey
		}
		return rows[i].InventoryItemID.String() < rows[j].InventoryItemID.String()
	})
	return rows, nil
}

type extras struct{ st *state }

func (r extras) CreateExtra(_ context.Context, extra *models.Extra) error {
	_ = extra.BeforeCreate(nil)
	stamp(&extra.CreatedAt, &extra.UpdatedAt)
	r.st.extras[extra.ID] = *extra
	return nil
}

func (r extras) FindExtra(_ context.Context, id uuid.UUID) (*models.Extra, error) {
	extra, ok := r.st.extras[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &extra, nil
}

func (r extras) FindBalance(_ context.Context, scope models.Scope, extraID uuid.UUID) (*models.DepartmentExtra, error) {
	key := scope.Key()
	for _, row := range r.st.extraBalances {
		if row.ScopeKey == key && row.ExtraID == extraID {
			return &row, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r extras) SaveBalance(_ context.Context, row *models.DepartmentExtra) error {
	if row.Quantity < 0 || row.Reserved < 0 {
		return ErrCheckViolation
	}
	row.ScopeKey = row.Scope().Key()
	if row.ID == uuid.Nil {
		for _, existing := range r.st.extraBalances {
			if existing.ScopeKey == row.ScopeKey && existing.ExtraID == row.ExtraID {
				return repository.ErrDuplicate
			}
		}
		_ = row.BeforeCreate(nil)
	}
	stamp(&row.CreatedAt, &row.UpdatedAt)
	r.st.extraBalances[row.ID] = *row
	return nil
}

type services struct{ st *state }

func (r services) Create(_ context.Context, svc *models.ServiceInventory) error {
	svc.ScopeKey = svc.Scope().Key()
	for _, existing := range r.st.services {
		if existing.ScopeKey == svc.ScopeKey && existing.Name == svc.Name {
			return repository.ErrDuplicate
		}
	}
	_ = svc.BeforeCreate(nil)
	stamp(&svc.CreatedAt, &svc.UpdatedAt)
	r.st.services[svc.ID] = *svc
	return nil
}

func (r services) Find(_ context.Context, id uuid.UUID) (*models.ServiceInventory, error) {
	svc, ok := r.st.services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &svc, nil
}

func (r services) FindByName(_ context.Context, scope models.Scope, name string) (*models.ServiceInventory, error) {
	key := scope.Key()
	for _, svc := range r.st.services {
		if svc.ScopeKey == key && svc.Name == name {
			return &svc, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r services) Save(_ context.Context, svc *models.ServiceInventory) error {
	svc.ScopeKey = svc.Scope().Key()
	for id, existing := range r.st.services {
		if id != svc.ID && existing.ScopeKey == svc.ScopeKey && existing.Name == svc.Name {
			return repository.ErrDuplicate
		}
	}
	if _, ok := r.st.services[svc.ID]; !ok {
		return repository.ErrNotFound
	}
	stamp(&svc.CreatedAt, &svc.UpdatedAt)
	r.st.services[svc.ID] = *svc
	return nil
}

func (r services) ListVisible(_ context.Context, departmentID, sectionID uuid.UUID) ([]models.ServiceInventory, error) {
	var out []models.ServiceInventory
	for _, svc := range r.st.services {
		if svc.DepartmentID != departmentID {
			continue
		}
		if svc.SectionID == nil || *svc.SectionID == sectionID {
			out = append(out, svc)
		}
	}
	return out, nil
}

type orders struct{ st *state }

func (r orders) Create(_ context.Context, order *models.Order) error {
	for _, existing := range r.st.orders {
		if existing.OrderNumber == order.OrderNumber {
			return repository.ErrDuplicate
		}
		if order.IdempotencyKey != nil && existing.IdempotencyKey != nil &&
			*existing.IdempotencyKey == *order.IdempotencyKey {
			return repository.ErrDuplicate
		}
	}
	_ = order.BeforeCreate(nil)
	stamp(&order.CreatedAt, &order.UpdatedAt)
	for i := range order.Lines {
		line := &order.Lines[i]
		line.OrderID = order.ID
		_ = line.BeforeCreate(nil)
		stamp(&line.CreatedAt, &line.UpdatedAt)
	}
	for i := range order.Departments {
		d := &order.Departments[i]
		d.OrderID = order.ID
		_ = d.BeforeCreate(nil)
		stamp(&d.CreatedAt, &d.UpdatedAt)
	}
	for i := range order.Payments {
		p := &order.Payments[i]
		p.OrderID = order.ID
		_ = p.BeforeCreate(nil)
		stamp(&p.CreatedAt, nil)
	}
	for i := range order.Discounts {
		d := &order.Discounts[i]
		d.OrderID = order.ID
		_ = d.BeforeCreate(nil)
	}
	r.st.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r orders) Find(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := r.st.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	order = cloneOrder(order)
	return &order, nil
}

func (r orders) FindByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	for _, order := range r.st.orders {
		if order.IdempotencyKey != nil && *order.IdempotencyKey == key {
			order = cloneOrder(order)
			return &order, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r orders) UpdateHeader(_ context.Context, order *models.Order) error {
	stored, ok := r.st.orders[order.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = order.Status
	stored.PaymentStatus = order.PaymentStatus
	stored.AmountPaid = order.AmountPaid
	stored.CancelReason = order.CancelReason
	stored.RefundReason = order.RefundReason
	stored.Notes = order.Notes
	stamp(nil, &stored.UpdatedAt)
	r.st.orders[order.ID] = stored
	return nil
}

func (r orders) UpdateLine(_ context.Context, line *models.OrderLine) error {
	stored, ok := r.st.orders[line.OrderID]
	if !ok {
		return repository.ErrNotFound
	}
	target := stored.Line(line.ID)
	if target == nil {
		return repository.ErrNotFound
	}
	target.Status = line.Status
	stamp(nil, &target.UpdatedAt)
	r.st.orders[line.OrderID] = stored
	return nil
}

func (r orders) ReplaceDepartments(_ context.Context, orderID uuid.UUID, rows []models.OrderDepartment) error {
	stored, ok := r.st.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	created := map[string]time.Time{}
	for _, d := range stored.Departments {
		created[d.DepartmentCode] = d.CreatedAt
	}
	seen := map[string]bool{}
	replaced := make([]models.OrderDepartment, 0, len(rows))
	for _, row := range rows {
		if seen[row.DepartmentCode] {
			return repository.ErrDuplicate
		}
		seen[row.DepartmentCode] = true
		row.OrderID = orderID
		row.ID = uuid.Nil
		_ = row.BeforeCreate(nil)
		row.CreatedAt = created[row.DepartmentCode]
		stamp(&row.CreatedAt, &row.UpdatedAt)
		replaced = append(replaced, row)
	}
	stored.Departments = replaced
	r.st.orders[orderID] = stored
	return nil
}

func (r orders) AddPayment(_ context.Context, p *models.Payment) error {
	stored, ok := r.st.orders[p.OrderID]
	if !ok {
		return repository.ErrNotFound
	}
	_ = p.BeforeCreate(nil)
	stamp(&p.CreatedAt, nil)
	stored.Payments = append(stored.Payments, *p)
	r.st.orders[p.OrderID] = stored
	return nil
}

func (r orders) AddFulfillment(_ context.Context, f *models.Fulfillment) error {
	stored, ok := r.st.orders[f.OrderID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, existing := range stored.Fulfillments {
		if existing.OrderLineID == f.OrderLineID {
			return repository.ErrDuplicate
		}
	}
	_ = f.BeforeCreate(nil)
	stamp(&f.CreatedAt, nil)
	stored.Fulfillments = append(stored.Fulfillments, *f)
	r.st.orders[f.OrderID] = stored
	return nil
}

func (r orders) ListDepartmentQueue(_ context.Context, departmentCode string, status models.LineStatus) ([]models.OrderDepartment, error) {
	var rows []models.OrderDepartment
	for _, order := range r.st.orders {
		for _, d := range order.Departments {
			if d.DepartmentCode != departmentCode {
				continue
			}
			if status != "" && d.Status != status {
				continue
			}
			rows = append(rows, d)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].OrderID.String() < rows[j].OrderID.String()
	})
	return rows, nil
}

type transfers struct{ st *state }

func (r transfers) Create(_ context.Context, t *models.DepartmentTransfer) error {
	_ = t.BeforeCreate(nil)
	stamp(&t.CreatedAt, &t.UpdatedAt)
	for i := range t.Items {
		t.Items[i].TransferID = t.ID
		_ = t.Items[i].BeforeCreate(nil)
	}
	r.st.transfers[t.ID] = cloneTransfer(*t)
	return nil
}

func (r transfers) Find(_ context.Context, id uuid.UUID) (*models.DepartmentTransfer, error) {
	t, ok := r.st.transfers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t = cloneTransfer(t)
	return &t, nil
}

func (r transfers) Update(_ context.Context, t *models.DepartmentTransfer) error {
	stored, ok := r.st.transfers[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = t.Status
	stored.DecidedBy = t.DecidedBy
	stored.DecidedAt = t.DecidedAt
	stamp(nil, &stored.UpdatedAt)
	r.st.transfers[t.ID] = stored
	return nil
}

type units struct{ st *state }

func (r units) Create(_ context.Context, u *models.Unit) error {
	for _, existing := range r.st.units {
		if existing.Number == u.Number {
			return repository.ErrDuplicate
		}
	}
	_ = u.BeforeCreate(nil)
	stamp(&u.CreatedAt, &u.UpdatedAt)
	r.st.units[u.ID] = *u
	return nil
}

func (r units) Find(_ context.Context, id uuid.UUID) (*models.Unit, error) {
	u, ok := r.st.units[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r units) UpdateStatus(_ context.Context, id uuid.UUID, status models.UnitStatus) error {
	u, ok := r.st.units[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Status = status
	stamp(nil, &u.UpdatedAt)
	r.st.units[id] = u
	return nil
}

func (r units) AppendHistory(_ context.Context, h *models.UnitStatusHistory) error {
	_ = h.BeforeCreate(nil)
	stamp(&h.CreatedAt, nil)
	r.st.history = append(r.st.history, *h)
	return nil
}

// ListHistory returns entries in insertion order.
func (r units) ListHistory(_ context.Context, unitID uuid.UUID) ([]models.UnitStatusHistory, error) {
	var rows []models.UnitStatusHistory
	for _, h := range r.st.history {
		if h.UnitID == unitID {
			rows = append(rows, h)
		}
	}
	return rows, nil
}

func (r units) CreateReservation(_ context.Context, res *models.UnitReservation) error {
	if _, ok := r.st.units[res.UnitID]; !ok {
		return repository.ErrNotFound
	}
	_ = res.BeforeCreate(nil)
	stamp(&res.CreatedAt, &res.UpdatedAt)
	r.st.reservations[res.ID] = *res
	return nil
}

func (r units) HasOccupyingReservation(_ context.Context, unitID uuid.UUID) (bool, error) {
	for _, res := range r.st.reservations {
		if res.UnitID == unitID && res.Status.AllowsOccupancy() {
			return true, nil
		}
	}
	return false, nil
}

func (r units) CreateMaintenance(_ context.Context, m *models.MaintenanceRequest) error {
	if _, ok := r.st.units[m.UnitID]; !ok {
		return repository.ErrNotFound
	}
	_ = m.BeforeCreate(nil)
	stamp(&m.CreatedAt, &m.UpdatedAt)
	r.st.maintenance[m.ID] = *m
	return nil
}

func (r units) FindMaintenance(_ context.Context, id uuid.UUID) (*models.MaintenanceRequest, error) {
	m, ok := r.st.maintenance[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r units) SaveMaintenance(_ context.Context, m *models.MaintenanceRequest) error {
	if _, ok := r.st.maintenance[m.ID]; !ok {
		return repository.ErrNotFound
	}
	stamp(&m.CreatedAt, &m.UpdatedAt)
	r.st.maintenance[m.ID] = *m
	return nil
}

func (r units) CountActiveMaintenance(_ context.Context, unitID uuid.UUID) (int64, error) {
	var count int64
	for _, m := range r.st.maintenance {
		if m.UnitID == unitID && m.Status.Active() {
			count++
		}
	}
	return count, nil
}

type customers struct{ st *state }

func (r customers) Create(_ context.Context, c *models.Customer) error {
	_ = c.BeforeCreate(nil)
	stamp(&c.CreatedAt, &c.UpdatedAt)
	r.st.customers[c.ID] = *c
	return nil
}

func (r customers) Find(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	c, ok := r.st.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r customers) RecordVisit(_ context.Context, id uuid.UUID, spent int64) error {
	c, ok := r.st.customers[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	c.TotalOrders++
	c.TotalSpent += spent
	c.LastVisit = &now
	r.st.customers[id] = c
	return nil
}

type audit struct{ st *state }

func (r audit) Record(_ context.Context, entry *models.AuditLog) error {
	_ = entry.BeforeCreate(nil)
	stamp(&entry.CreatedAt, nil)
	r.st.audit = append(r.st.audit, *entry)
	return nil
}

func (r audit) RecordStockAlert(_ context.Context, entry *models.StockAlertLog) error {
	_ = entry.BeforeCreate(nil)
	r.st.stockAlerts = append(r.st.stockAlerts, *entry)
	return nil
}

// AuditEntries returns a copy of the committed audit log.
func (s *Store) AuditEntries() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.state.audit...)
}

// StockAlerts returns a copy of the committed stock alert log.
func (s *Store) StockAlerts() []models.StockAlertLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StockAlertLog(nil), s.state.stockAlerts...)
}
