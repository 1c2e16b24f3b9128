package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryItem is the scope-agnostic catalog entry.
type InventoryItem struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name             string    `gorm:"not null" json:"name"`
	SKU              string    `gorm:"uniqueIndex;not null" json:"sku"`
	Category         string    `gorm:"default:'General'" json:"category"`
	ReorderThreshold int64     `gorm:"default:0" json:"reorderThreshold"`
	UnitPrice        int64     `gorm:"not null;default:0" json:"unitPrice"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (i *InventoryItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

// DepartmentInventory is one ledger row: the balance of an item in one scope.
type DepartmentInventory struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	DepartmentID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"departmentId"`
	SectionID       *uuid.UUID `gorm:"type:uuid;index" json:"sectionId"`
	ScopeKey        string     `gorm:"not null;uniqueIndex:idx_inventory_scope_item,priority:1" json:"-"`
	InventoryItemID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_scope_item,priority:2" json:"inventoryItemId"`
	Quantity        int64      `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	Reserved        int64      `gorm:"not null;default:0;check:reserved >= 0" json:"reserved"`
	UnitPrice       int64      `gorm:"not null;default:0" json:"unitPrice"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (d *DepartmentInventory) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.ScopeKey = d.Scope().Key()
	return
}

func (d *DepartmentInventory) Scope() Scope {
	return ScopeOf(d.DepartmentID, d.SectionID)
}

func (d *DepartmentInventory) SetScope(s Scope) {
	d.DepartmentID = s.DepartmentID()
	d.SectionID = s.SectionPtr()
	d.ScopeKey = s.Key()
}

func (d *DepartmentInventory) Available() int64 {
	return d.Quantity - d.Reserved
}

// Extra is an add-on product. With TrackInventory=false it is a catalog flag
// rather than countable stock.
type Extra struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Description    string    `json:"description"`
	UnitPrice      int64     `gorm:"not null;default:0" json:"unitPrice"`
	TrackInventory bool      `gorm:"not null" json:"trackInventory"`
	IsActive       bool      `gorm:"not null" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e *Extra) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}

// DepartmentExtra mirrors DepartmentInventory for extras.
type DepartmentExtra struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	DepartmentID uuid.UUID  `gorm:"type:uuid;index;not null" json:"departmentId"`
	SectionID    *uuid.UUID `gorm:"type:uuid;index" json:"sectionId"`
	ScopeKey     string     `gorm:"not null;uniqueIndex:idx_extra_scope_extra,priority:1" json:"-"`
	ExtraID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_extra_scope_extra,priority:2" json:"extraId"`
	Quantity     int64      `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	Reserved     int64      `gorm:"not null;default:0;check:reserved >= 0" json:"reserved"`
	UnitPrice    int64      `gorm:"not null;default:0" json:"unitPrice"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (d *DepartmentExtra) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.ScopeKey = d.Scope().Key()
	return
}

func (d *DepartmentExtra) Scope() Scope {
	return ScopeOf(d.DepartmentID, d.SectionID)
}

func (d *DepartmentExtra) SetScope(s Scope) {
	d.DepartmentID = s.DepartmentID()
	d.SectionID = s.SectionPtr()
	d.ScopeKey = s.Key()
}

func (d *DepartmentExtra) Available() int64 {
	return d.Quantity - d.Reserved
}
