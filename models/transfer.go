package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransferStatus string

const (
	TransferStatusPending  TransferStatus = "pending"
	TransferStatusApproved TransferStatus = "approved"
	TransferStatusRejected TransferStatus = "rejected"
)

type TransferKind string

const (
	TransferKindInventory TransferKind = "inventory"
	TransferKindExtra     TransferKind = "extra"
	TransferKindService   TransferKind = "service"
)

type DepartmentTransfer struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	FromDepartmentID uuid.UUID      `gorm:"type:uuid;index;not null" json:"fromDepartmentId"`
	FromSectionID    *uuid.UUID     `gorm:"type:uuid" json:"fromSectionId"`
	FromCode         string         `gorm:"not null" json:"fromCode"`
	ToDepartmentID   uuid.UUID      `gorm:"type:uuid;index;not null" json:"toDepartmentId"`
	ToSectionID      *uuid.UUID     `gorm:"type:uuid" json:"toSectionId"`
	ToCode           string         `gorm:"not null" json:"toCode"`
	Status           TransferStatus `gorm:"type:varchar(20);index;not null;default:'pending'" json:"status"`
	RequestedBy      string         `json:"requestedBy"`
	DecidedBy        string         `json:"decidedBy,omitempty"`
	DecidedAt        *time.Time     `json:"decidedAt,omitempty"`
	Notes            string         `json:"notes"`

	Items []DepartmentTransferItem `gorm:"foreignKey:TransferID" json:"items"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *DepartmentTransfer) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

func (t *DepartmentTransfer) FromScope() Scope {
	return ScopeOf(t.FromDepartmentID, t.FromSectionID)
}

func (t *DepartmentTransfer) ToScope() Scope {
	return ScopeOf(t.ToDepartmentID, t.ToSectionID)
}

type DepartmentTransferItem struct {
	ID         uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	TransferID uuid.UUID    `gorm:"type:uuid;index;not null" json:"transferId"`
	Kind       TransferKind `gorm:"type:varchar(20);not null" json:"kind"`
	ItemID     uuid.UUID    `gorm:"type:uuid;not null" json:"itemId"`
	Quantity   int64        `gorm:"not null;default:0" json:"quantity"`
}

func (i *DepartmentTransferItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}
