package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UnitStatus string

const (
	UnitStatusAvailable   UnitStatus = "AVAILABLE"
	UnitStatusOccupied    UnitStatus = "OCCUPIED"
	UnitStatusCleaning    UnitStatus = "CLEANING"
	UnitStatusMaintenance UnitStatus = "MAINTENANCE"
	UnitStatusBlocked     UnitStatus = "BLOCKED"
)

func (s UnitStatus) Valid() bool {
	switch s {
	case UnitStatusAvailable, UnitStatusOccupied, UnitStatusCleaning,
		UnitStatusMaintenance, UnitStatusBlocked:
		return true
	}
	return false
}

// Unit is a room or other bookable space.
type Unit struct {
	ID     uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Number string     `gorm:"uniqueIndex;not null" json:"number"`
	Name   string     `json:"name"`
	Type   string     `gorm:"default:'room'" json:"type"`
	Status UnitStatus `gorm:"type:varchar(20);not null;default:'AVAILABLE'" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *Unit) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

type ReservationStatus string

const (
	ReservationPending    ReservationStatus = "PENDING"
	ReservationConfirmed  ReservationStatus = "CONFIRMED"
	ReservationCheckedIn  ReservationStatus = "CHECKED_IN"
	ReservationCheckedOut ReservationStatus = "CHECKED_OUT"
	ReservationCancelled  ReservationStatus = "CANCELLED"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationCheckedIn,
		ReservationCheckedOut, ReservationCancelled:
		return true
	}
	return false
}

// AllowsOccupancy reports whether a unit may be marked OCCUPIED on the
// strength of this reservation.
func (s ReservationStatus) AllowsOccupancy() bool {
	return s == ReservationConfirmed || s == ReservationCheckedIn
}

type UnitReservation struct {
	ID         uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	UnitID     uuid.UUID         `gorm:"type:uuid;index;not null" json:"unitId"`
	CustomerID *uuid.UUID        `gorm:"type:uuid" json:"customerId"`
	GuestName  string            `json:"guestName"`
	Status     ReservationStatus `gorm:"type:varchar(20);not null" json:"status"`
	CheckIn    *time.Time        `json:"checkIn"`
	CheckOut   *time.Time        `json:"checkOut"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *UnitReservation) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// UnitStatusHistory is append-only.
type UnitStatusHistory struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UnitID         uuid.UUID  `gorm:"type:uuid;index;not null" json:"unitId"`
	PreviousStatus UnitStatus `gorm:"type:varchar(20);not null" json:"previousStatus"`
	NewStatus      UnitStatus `gorm:"type:varchar(20);not null" json:"newStatus"`
	Reason         string     `json:"reason"`
	Notes          string     `json:"notes"`
	ChangedBy      string     `json:"changedBy"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (h *UnitStatusHistory) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return
}

type MaintenanceStatus string

const (
	MaintenanceOpen       MaintenanceStatus = "OPEN"
	MaintenanceInProgress MaintenanceStatus = "IN_PROGRESS"
	MaintenanceCompleted  MaintenanceStatus = "COMPLETED"
	MaintenanceVerified   MaintenanceStatus = "VERIFIED"
	MaintenanceCancelled  MaintenanceStatus = "CANCELLED"
)

// Active reports whether the request still keeps its unit out of service.
func (s MaintenanceStatus) Active() bool {
	return s != MaintenanceVerified && s != MaintenanceCancelled
}

type MaintenanceRequest struct {
	ID          uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	UnitID      uuid.UUID         `gorm:"type:uuid;index;not null" json:"unitId"`
	Title       string            `gorm:"not null" json:"title"`
	Description string            `json:"description"`
	Status      MaintenanceStatus `gorm:"type:varchar(20);index;not null" json:"status"`
	ReportedBy  string            `json:"reportedBy"`
	VerifiedBy  string            `json:"verifiedBy,omitempty"`
	VerifiedAt  *time.Time        `json:"verifiedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *MaintenanceRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
