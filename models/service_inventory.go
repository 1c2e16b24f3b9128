package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PricingModel string

const (
	PricingPerCount PricingModel = "per_count"
	PricingPerTime  PricingModel = "per_time"
)

// ServiceInventory is a bookable service. A nil SectionID means the service is
// offered department-wide.
type ServiceInventory struct {
	ID             uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	Name           string       `gorm:"not null;uniqueIndex:idx_service_scope_name,priority:2" json:"name"`
	Description    string       `json:"description"`
	DepartmentID   uuid.UUID    `gorm:"type:uuid;index;not null" json:"departmentId"`
	SectionID      *uuid.UUID   `gorm:"type:uuid;index" json:"sectionId"`
	ScopeKey       string       `gorm:"not null;uniqueIndex:idx_service_scope_name,priority:1" json:"-"`
	PricingModel   PricingModel `gorm:"type:varchar(20);not null" json:"pricingModel"`
	PricePerCount  *int64       `json:"pricePerCount"`
	PricePerMinute *int64       `json:"pricePerMinute"`
	IsActive       bool         `gorm:"not null" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *ServiceInventory) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.ScopeKey = s.Scope().Key()
	return
}

func (s *ServiceInventory) Scope() Scope {
	return ScopeOf(s.DepartmentID, s.SectionID)
}

func (s *ServiceInventory) SetScope(scope Scope) {
	s.DepartmentID = scope.DepartmentID()
	s.SectionID = scope.SectionPtr()
	s.ScopeKey = scope.Key()
}
