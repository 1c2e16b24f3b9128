package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SectionSeparator joins a parent department code and a section slug.
const SectionSeparator = ":"

type Department struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Code     string    `gorm:"uniqueIndex;not null" json:"code"`
	Name     string    `gorm:"not null" json:"name"`
	IsActive bool      `gorm:"not null" json:"isActive"`

	Sections []Section `gorm:"foreignKey:DepartmentID" json:"sections,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (d *Department) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return
}

func (d *Department) Scope() Scope {
	return ParentScope(d.ID)
}

type Section struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	DepartmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_department_section_slug,priority:1" json:"departmentId"`
	Slug         string    `gorm:"not null;uniqueIndex:idx_department_section_slug,priority:2" json:"slug"`
	Name         string    `gorm:"not null" json:"name"`
	IsActive     bool      `gorm:"not null" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Section) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

func (s *Section) Scope() Scope {
	return SectionScope(s.DepartmentID, s.ID)
}

// SectionCode builds the addressable code of a section, e.g. "restaurant:main".
func SectionCode(parentCode, slug string) string {
	return parentCode + SectionSeparator + slug
}
