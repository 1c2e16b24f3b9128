package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Scope is either a parent department or one section inside it. Parent-level
// stock and section stock are separate balances and are never merged.
type Scope struct {
	departmentID uuid.UUID
	sectionID    uuid.UUID
}

func ParentScope(departmentID uuid.UUID) Scope {
	return Scope{departmentID: departmentID}
}

func SectionScope(departmentID, sectionID uuid.UUID) Scope {
	return Scope{departmentID: departmentID, sectionID: sectionID}
}

// ScopeOf rebuilds a scope from the nullable column pair used by the tables.
func ScopeOf(departmentID uuid.UUID, sectionID *uuid.UUID) Scope {
	if sectionID == nil || *sectionID == uuid.Nil {
		return ParentScope(departmentID)
	}
	return SectionScope(departmentID, *sectionID)
}

func (s Scope) DepartmentID() uuid.UUID {
	return s.departmentID
}

func (s Scope) SectionID() (uuid.UUID, bool) {
	return s.sectionID, s.sectionID != uuid.Nil
}

// SectionPtr returns the section id in column form (nil for parent scope).
func (s Scope) SectionPtr() *uuid.UUID {
	if s.sectionID == uuid.Nil {
		return nil
	}
	id := s.sectionID
	return &id
}

func (s Scope) IsSection() bool {
	return s.sectionID != uuid.Nil
}

func (s Scope) IsZero() bool {
	return s.departmentID == uuid.Nil
}

func (s Scope) SameDepartment(other Scope) bool {
	return s.departmentID == other.departmentID
}

// Key is the stable string identity used in unique indexes.
func (s Scope) Key() string {
	if s.sectionID == uuid.Nil {
		return s.departmentID.String()
	}
	return s.departmentID.String() + ":" + s.sectionID.String()
}

func (s Scope) String() string {
	if s.sectionID == uuid.Nil {
		return fmt.Sprintf("department(%s)", s.departmentID)
	}
	return fmt.Sprintf("section(%s/%s)", s.departmentID, s.sectionID)
}
