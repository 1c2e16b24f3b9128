package services

import (
	"context"
	"strings"

	"hotelpro-backend/apperror"
	"hotelpro-backend/models"
	"hotelpro-backend/repository"

	"github.com/google/uuid"
)

// ResolvedScope is a scope together with the code it is addressed by.
type ResolvedScope struct {
	Scope models.Scope
	Code  string
}

// resolveScope turns "dept" or "dept:section" into a scope. There is no
// fallback: a section code whose section is missing is NotFound even when the
// parent department exists.
func resolveScope(ctx context.Context, tx repository.Tx, code string) (ResolvedScope, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return ResolvedScope{}, apperror.Validation("department code is required")
	}
	parts := strings.Split(code, models.SectionSeparator)
	if len(parts) > 2 || parts[0] == "" || (len(parts) == 2 && parts[1] == "") {
		return ResolvedScope{}, apperror.Validation("malformed department code %q", code)
	}

	dept, err := tx.Departments().FindDepartmentByCode(ctx, parts[0])
	if err != nil {
		return ResolvedScope{}, storeErr(err, "department %q", parts[0])
	}
	if len(parts) == 1 {
		return ResolvedScope{Scope: dept.Scope(), Code: dept.Code}, nil
	}

	section, err := tx.Departments().FindSection(ctx, dept.ID, parts[1])
	if err != nil {
		return ResolvedScope{}, storeErr(err, "section %q", code)
	}
	return ResolvedScope{Scope: section.Scope(), Code: models.SectionCode(dept.Code, section.Slug)}, nil
}

// resolveEndpoint accepts either a scope code or a section id.
func resolveEndpoint(ctx context.Context, tx repository.Tx, code string, sectionID *uuid.UUID) (ResolvedScope, error) {
	if sectionID != nil && *sectionID != uuid.Nil {
		if code != "" {
			return ResolvedScope{}, apperror.Validation("give either a code or a section id, not both")
		}
		section, err := tx.Departments().FindSectionByID(ctx, *sectionID)
		if err != nil {
			return ResolvedScope{}, storeErr(err, "section %s", *sectionID)
		}
		dept, err := tx.Departments().FindDepartmentByID(ctx, section.DepartmentID)
		if err != nil {
			return ResolvedScope{}, storeErr(err, "department %s", section.DepartmentID)
		}
		return ResolvedScope{Scope: section.Scope(), Code: models.SectionCode(dept.Code, section.Slug)}, nil
	}
	return resolveScope(ctx, tx, code)
}
