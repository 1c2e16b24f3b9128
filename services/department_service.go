package services

import (
	"context"

	"hotelpro-backend/events"
	"hotelpro-backend/models"
	"hotelpro-backend/repository"
	"hotelpro-backend/utils"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

func init() {
	_ = validate.RegisterValidation("code", func(fl validator.FieldLevel) bool {
		return utils.ValidateCode(fl.Field().String())
	})
}

type CreateDepartmentInput struct {
	Code string `json:"code" binding:"required" validate:"required,code"`
	Name string `json:"name" binding:"required" validate:"required,max=120"`
}

type CreateSectionInput struct {
	Slug string `json:"slug" binding:"required" validate:"required,code"`
	Name string `json:"name" binding:"required" validate:"required,max=120"`
}

// DepartmentService manages departments and their sections and resolves
// department codes into scopes.
type DepartmentService struct {
	base
}

func NewDepartmentService(store repository.Store, publisher events.Publisher, log *logrus.Logger) *DepartmentService {
	return &DepartmentService{base: newBase(store, publisher, log)}
}

func (s *DepartmentService) CreateDepartment(ctx context.Context, in CreateDepartmentInput) (*models.Department, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	dept := &models.Department{Code: in.Code, Name: in.Name, IsActive: true}
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		return storeErr(tx.Departments().CreateDepartment(ctx, dept), "department %q", in.Code)
	})
	if err != nil {
		return nil, s.fail("create_department", err)
	}
	return dept, nil
}

func (s *DepartmentService) CreateSection(ctx context.Context, parentCode string, in CreateSectionInput) (*models.Section, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	var section *models.Section
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		dept, err := tx.Departments().FindDepartmentByCode(ctx, parentCode)
		if err != nil {
			return storeErr(err, "department %q", parentCode)
		}
		section = &models.Section{DepartmentID: dept.ID, Slug: in.Slug, Name: in.Name, IsActive: true}
		return storeErr(tx.Departments().CreateSection(ctx, section), "section %q",
			models.SectionCode(parentCode, in.Slug))
	})
	if err != nil {
		return nil, s.fail("create_section", err)
	}
	return section, nil
}

// ResolveScope resolves "dept" or "dept:section" into a scope.
func (s *DepartmentService) ResolveScope(ctx context.Context, code string) (ResolvedScope, error) {
	var resolved ResolvedScope
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		var err error
		resolved, err = resolveScope(ctx, tx, code)
		return err
	})
	return resolved, err
}
