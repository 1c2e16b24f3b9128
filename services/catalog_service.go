package services

import (
	"context"
	"errors"
	"sort"

	"hotelpro-backend/apperror"
	"hotelpro-backend/events"
	"hotelpro-backend/models"
	"hotelpro-backend/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CreateServiceInput struct {
	Name           string              `json:"name" binding:"required" validate:"required,max=120"`
	Description    string              `json:"description" validate:"max=500"`
	Scope          string              `json:"scope" binding:"required" validate:"required"`
	PricingModel   models.PricingModel `json:"pricingModel" binding:"required" validate:"required,oneof=per_count per_time"`
	PricePerCount  *int64              `json:"pricePerCount" validate:"omitempty,gte=0"`
	PricePerMinute *int64              `json:"pricePerMinute" validate:"omitempty,gte=0"`
}

// ServiceCatalog owns bookable services. A service has no quantity: it is
// offered by exactly one scope and moves as a whole.
type ServiceCatalog struct {
	base
}

func NewServiceCatalog(store repository.Store, publisher events.Publisher, log *logrus.Logger) *ServiceCatalog {
	return &ServiceCatalog{base: newBase(store, publisher, log)}
}

func checkPricing(in CreateServiceInput) error {
	switch in.PricingModel {
	case models.PricingPerCount:
		if in.PricePerCount == nil || in.PricePerMinute != nil {
			return apperror.Validation("per_count services take pricePerCount only")
		}
	case models.PricingPerTime:
		if in.PricePerMinute == nil || in.PricePerCount != nil {
			return apperror.Validation("per_time services take pricePerMinute only")
		}
	default:
		return apperror.Validation("unknown pricing model %q", in.PricingModel)
	}
	return nil
}

func (s *ServiceCatalog) Create(ctx context.Context, in CreateServiceInput) (*models.ServiceInventory, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkPricing(in); err != nil {
		return nil, err
	}

	svc := &models.ServiceInventory{
		Name:           in.Name,
		Description:    in.Description,
		PricingModel:   in.PricingModel,
		PricePerCount:  in.PricePerCount,
		PricePerMinute: in.PricePerMinute,
		IsActive:       true,
	}
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		scope, err := resolveScope(ctx, tx, in.Scope)
		if err != nil {
			return err
		}
		svc.SetScope(scope.Scope)
		if _, err := tx.Services().FindByName(ctx, scope.Scope, in.Name); err == nil {
			return apperror.Conflict("service %q already exists in %s", in.Name, scope.Code)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return storeErr(err, "service")
		}
		return storeErr(tx.Services().Create(ctx, svc), "service %q in %s", in.Name, scope.Code)
	})
	if err != nil {
		return nil, s.fail("create_service", err)
	}
	return svc, nil
}

// ListForSection returns the services visible from a scope: its own plus the
// department-wide ones. Section-scoped services come first, then by name.
// For a parent scope only department-wide services are returned.
func (s *ServiceCatalog) ListForSection(ctx context.Context, scopeCode string) ([]models.ServiceInventory, error) {
	var list []models.ServiceInventory
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		scope, err := resolveScope(ctx, tx, scopeCode)
		if err != nil {
			return err
		}
		sectionID, _ := scope.Scope.SectionID()
		list, err = tx.Services().ListVisible(ctx, scope.Scope.DepartmentID(), sectionID)
		return storeErr(err, "services")
	})
	if err != nil {
		return nil, err
	}
	sortServices(list)
	return list, nil
}

func sortServices(list []models.ServiceInventory) {
	sort.SliceStable(list, func(i, j int) bool {
		si, sj := list[i].SectionID != nil, list[j].SectionID != nil
		if si != sj {
			return si
		}
		return list[i].Name < list[j].Name
	})
}

// moveService reassigns a service from one scope to another inside tx.
func moveService(ctx context.Context, tx repository.Tx, serviceID uuid.UUID, from, to models.Scope) error {
	if from.Key() == to.Key() {
		return apperror.Validation("source and destination are the same scope")
	}
	svc, err := tx.Services().Find(ctx, serviceID)
	if err != nil {
		return storeErr(err, "service %s", serviceID)
	}
	if svc.Scope().Key() != from.Key() {
		return apperror.Conflict("service %q is not offered by %s", svc.Name, from)
	}
	if _, err := tx.Services().FindByName(ctx, to, svc.Name); err == nil {
		return apperror.Conflict("service %q already exists in %s", svc.Name, to)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return storeErr(err, "service")
	}
	svc.SetScope(to)
	return storeErr(tx.Services().Save(ctx, svc), "service %q", svc.Name)
}

// Transfer moves a service between scopes in one transaction.
func (s *ServiceCatalog) Transfer(ctx context.Context, serviceID uuid.UUID, from, to models.Scope) error {
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		return moveService(ctx, tx, serviceID, from, to)
	})
	if err != nil {
		return s.fail("transfer_service", err)
	}
	return nil
}
