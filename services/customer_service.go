package services

import (
	"context"

	"hotelpro-backend/apperror"
	"hotelpro-backend/events"
	"hotelpro-backend/models"
	"hotelpro-backend/repository"
	"hotelpro-backend/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CreateCustomerInput struct {
	Name  string `json:"name" binding:"required" validate:"required,max=120"`
	Phone string `json:"phone"`
	Email string `json:"email" validate:"omitempty,email"`
	Notes string `json:"notes"`
}

type CustomerService struct {
	base
}

func NewCustomerService(store repository.Store, publisher events.Publisher, log *logrus.Logger) *CustomerService {
	return &CustomerService{base: newBase(store, publisher, log)}
}

func (s *CustomerService) Create(ctx context.Context, in CreateCustomerInput) (*models.Customer, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Phone != "" && !utils.ValidatePhone(in.Phone) {
		return nil, apperror.Validation("invalid phone number format")
	}
	customer := &models.Customer{
		Name:  in.Name,
		Phone: utils.NormalizePhone(in.Phone),
		Email: in.Email,
		Notes: in.Notes,
	}
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		return storeErr(tx.Customers().Create(ctx, customer), "customer")
	})
	if err != nil {
		return nil, s.fail("create_customer", err)
	}
	return customer, nil
}

func (s *CustomerService) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer *models.Customer
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		var err error
		customer, err = tx.Customers().Find(ctx, id)
		return storeErr(err, "customer %s", id)
	})
	return customer, err
}
