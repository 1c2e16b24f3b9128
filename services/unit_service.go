package services

import (
	"context"
	"time"

	"hotelpro-backend/apperror"
	"hotelpro-backend/events"
	"hotelpro-backend/models"
	"hotelpro-backend/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CreateUnitInput struct {
	Number string `json:"number" binding:"required" validate:"required,max=20"`
	Name   string `json:"name" validate:"max=120"`
	Type   string `json:"type" validate:"max=40"`
}

type UnitStatusInput struct {
	Status models.UnitStatus `json:"status" binding:"required"`
	Reason string            `json:"reason"`
	Notes  string            `json:"notes"`
}

type ReservationInput struct {
	CustomerID *uuid.UUID               `json:"customerId"`
	GuestName  string                   `json:"guestName"`
	Status     models.ReservationStatus `json:"status"`
	CheckIn    *time.Time               `json:"checkIn"`
	CheckOut   *time.Time               `json:"checkOut"`
}

type MaintenanceInput struct {
	Title       string `json:"title" binding:"required" validate:"required,max=200"`
	Description string `json:"description"`
}

// UnitService is the room status machine. Every status change writes a
// history row in the same transaction.
type UnitService struct {
	base
	now func() time.Time
}

func NewUnitService(store repository.Store, publisher events.Publisher, log *logrus.Logger) *UnitService {
	return &UnitService{base: newBase(store, publisher, log), now: time.Now}
}

func (s *UnitService) CreateUnit(ctx context.Context, in CreateUnitInput) (*models.Unit, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	unit := &models.Unit{Number: in.Number, Name: in.Name, Type: in.Type, Status: models.UnitStatusAvailable}
	if unit.Type == "" {
		unit.Type = "room"
	}
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		return storeErr(tx.Units().Create(ctx, unit), "unit %q", in.Number)
	})
	if err != nil {
		return nil, s.fail("create_unit", err)
	}
	return unit, nil
}

// UpdateStatus changes a unit's status. OCCUPIED needs a CONFIRMED or
// CHECKED_IN reservation, and a unit with open maintenance requests stays in
// MAINTENANCE until they are verified.
func (s *UnitService) UpdateStatus(ctx context.Context, actor string, unitID uuid.UUID, in UnitStatusInput) (*models.Unit, error) {
	if !in.Status.Valid() {
		return nil, apperror.Validation("unknown unit status %q", in.Status)
	}
	var (
		unit     *models.Unit
		previous models.UnitStatus
	)
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		var err error
		unit, err = tx.Units().Find(ctx, unitID)
		if err != nil {
			return storeErr(err, "unit %s", unitID)
		}
		previous = unit.Status
		if unit.Status == in.Status {
			return apperror.Conflict("unit %s is already %s", unit.Number, in.Status)
		}
		if in.Status == models.UnitStatusOccupied {
			ok, err := tx.Units().HasOccupyingReservation(ctx, unit.ID)
			if err != nil {
				return storeErr(err, "reservations")
			}
			if !ok {
				return apperror.Conflict("unit %s has no confirmed or checked-in reservation", unit.Number)
			}
		}
		if unit.Status == models.UnitStatusMaintenance {
			open, err := tx.Units().CountActiveMaintenance(ctx, unit.ID)
			if err != nil {
				return storeErr(err, "maintenance requests")
			}
			if open > 0 {
				return apperror.Conflict("unit %s has %d open maintenance requests", unit.Number, open)
			}
		}
		return s.setStatus(ctx, tx, unit, in.Status, in.Reason, in.Notes, actor)
	})
	if err != nil {
		return nil, s.fail("update_unit_status", err)
	}
	s.publish(ctx, unitEvent(unit, previous, actor))
	return unit, nil
}

func (s *UnitService) setStatus(ctx context.Context, tx repository.Tx, unit *models.Unit, status models.UnitStatus, reason, notes, actor string) error {
	previous := unit.Status
	if err := tx.Units().UpdateStatus(ctx, unit.ID, status); err != nil {
		return storeErr(err, "unit %s", unit.ID)
	}
	if err := tx.Units().AppendHistory(ctx, &models.UnitStatusHistory{
		UnitID:         unit.ID,
		PreviousStatus: previous,
		NewStatus:      status,
		Reason:         reason,
		Notes:          notes,
		ChangedBy:      actor,
	}); err != nil {
		return storeErr(err, "unit history")
	}
	unit.Status = status
	return nil
}

func (s *UnitService) History(ctx context.Context, unitID uuid.UUID) ([]models.UnitStatusHistory, error) {
	var rows []models.UnitStatusHistory
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		if _, err := tx.Units().Find(ctx, unitID); err != nil {
			return storeErr(err, "unit %s", unitID)
		}
		var err error
		rows, err = tx.Units().ListHistory(ctx, unitID)
		return storeErr(err, "unit history")
	})
	return rows, err
}

func (s *UnitService) CreateReservation(ctx context.Context, unitID uuid.UUID, in ReservationInput) (*models.UnitReservation, error) {
	if in.Status == "" {
		in.Status = models.ReservationPending
	}
	if !in.Status.Valid() {
		return nil, apperror.Validation("unknown reservation status %q", in.Status)
	}
	if in.CheckIn != nil && in.CheckOut != nil && !in.CheckOut.After(*in.CheckIn) {
		return nil, apperror.Validation("checkOut must be after checkIn")
	}
	res := &models.UnitReservation{
		UnitID:     unitID,
		CustomerID: in.CustomerID,
		GuestName:  in.GuestName,
		Status:     in.Status,
		CheckIn:    in.CheckIn,
		CheckOut:   in.CheckOut,
	}
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		if _, err := tx.Units().Find(ctx, unitID); err != nil {
			return storeErr(err, "unit %s", unitID)
		}
		if in.CustomerID != nil {
			if _, err := tx.Customers().Find(ctx, *in.CustomerID); err != nil {
				return storeErr(err, "customer %s", *in.CustomerID)
			}
		}
		return storeErr(tx.Units().CreateReservation(ctx, res), "reservation")
	})
	if err != nil {
		return nil, s.fail("create_reservation", err)
	}
	return res, nil
}

// OpenMaintenance files a request and takes the unit out of service.
func (s *UnitService) OpenMaintenance(ctx context.Context, actor string, unitID uuid.UUID, in MaintenanceInput) (*models.MaintenanceRequest, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	req := &models.MaintenanceRequest{
		UnitID:      unitID,
		Title:       in.Title,
		Description: in.Description,
		Status:      models.MaintenanceOpen,
		ReportedBy:  actor,
	}
	var (
		unit     *models.Unit
		previous models.UnitStatus
	)
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		var err error
		unit, err = tx.Units().Find(ctx, unitID)
		if err != nil {
			return storeErr(err, "unit %s", unitID)
		}
		previous = unit.Status
		if err := tx.Units().CreateMaintenance(ctx, req); err != nil {
			return storeErr(err, "maintenance request")
		}
		if unit.Status == models.UnitStatusMaintenance {
			return nil
		}
		return s.setStatus(ctx, tx, unit, models.UnitStatusMaintenance, "maintenance requested", in.Title, actor)
	})
	if err != nil {
		return nil, s.fail("open_maintenance", err)
	}
	if previous != unit.Status {
		s.publish(ctx, unitEvent(unit, previous, actor))
	}
	return req, nil
}

// VerifyMaintenance signs off a request. When it was the unit's last active
// one the unit goes back to AVAILABLE.
func (s *UnitService) VerifyMaintenance(ctx context.Context, actor string, requestID uuid.UUID) (*models.MaintenanceRequest, error) {
	var (
		req      *models.MaintenanceRequest
		unit     *models.Unit
		previous models.UnitStatus
	)
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		var err error
		req, err = tx.Units().FindMaintenance(ctx, requestID)
		if err != nil {
			return storeErr(err, "maintenance request %s", requestID)
		}
		if !req.Status.Active() {
			return apperror.Conflict("maintenance request %s is already %s", req.ID, req.Status)
		}
		now := s.now()
		req.Status = models.MaintenanceVerified
		req.VerifiedBy = actor
		req.VerifiedAt = &now
		if err := tx.Units().SaveMaintenance(ctx, req); err != nil {
			return storeErr(err, "maintenance request %s", requestID)
		}

		unit, err = tx.Units().Find(ctx, req.UnitID)
		if err != nil {
			return storeErr(err, "unit %s", req.UnitID)
		}
		previous = unit.Status
		open, err := tx.Units().CountActiveMaintenance(ctx, unit.ID)
		if err != nil {
			return storeErr(err, "maintenance requests")
		}
		if open > 0 || unit.Status != models.UnitStatusMaintenance {
			return nil
		}
		return s.setStatus(ctx, tx, unit, models.UnitStatusAvailable, "maintenance verified", req.Title, actor)
	})
	if err != nil {
		return nil, s.fail("verify_maintenance", err)
	}
	if previous != unit.Status {
		s.publish(ctx, unitEvent(unit, previous, actor))
	}
	return req, nil
}

func unitEvent(unit *models.Unit, previous models.UnitStatus, actor string) *events.Event {
	return events.New(events.UnitStatus, unit.ID.String(), actor, map[string]interface{}{
		"number":         unit.Number,
		"previousStatus": previous,
		"status":         unit.Status,
	})
}
