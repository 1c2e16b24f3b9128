package services

import (
	"testing"
	"time"

	"hotelpro-backend/apperror"
	"hotelpro-backend/events"
	"hotelpro-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) unit(number string) *models.Unit {
	f.t.Helper()
	u, err := f.units.CreateUnit(f.ctx, CreateUnitInput{Number: number})
	require.NoError(f.t, err)
	return u
}

func TestCreateUnitDefaults(t *testing.T) {
	f := newFixture(t)
	u := f.unit("101")
	assert.Equal(t, models.UnitStatusAvailable, u.Status)
	assert.Equal(t, "room", u.Type)

	_, err := f.units.CreateUnit(f.ctx, CreateUnitInput{Number: "101"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
	_, err = f.units.CreateUnit(f.ctx, CreateUnitInput{})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestOccupiedNeedsReservation(t *testing.T) {
	f := newFixture(t)
	u := f.unit("101")

	_, err := f.units.UpdateStatus(f.ctx, "frontdesk", u.ID, UnitStatusInput{Status: models.UnitStatusOccupied})
	assert.ErrorIs(t, err, apperror.ErrConflict)
	history, err := f.units.History(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.units.CreateReservation(f.ctx, u.ID, ReservationInput{GuestName: "Ada"})
	require.NoError(t, err)
	_, err = f.units.UpdateStatus(f.ctx, "frontdesk", u.ID, UnitStatusInput{Status: models.UnitStatusOccupied})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.units.CreateReservation(f.ctx, u.ID, ReservationInput{GuestName: "Ada", Status: models.ReservationCheckedIn})
	require.NoError(t, err)
	updated, err := f.units.UpdateStatus(f.ctx, "frontdesk", u.ID, UnitStatusInput{Status: models.UnitStatusOccupied, Reason: "check-in"})
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusOccupied, updated.Status)

	history, err = f.units.History(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.UnitStatusAvailable, history[0].PreviousStatus)
	assert.Equal(t, models.UnitStatusOccupied, history[0].NewStatus)
	assert.Equal(t, "check-in", history[0].Reason)
	assert.Equal(t, "frontdesk", history[0].ChangedBy)
	assert.Equal(t, []string{events.UnitStatus}, f.events.Types())
}

func TestUnitStatusValidation(t *testing.T) {
	f := newFixture(t)
	u := f.unit("101")

	_, err := f.units.UpdateStatus(f.ctx, "x", u.ID, UnitStatusInput{Status: models.UnitStatusAvailable})
	assert.ErrorIs(t, err, apperror.ErrConflict)
	_, err = f.units.UpdateStatus(f.ctx, "x", u.ID, UnitStatusInput{Status: "FLOODED"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.units.UpdateStatus(f.ctx, "x", uuid.New(), UnitStatusInput{Status: models.UnitStatusCleaning})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.units.UpdateStatus(f.ctx, "x", u.ID, UnitStatusInput{Status: models.UnitStatusCleaning})
	require.NoError(t, err)
	_, err = f.units.UpdateStatus(f.ctx, "x", u.ID, UnitStatusInput{Status: models.UnitStatusAvailable})
	require.NoError(t, err)
}

func TestReservationValidation(t *testing.T) {
	f := newFixture(t)
	u := f.unit("101")
	in := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)
	out := in.Add(-time.Hour)

	_, err := f.units.CreateReservation(f.ctx, u.ID, ReservationInput{CheckIn: &in, CheckOut: &out})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.units.CreateReservation(f.ctx, u.ID, ReservationInput{Status: "MAYBE"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.units.CreateReservation(f.ctx, uuid.New(), ReservationInput{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	missing := uuid.New()
	_, err = f.units.CreateReservation(f.ctx, u.ID, ReservationInput{CustomerID: &missing})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestMaintenanceReturnsUnitToAvailable(t *testing.T) {
	f := newFixture(t)
	u := f.unit("204")

	first, err := f.units.OpenMaintenance(f.ctx, "housekeeping", u.ID, MaintenanceInput{Title: "Leaking tap"})
	require.NoError(t, err)
	second, err := f.units.OpenMaintenance(f.ctx, "housekeeping", u.ID, MaintenanceInput{Title: "Broken lamp"})
	require.NoError(t, err)

	history, err := f.units.History(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.UnitStatusMaintenance, history[0].NewStatus)

	_, err = f.units.UpdateStatus(f.ctx, "frontdesk", u.ID, UnitStatusInput{Status: models.UnitStatusAvailable})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	verified, err := f.units.VerifyMaintenance(f.ctx, "engineer", first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceVerified, verified.Status)
	assert.Equal(t, "engineer", verified.VerifiedBy)
	history, err = f.units.History(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.units.VerifyMaintenance(f.ctx, "engineer", second.ID)
	require.NoError(t, err)
	history, err = f.units.History(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.UnitStatusMaintenance, history[1].PreviousStatus)
	assert.Equal(t, models.UnitStatusAvailable, history[1].NewStatus)

	_, err = f.units.VerifyMaintenance(f.ctx, "engineer", second.ID)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	_, err = f.units.VerifyMaintenance(f.ctx, "engineer", uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.units.OpenMaintenance(f.ctx, "housekeeping", u.ID, MaintenanceInput{})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCustomerCreate(t *testing.T) {
	f := newFixture(t)

	c, err := f.customers.Create(f.ctx, CreateCustomerInput{Name: "Ada", Phone: "+44 20 7946 0958", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "+442079460958", c.Phone)
	assert.False(t, c.IsGuest)

	got, err := f.customers.Get(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	_, err = f.customers.Create(f.ctx, CreateCustomerInput{Name: "Bob", Phone: "12"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.customers.Create(f.ctx, CreateCustomerInput{Name: "Bob", Email: "not-an-email"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.customers.Get(f.ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
