package services

import (
	"context"
	"errors"
	"fmt"

	"hotelpro-backend/apperror"
	"hotelpro-backend/events"
	"hotelpro-backend/logger"
	"hotelpro-backend/models"
	"hotelpro-backend/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Principal is the authenticated caller as supplied by the auth middleware.
type Principal struct {
	UserID         string
	Role           string
	DepartmentCode string
}

var validate = validator.New()

// validateStruct runs the `validate` tags on v and reports the first failure
// as a validation error.
func validateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperror.Validation("%s failed on %q", fe.Namespace(), fe.Tag())
		}
		return apperror.Validation("%v", err)
	}
	return nil
}

// storeErr maps repository errors onto the taxonomy. what names the record
// for NotFound and Conflict messages.
func storeErr(err error, what string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	name := fmt.Sprintf(what, args...)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("%s not found", name)
	case errors.Is(err, repository.ErrDuplicate):
		return apperror.Conflict("%s already exists", name)
	}
	return apperror.Internal(err, "storage failure")
}

// base holds what every service needs to run units of work and announce
// their results once committed.
type base struct {
	store     repository.Store
	publisher events.Publisher
	log       *logrus.Logger
}

func newBase(store repository.Store, publisher events.Publisher, log *logrus.Logger) base {
	if log == nil {
		log = logger.App()
	}
	if publisher == nil {
		publisher = &events.LogPublisher{Logger: log}
	}
	return base{store: store, publisher: publisher, log: log}
}

// publish announces committed changes. Failures are logged, never returned.
func (b *base) publish(ctx context.Context, evts ...*events.Event) {
	for _, e := range evts {
		logger.Audit().WithFields(logrus.Fields{
			"event_type": e.Type,
			"key":        e.Key,
			"actor":      e.Actor,
		}).Info("committed")
		if err := b.publisher.Publish(ctx, e); err != nil {
			b.log.WithError(err).WithField("event_type", e.Type).Warn("failed to publish event")
		}
	}
}

// fail logs err at a level that matches its kind and returns it unchanged.
func (b *base) fail(op string, err error) error {
	entry := b.log.WithField("op", op)
	switch apperror.KindOf(err) {
	case apperror.KindInternal:
		entry.WithError(err).Error("operation failed")
	case apperror.KindInvariantViolation:
		logger.InvariantViolation(b.log, err, logrus.Fields{"op": op})
	default:
		entry.WithField("code", apperror.KindOf(err)).Info(apperror.MessageOf(err))
	}
	return err
}

func recordAudit(ctx context.Context, tx repository.Tx, entity string, id uuid.UUID, action, actor string, details models.JSONB) error {
	entry := &models.AuditLog{
		Entity:   entity,
		EntityID: id,
		Action:   action,
		Actor:    actor,
		Details:  details,
	}
	if err := tx.Audit().Record(ctx, entry); err != nil {
		return storeErr(err, "audit entry")
	}
	return nil
}
