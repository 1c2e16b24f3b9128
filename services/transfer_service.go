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

// TransferInput names each end either by scope code ("bar" or "bar:pool")
// or by section id.
// TransferInput names the moved record by the id matching the route
// (extraId, serviceId) or by the generic itemId.
type TransferInput struct {
	From          string     `json:"from"`
	FromSectionID *uuid.UUID `json:"fromSectionId"`
	To            string     `json:"to"`
	ToSectionID   *uuid.UUID `json:"toSectionId"`
	ItemID        uuid.UUID  `json:"itemId"`
	ExtraID       uuid.UUID  `json:"extraId"`
	ServiceID     uuid.UUID  `json:"serviceId"`
	Quantity      int64      `json:"quantity"`
	Notes         string     `json:"notes"`
}

// subject returns the id of the record a transfer of kind moves.
func (in TransferInput) subject(kind models.TransferKind) (uuid.UUID, error) {
	specific := map[models.TransferKind]uuid.UUID{
		models.TransferKindExtra:   in.ExtraID,
		models.TransferKindService: in.ServiceID,
	}
	for k, id := range specific {
		if k != kind && id != uuid.Nil {
			return uuid.Nil, apperror.Validation("%sId cannot be used on a %s transfer", k, kind)
		}
	}
	own := specific[kind]
	switch {
	case own == uuid.Nil && in.ItemID == uuid.Nil:
		if kind == models.TransferKindInventory {
			return uuid.Nil, apperror.Validation("itemId is required")
		}
		return uuid.Nil, apperror.Validation("%sId is required", kind)
	case own == uuid.Nil:
		return in.ItemID, nil
	case in.ItemID != uuid.Nil && in.ItemID != own:
		return uuid.Nil, apperror.Validation("itemId and %sId name different records", kind)
	}
	return own, nil
}

// TransferService moves stock, extras and services between scopes. Moves
// inside one department apply at once; moves across departments wait for
// the destination to approve.
type TransferService struct {
	base
	now func() time.Time
}

func NewTransferService(store repository.Store, publisher events.Publisher, log *logrus.Logger) *TransferService {
	return &TransferService{base: newBase(store, publisher, log), now: time.Now}
}

func (s *TransferService) TransferItems(ctx context.Context, p Principal, in TransferInput) (*models.DepartmentTransfer, error) {
	return s.request(ctx, p, models.TransferKindInventory, in)
}

func (s *TransferService) TransferExtra(ctx context.Context, p Principal, in TransferInput) (*models.DepartmentTransfer, error) {
	return s.request(ctx, p, models.TransferKindExtra, in)
}

// MoveService transfers a bookable service; quantity is ignored.
func (s *TransferService) MoveService(ctx context.Context, p Principal, in TransferInput) (*models.DepartmentTransfer, error) {
	in.Quantity = 0
	return s.request(ctx, p, models.TransferKindService, in)
}

func (s *TransferService) request(ctx context.Context, p Principal, kind models.TransferKind, in TransferInput) (*models.DepartmentTransfer, error) {
	id, err := in.subject(kind)
	if err != nil {
		return nil, s.fail("transfer_"+string(kind), err)
	}
	in.ItemID = id

	var transfer *models.DepartmentTransfer
	err = s.store.Transaction(ctx, func(tx repository.Tx) error {
		from, err := resolveEndpoint(ctx, tx, in.From, in.FromSectionID)
		if err != nil {
			return err
		}
		to, err := resolveEndpoint(ctx, tx, in.To, in.ToSectionID)
		if err != nil {
			return err
		}
		if from.Scope.Key() == to.Scope.Key() {
			return apperror.Validation("source and destination are the same scope")
		}

		qty, err := s.normalizeQuantity(ctx, tx, kind, in)
		if err != nil {
			return err
		}
		transfer = &models.DepartmentTransfer{
			FromDepartmentID: from.Scope.DepartmentID(),
			FromSectionID:    from.Scope.SectionPtr(),
			FromCode:         from.Code,
			ToDepartmentID:   to.Scope.DepartmentID(),
			ToSectionID:      to.Scope.SectionPtr(),
			ToCode:           to.Code,
			Status:           models.TransferStatusPending,
			RequestedBy:      p.UserID,
			Notes:            in.Notes,
			Items:            []models.DepartmentTransferItem{{Kind: kind, ItemID: in.ItemID, Quantity: qty}},
		}

		if from.Scope.SameDepartment(to.Scope) {
			if err := applyTransfer(ctx, tx, transfer); err != nil {
				return err
			}
			now := s.now()
			transfer.Status = models.TransferStatusApproved
			transfer.DecidedBy = p.UserID
			transfer.DecidedAt = &now
		} else if err := checkTransferable(ctx, tx, transfer); err != nil {
			return err
		}

		if err := tx.Transfers().Create(ctx, transfer); err != nil {
			return storeErr(err, "transfer")
		}
		return recordAudit(ctx, tx, "transfer", transfer.ID, "create", p.UserID, models.JSONB{
			"kind":   kind,
			"from":   transfer.FromCode,
			"to":     transfer.ToCode,
			"status": transfer.Status,
		})
	})
	if err != nil {
		return nil, s.fail("transfer_"+string(kind), err)
	}

	evts := []*events.Event{transferEvent(events.TransferCreated, transfer, p.UserID)}
	if transfer.Status == models.TransferStatusApproved {
		evts = append(evts, transferEvent(events.TransferApproved, transfer, p.UserID))
	}
	s.publish(ctx, evts...)
	return transfer, nil
}

// normalizeQuantity checks the quantity against the kind: required for
// inventory and tracked extras, ignored otherwise.
func (s *TransferService) normalizeQuantity(ctx context.Context, tx repository.Tx, kind models.TransferKind, in TransferInput) (int64, error) {
	switch kind {
	case models.TransferKindService:
		return 0, nil
	case models.TransferKindExtra:
		extra, err := findExtra(ctx, tx, in.ItemID)
		if err != nil {
			return 0, err
		}
		if !extra.TrackInventory {
			return 1, nil
		}
	}
	if err := positive(in.Quantity); err != nil {
		return 0, err
	}
	return in.Quantity, nil
}

// checkTransferable fails early on a pending cross-department request whose
// source could not satisfy it right now. Nothing is held: approval checks
// again.
func checkTransferable(ctx context.Context, tx repository.Tx, t *models.DepartmentTransfer) error {
	from := t.FromScope()
	for _, item := range t.Items {
		switch item.Kind {
		case models.TransferKindInventory:
			row, err := tx.Inventory().FindBalance(ctx, from, item.ItemID)
			if err != nil {
				return storeErr(err, "stock of item %s in %s", item.ItemID, t.FromCode)
			}
			if row.Available() < item.Quantity {
				return apperror.InsufficientStock("only %d of item %s available in %s, %d requested",
					row.Available(), item.ItemID, t.FromCode, item.Quantity)
			}
		case models.TransferKindExtra:
			row, err := tx.Extras().FindBalance(ctx, from, item.ItemID)
			if err != nil {
				return storeErr(err, "extra %s in %s", item.ItemID, t.FromCode)
			}
			extra, err := findExtra(ctx, tx, item.ItemID)
			if err != nil {
				return err
			}
			if extra.TrackInventory && row.Available() < item.Quantity {
				return apperror.InsufficientStock("only %d of extra %q available in %s, %d requested",
					row.Available(), extra.Name, t.FromCode, item.Quantity)
			}
		case models.TransferKindService:
			svc, err := tx.Services().Find(ctx, item.ItemID)
			if err != nil {
				return storeErr(err, "service %s", item.ItemID)
			}
			if svc.Scope().Key() != from.Key() {
				return apperror.Conflict("service %q is not offered by %s", svc.Name, t.FromCode)
			}
		}
	}
	return nil
}

func applyTransfer(ctx context.Context, tx repository.Tx, t *models.DepartmentTransfer) error {
	from, to := t.FromScope(), t.ToScope()
	for _, item := range t.Items {
		var err error
		switch item.Kind {
		case models.TransferKindInventory:
			err = transferInventory(ctx, tx, from, to, item.ItemID, item.Quantity)
		case models.TransferKindExtra:
			err = transferExtra(ctx, tx, from, to, item.ItemID, item.Quantity)
		case models.TransferKindService:
			err = moveService(ctx, tx, item.ItemID, from, to)
		default:
			err = apperror.Validation("unknown transfer kind %q", item.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// authorizeDestination checks that destCode names the transfer's destination
// and that the principal belongs to it. A department-wide principal may act
// for any of its sections; a section principal only for its own section.
func authorizeDestination(ctx context.Context, tx repository.Tx, p Principal, destCode string, t *models.DepartmentTransfer) error {
	dest, err := resolveScope(ctx, tx, destCode)
	if err != nil {
		return err
	}
	if !scopeCovers(dest.Scope, t.ToScope()) {
		return apperror.Forbidden("transfer %s is not addressed to %s", t.ID, dest.Code)
	}

	if p.DepartmentCode == "" {
		return apperror.Forbidden("principal has no department")
	}
	mine, err := resolveScope(ctx, tx, p.DepartmentCode)
	if apperror.KindOf(err) == apperror.KindNotFound {
		return apperror.Forbidden("principal department %q is unknown", p.DepartmentCode)
	}
	if err != nil {
		return err
	}
	if !scopeCovers(mine.Scope, t.ToScope()) {
		return apperror.Forbidden("%s may not decide transfers to %s", mine.Code, t.ToCode)
	}
	return nil
}

// scopeCovers reports whether acting scope a has authority over target b.
func scopeCovers(a, b models.Scope) bool {
	if !a.SameDepartment(b) {
		return false
	}
	if !a.IsSection() {
		return true
	}
	return a.Key() == b.Key()
}

// Approve applies a pending cross-department transfer on behalf of the
// destination. A failed move leaves the transfer pending.
func (s *TransferService) Approve(ctx context.Context, p Principal, destCode string, transferID uuid.UUID) (*models.DepartmentTransfer, error) {
	return s.decide(ctx, p, destCode, transferID, models.TransferStatusApproved)
}

// Reject closes a pending transfer without touching stock.
func (s *TransferService) Reject(ctx context.Context, p Principal, destCode string, transferID uuid.UUID) (*models.DepartmentTransfer, error) {
	return s.decide(ctx, p, destCode, transferID, models.TransferStatusRejected)
}

func (s *TransferService) decide(ctx context.Context, p Principal, destCode string, transferID uuid.UUID, decision models.TransferStatus) (*models.DepartmentTransfer, error) {
	var transfer *models.DepartmentTransfer
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		var err error
		transfer, err = tx.Transfers().Find(ctx, transferID)
		if err != nil {
			return storeErr(err, "transfer %s", transferID)
		}
		if err := authorizeDestination(ctx, tx, p, destCode, transfer); err != nil {
			return err
		}
		if transfer.Status != models.TransferStatusPending {
			return apperror.Conflict("transfer %s is already %s", transfer.ID, transfer.Status)
		}
		if decision == models.TransferStatusApproved {
			if err := applyTransfer(ctx, tx, transfer); err != nil {
				return err
			}
		}
		now := s.now()
		transfer.Status = decision
		transfer.DecidedBy = p.UserID
		transfer.DecidedAt = &now
		if err := tx.Transfers().Update(ctx, transfer); err != nil {
			return storeErr(err, "transfer %s", transferID)
		}
		return recordAudit(ctx, tx, "transfer", transfer.ID, string(decision), p.UserID, models.JSONB{
			"from": transfer.FromCode,
			"to":   transfer.ToCode,
		})
	})
	if err != nil {
		return nil, s.fail("decide_transfer", err)
	}
	eventType := events.TransferApproved
	if decision == models.TransferStatusRejected {
		eventType = events.TransferRejected
	}
	s.publish(ctx, transferEvent(eventType, transfer, p.UserID))
	return transfer, nil
}

func transferEvent(eventType string, t *models.DepartmentTransfer, actor string) *events.Event {
	items := make([]map[string]interface{}, 0, len(t.Items))
	for _, item := range t.Items {
		items = append(items, map[string]interface{}{
			"kind":     item.Kind,
			"itemId":   item.ItemID,
			"quantity": item.Quantity,
		})
	}
	return events.New(eventType, t.ID.String(), actor, map[string]interface{}{
		"from":   t.FromCode,
		"to":     t.ToCode,
		"status": t.Status,
		"items":  items,
	})
}
