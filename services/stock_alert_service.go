// services/stock_alert_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"hotelpro-backend/events"
	"hotelpro-backend/models"
	"hotelpro-backend/repository"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Notifier delivers a low-stock message to one recipient.
type Notifier interface {
	Channel() string
	Send(ctx context.Context, to, body string) error
}

type TwilioNotifier struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioNotifier(accountSid, authToken, from string) *TwilioNotifier {
	return &TwilioNotifier{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
		from: from,
	}
}

func (n *TwilioNotifier) Channel() string { return "sms" }

func (n *TwilioNotifier) Send(_ context.Context, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(n.from)
	params.SetBody(body)

	resp, err := n.client.Api.CreateMessage(params)
	if err != nil {
		return err
	}
	if resp.Sid == nil {
		return fmt.Errorf("message to %s accepted without a SID", to)
	}
	return nil
}

// LogNotifier writes alerts to the log when no SMS account is configured.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (n *LogNotifier) Channel() string { return "log" }

func (n *LogNotifier) Send(_ context.Context, to, body string) error {
	n.Logger.WithField("recipient", to).Warn(body)
	return nil
}

type StockAlertConfig struct {
	Schedule   string
	Recipients []string
}

// StockAlertService periodically looks for ledger rows whose available
// quantity has dropped to the item's reorder threshold.
type StockAlertService struct {
	base
	notifier Notifier
	cfg      StockAlertConfig
	cron     *cron.Cron
	now      func() time.Time
}

func NewStockAlertService(store repository.Store, notifier Notifier, cfg StockAlertConfig, publisher events.Publisher, log *logrus.Logger) *StockAlertService {
	s := &StockAlertService{base: newBase(store, publisher, log), notifier: notifier, cfg: cfg, now: time.Now}
	if s.notifier == nil {
		s.notifier = &LogNotifier{Logger: s.log}
	}
	return s
}

// Start schedules the sweep and returns immediately.
func (s *StockAlertService) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.log.WithError(err).Error("stock alert sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.cron = c
	s.log.WithField("schedule", s.cfg.Schedule).Info("stock alert scheduler started")
	return nil
}

// Stop waits for a running sweep to finish.
func (s *StockAlertService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.log.Info("stock alert scheduler stopped")
}

type lowStock struct {
	row  models.DepartmentInventory
	item *models.InventoryItem
	code string
}

// Sweep notifies every recipient about each low ledger row and records one
// StockAlertLog per attempt. Messages go out between the read and the write
// so no row stays locked while an SMS is in flight.
func (s *StockAlertService) Sweep(ctx context.Context) ([]models.StockAlertLog, error) {
	var low []lowStock
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		rows, err := tx.Inventory().ListBalances(ctx)
		if err != nil {
			return storeErr(err, "ledger rows")
		}
		items := map[uuid.UUID]*models.InventoryItem{}
		for _, row := range rows {
			item, ok := items[row.InventoryItemID]
			if !ok {
				item, err = tx.Inventory().FindItem(ctx, row.InventoryItemID)
				if err != nil {
					return storeErr(err, "inventory item %s", row.InventoryItemID)
				}
				items[row.InventoryItemID] = item
			}
			if item.ReorderThreshold <= 0 || row.Available() > item.ReorderThreshold {
				continue
			}
			code, err := scopeCode(ctx, tx, row.Scope())
			if err != nil {
				return err
			}
			low = append(low, lowStock{row: row, item: item, code: code})
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("stock_alert_sweep", err)
	}
	if len(low) == 0 {
		return nil, nil
	}

	recipients := s.cfg.Recipients
	if len(recipients) == 0 {
		recipients = []string{""}
	}
	var sent []models.StockAlertLog
	for _, l := range low {
		body := fmt.Sprintf("Low stock: %s (%s) in %s has %d available, threshold %d",
			l.item.Name, l.item.SKU, l.code, l.row.Available(), l.item.ReorderThreshold)
		for _, to := range recipients {
			entry := models.StockAlertLog{
				InventoryItemID: l.item.ID,
				ScopeKey:        l.row.ScopeKey,
				Available:       l.row.Available(),
				Threshold:       l.item.ReorderThreshold,
				Recipient:       to,
				Channel:         s.notifier.Channel(),
				Message:         body,
				Status:          "sent",
				SentAt:          s.now(),
			}
			if err := s.notifier.Send(ctx, to, body); err != nil {
				s.log.WithError(err).WithField("recipient", to).Warn("failed to send stock alert")
				entry.Status = "failed"
				entry.ErrorMessage = err.Error()
			}
			sent = append(sent, entry)
		}
	}

	err = s.store.Transaction(ctx, func(tx repository.Tx) error {
		for i := range sent {
			if err := tx.Audit().RecordStockAlert(ctx, &sent[i]); err != nil {
				return storeErr(err, "stock alert log")
			}
		}
		return nil
	})
	if err != nil {
		return sent, s.fail("stock_alert_log", err)
	}

	evts := make([]*events.Event, 0, len(low))
	for _, l := range low {
		evts = append(evts, events.New(events.StockLow, l.item.ID.String(), "", map[string]interface{}{
			"scope":     l.code,
			"sku":       l.item.SKU,
			"available": l.row.Available(),
			"threshold": l.item.ReorderThreshold,
		}))
	}
	s.publish(ctx, evts...)
	return sent, nil
}

// scopeCode renders a scope back into its "dept" or "dept:section" code.
func scopeCode(ctx context.Context, tx repository.Tx, scope models.Scope) (string, error) {
	dept, err := tx.Departments().FindDepartmentByID(ctx, scope.DepartmentID())
	if err != nil {
		return "", storeErr(err, "department %s", scope.DepartmentID())
	}
	if !scope.IsSection() {
		return dept.Code, nil
	}
	section, err := tx.Departments().FindSectionByID(ctx, *scope.SectionPtr())
	if err != nil {
		return "", storeErr(err, "section %s", *scope.SectionPtr())
	}
	return models.SectionCode(dept.Code, section.Slug), nil
}
