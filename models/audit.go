package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONB stores free-form details in a jsonb column.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, &j)
}

type AuditLog struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Entity   string    `gorm:"type:varchar(40);index;not null" json:"entity"`
	EntityID uuid.UUID `gorm:"type:uuid;index;not null" json:"entityId"`
	Action   string    `gorm:"type:varchar(40);not null" json:"action"`
	Actor    string    `json:"actor"`
	Details  JSONB     `gorm:"type:jsonb;default:'{}'" json:"details"`

	CreatedAt time.Time `json:"createdAt"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

// StockAlertLog records one low-stock notification attempt.
type StockAlertLog struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	InventoryItemID uuid.UUID `gorm:"type:uuid;index;not null" json:"inventoryItemId"`
	ScopeKey        string    `gorm:"index;not null" json:"scopeKey"`
	Available       int64     `json:"available"`
	Threshold       int64     `json:"threshold"`
	Recipient       string    `json:"recipient"`
	Channel         string    `gorm:"type:varchar(20)" json:"channel"` // sms, log
	Message         string    `gorm:"type:text" json:"message"`
	Status          string    `gorm:"type:varchar(20)" json:"status"` // sent, failed
	ErrorMessage    string    `gorm:"type:text" json:"errorMessage"`
	SentAt          time.Time `json:"sentAt"`
}

func (r *StockAlertLog) BeforeCreate(tx *gorm.DB) (err error) {
	r.ID = uuid.New()
	return
}
