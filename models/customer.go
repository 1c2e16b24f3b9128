package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Customer struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Phone string    `gorm:"index" json:"phone"`
	Email string    `json:"email"`
	Notes string    `json:"notes"`

	IsGuest     bool       `gorm:"default:false" json:"isGuest"`
	TotalOrders int        `gorm:"default:0" json:"totalOrders"`
	TotalSpent  int64      `gorm:"default:0" json:"totalSpent"`
	LastVisit   *time.Time `json:"lastVisit"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}
