package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report is a player report submitted from the game client. Rows are only
// ever appended.
type Report struct {
	ID           uuid.UUID      `gorm:"primaryKey" json:"id"`
	ReporterName string         `gorm:"type:varchar(255)" json:"reporter_name"`
	ReporterID   string         `gorm:"type:varchar(128);index" json:"reporter_id"`
	TargetName   string         `gorm:"type:varchar(255)" json:"target_name"`
	TargetID     string         `gorm:"type:varchar(128);index" json:"target_id"`
	Reason       string         `gorm:"type:varchar(1000);not null" json:"reason"`
	Metadata     datatypes.JSON `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Metadata == nil {
		r.Metadata = []byte("{}")
	}
	return nil
}
