package models

import "time"

// BanRecord is one player's active suspension. Records are never updated in
// place; a ban is changed by revoking it and creating a new one.
type BanRecord struct {
	PlayerID  string    `gorm:"primaryKey;type:varchar(128)" json:"playerId"`
	Reason    string    `gorm:"type:varchar(500);not null" json:"reason"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expiresAt"`
}

func (BanRecord) TableName() string {
	return "ban_records"
}

// ExpiredAt reports whether the ban no longer applies at now.
func (b BanRecord) ExpiredAt(now time.Time) bool {
	return !b.ExpiresAt.After(now)
}

type BanStatus struct {
	Banned    bool       `json:"banned"`
	Reason    string     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
