package store

import (
	"fmt"

	"unity-upload-backend/internal/models"

	"gorm.io/gorm"
)

const saveBatchSize = 200

// SQLStore keeps the collection in the ban_records table. Save swaps the
// table contents inside one transaction so readers never see a partial set.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&models.BanRecord{}); err != nil {
		return nil, fmt.Errorf("migrate ban_records: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Load() ([]models.BanRecord, error) {
	var records []models.BanRecord
	if err := s.db.Order("player_id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load ban_records: %w", err)
	}
	for i := range records {
		records[i].ExpiresAt = records[i].ExpiresAt.UTC()
	}
	return records, nil
}

func (s *SQLStore) Save(records []models.BanRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.BanRecord{}).Error; err != nil {
			return fmt.Errorf("clear ban_records: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		rows := make([]models.BanRecord, len(records))
		copy(rows, records)
		if err := tx.CreateInBatches(rows, saveBatchSize).Error; err != nil {
			return fmt.Errorf("insert ban_records: %w", err)
		}
		return nil
	})
}
