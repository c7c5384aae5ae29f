package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"unity-upload-backend/internal/database"
	"unity-upload-backend/internal/models"

	"gorm.io/gorm"
)

type PaginatedReports struct {
	Reports    []models.Report `json:"reports"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	Total      int64           `json:"total"`
	TotalPages int             `json:"total_pages"`
}

type ReportLog struct {
	db *gorm.DB
}

func NewReportLog(db *gorm.DB) *ReportLog {
	return &ReportLog{db: db}
}

// Create appends a report. Unknown client fields end up in Metadata.
func (l *ReportLog) Create(r *models.Report, extra map[string]string) error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return fmt.Errorf("%w: reason is required", ErrInvalidArgument)
	}
	if r.TargetID == "" && r.TargetName == "" {
		return fmt.Errorf("%w: a reported player is required", ErrInvalidArgument)
	}
	if len(extra) > 0 {
		meta, err := json.Marshal(extra)
		if err != nil {
			return err
		}
		r.Metadata = meta
	}
	return l.db.Create(r).Error
}

func (l *ReportLog) List(page, perPage int, search string) (PaginatedReports, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := l.db.Model(&models.Report{})
	if search != "" {
		val := database.ILikeValue(search)
		query = query.Where(
			database.ILike("reporter_name", val)+" OR "+database.ILike("target_name", val)+" OR "+
				database.ILike("target_id", val)+" OR "+database.ILike("reason", val),
			val, val, val, val)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return PaginatedReports{}, err
	}

	var reports []models.Report
	offset := (page - 1) * perPage
	if err := query.Order("created_at DESC").Offset(offset).Limit(perPage).Find(&reports).Error; err != nil {
		return PaginatedReports{}, err
	}

	return PaginatedReports{
		Reports:    reports,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}, nil
}
