package repo

import (
	"context"

	"github.com/dushixiang/tally/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewReportRepo(db *gorm.DB) *ReportRepo {
	return &ReportRepo{
		Repository: orz.NewRepository[models.Report, string](db),
	}
}

type ReportRepo struct {
	orz.Repository[models.Report, string]
}

// FindRecentReports 获取最近的复盘报告
func (r ReportRepo) FindRecentReports(ctx context.Context, period string, limit int) ([]models.Report, error) {
	var reports []models.Report
	db := r.GetDB(ctx).Table(r.GetTableName())
	if period != "" {
		db = db.Where("period = ?", period)
	}
	err := db.Order("generated_at DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}
