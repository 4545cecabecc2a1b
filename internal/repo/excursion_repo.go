package repo

import (
	"context"

	"github.com/dushixiang/tally/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewExcursionRepo(db *gorm.DB) *ExcursionRepo {
	return &ExcursionRepo{
		Repository: orz.NewRepository[models.Excursion, string](db),
	}
}

type ExcursionRepo struct {
	orz.Repository[models.Excursion, string]
}

// FindOrdered 按离场日期降序返回，最近的回合在前
func (r ExcursionRepo) FindOrdered(ctx context.Context, underlying string) ([]models.Excursion, error) {
	var excursions []models.Excursion
	db := r.GetDB(ctx).Table(r.GetTableName())
	if underlying != "" {
		db = db.Where("underlying = ?", underlying)
	}
	err := db.Order("exit_date DESC").Find(&excursions).Error
	return excursions, err
}

// DeleteAll 清空缓存，重算前调用。
// 物理删除，软删除的残留行会占住指纹唯一索引
func (r ExcursionRepo) DeleteAll(ctx context.Context) error {
	return r.GetDB(ctx).Unscoped().Where("1 = 1").Delete(&models.Excursion{}).Error
}
