package repo

import (
	"context"
	"errors"

	"github.com/dushixiang/tally/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

type JournalConfigRepo struct {
	orz.Repository[models.JournalConfig, string]
}

func NewJournalConfigRepo(db *gorm.DB) *JournalConfigRepo {
	return &JournalConfigRepo{
		Repository: orz.NewRepository[models.JournalConfig, string](db),
	}
}

// Get 读取单行配置，不存在时返回 nil
func (r *JournalConfigRepo) Get(ctx context.Context) (*models.JournalConfig, error) {
	var config models.JournalConfig
	err := r.GetDB(ctx).Table(r.GetTableName()).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// Save 写入配置，保持单行
func (r *JournalConfigRepo) Save(ctx context.Context, config *models.JournalConfig) error {
	return r.GetDB(ctx).Save(config).Error
}
