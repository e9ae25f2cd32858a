package repos

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

type RejectedNameRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.RejectedCanonicalName) (*domain.RejectedCanonicalName, error)
	GetByStandardizedName(ctx context.Context, tx *gorm.DB, standardizedName string) (*domain.RejectedCanonicalName, error)
}

type rejectedNameRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRejectedNameRepo(db *gorm.DB, baseLog *logger.Logger) RejectedNameRepo {
	return &rejectedNameRepo{db: db, log: baseLog.With("repo", "RejectedNameRepo")}
}

func (r *rejectedNameRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.RejectedCanonicalName) (*domain.RejectedCanonicalName, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil, nil
	}
	if err := t.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *rejectedNameRepo) GetByStandardizedName(ctx context.Context, tx *gorm.DB, standardizedName string) (*domain.RejectedCanonicalName, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	standardizedName = strings.TrimSpace(standardizedName)
	if standardizedName == "" {
		return nil, nil
	}
	var out []*domain.RejectedCanonicalName
	if err := t.WithContext(ctx).
		Where("standardized_name = ?", standardizedName).
		Order("rejected_at DESC").
		Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}
