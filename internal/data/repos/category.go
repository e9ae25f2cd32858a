package repos

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

type CategoryRepo interface {
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*domain.CanonicalNameCategory, error)
	List(ctx context.Context, tx *gorm.DB) ([]*domain.CanonicalNameCategory, error)
	EnsureByName(ctx context.Context, tx *gorm.DB, name string) (*domain.CanonicalNameCategory, error)
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return &categoryRepo{db: db, log: baseLog.With("repo", "CategoryRepo")}
}

func (r *categoryRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*domain.CanonicalNameCategory, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var out []*domain.CanonicalNameCategory
	if err := t.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *categoryRepo) List(ctx context.Context, tx *gorm.DB) ([]*domain.CanonicalNameCategory, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.CanonicalNameCategory
	if err := t.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryRepo) EnsureByName(ctx context.Context, tx *gorm.DB, name string) (*domain.CanonicalNameCategory, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	row := &domain.CanonicalNameCategory{Name: name}
	if err := t.WithContext(ctx).Where("name = ?", name).FirstOrCreate(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}
