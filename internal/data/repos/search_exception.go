package repos

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

type SearchExceptionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, searchText string) (*domain.SearchTextException, error)
	List(ctx context.Context, tx *gorm.DB) ([]*domain.SearchTextException, error)
}

type searchExceptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSearchExceptionRepo(db *gorm.DB, baseLog *logger.Logger) SearchExceptionRepo {
	return &searchExceptionRepo{db: db, log: baseLog.With("repo", "SearchExceptionRepo")}
}

func (r *searchExceptionRepo) Create(ctx context.Context, tx *gorm.DB, searchText string) (*domain.SearchTextException, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	searchText = strings.TrimSpace(searchText)
	if searchText == "" {
		return nil, nil
	}
	row := &domain.SearchTextException{SearchText: searchText}
	if err := t.WithContext(ctx).
		Where("search_text = ?", searchText).
		FirstOrCreate(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *searchExceptionRepo) List(ctx context.Context, tx *gorm.DB) ([]*domain.SearchTextException, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.SearchTextException
	if err := t.WithContext(ctx).Order("search_text ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
