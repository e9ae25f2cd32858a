package repos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

type AliasRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*domain.Alias) ([]*domain.Alias, error)
	GetByCanonicalNameID(ctx context.Context, tx *gorm.DB, canonicalNameID uuid.UUID) ([]*domain.Alias, error)
	GetByStandardizedAlias(ctx context.Context, tx *gorm.DB, standardizedAlias string) ([]*domain.Alias, error)
	// Repoint moves every alias of one canonical name onto another; used by
	// merges so the merged name's aliases keep resolving.
	Repoint(ctx context.Context, tx *gorm.DB, fromCanonicalNameID, toCanonicalNameID uuid.UUID) error
	DeleteByCanonicalNameID(ctx context.Context, tx *gorm.DB, canonicalNameID uuid.UUID) error
}

type aliasRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAliasRepo(db *gorm.DB, baseLog *logger.Logger) AliasRepo {
	return &aliasRepo{db: db, log: baseLog.With("repo", "AliasRepo")}
}

func (r *aliasRepo) Create(ctx context.Context, tx *gorm.DB, rows []*domain.Alias) ([]*domain.Alias, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*domain.Alias{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *aliasRepo) GetByCanonicalNameID(ctx context.Context, tx *gorm.DB, canonicalNameID uuid.UUID) ([]*domain.Alias, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Alias
	if canonicalNameID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("canonical_name_id = ?", canonicalNameID).
		Order("alias ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *aliasRepo) GetByStandardizedAlias(ctx context.Context, tx *gorm.DB, standardizedAlias string) ([]*domain.Alias, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Alias
	standardizedAlias = strings.TrimSpace(standardizedAlias)
	if standardizedAlias == "" {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("standardized_alias = ?", standardizedAlias).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *aliasRepo) Repoint(ctx context.Context, tx *gorm.DB, fromCanonicalNameID, toCanonicalNameID uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if fromCanonicalNameID == uuid.Nil || toCanonicalNameID == uuid.Nil {
		return nil
	}
	return t.WithContext(ctx).
		Model(&domain.Alias{}).
		Where("canonical_name_id = ?", fromCanonicalNameID).
		Update("canonical_name_id", toCanonicalNameID).Error
}

func (r *aliasRepo) DeleteByCanonicalNameID(ctx context.Context, tx *gorm.DB, canonicalNameID uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if canonicalNameID == uuid.Nil {
		return nil
	}
	return t.WithContext(ctx).
		Where("canonical_name_id = ?", canonicalNameID).
		Delete(&domain.Alias{}).Error
}
