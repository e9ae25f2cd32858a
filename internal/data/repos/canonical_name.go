package repos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

type CanonicalNameRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*domain.CanonicalName) ([]*domain.CanonicalName, error)

	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.CanonicalName, error)
	GetByStandardizedName(ctx context.Context, tx *gorm.DB, standardizedName string) (*domain.CanonicalName, error)
	GetByStandardizedNames(ctx context.Context, tx *gorm.DB, standardizedNames []string) ([]*domain.CanonicalName, error)
	GetByName(ctx context.Context, tx *gorm.DB, canonicalName string) (*domain.CanonicalName, error)

	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

	// SearchByText ranks rows by trigram similarity of the text against the
	// canonical name and its aliases, restricted to the given categories.
	// Rows below the threshold are dropped.
	SearchByText(ctx context.Context, tx *gorm.DB, text string, threshold float64, categories []string) ([]*domain.CanonicalNameHit, error)
}

type canonicalNameRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCanonicalNameRepo(db *gorm.DB, baseLog *logger.Logger) CanonicalNameRepo {
	return &canonicalNameRepo{db: db, log: baseLog.With("repo", "CanonicalNameRepo")}
}

func (r *canonicalNameRepo) Create(ctx context.Context, tx *gorm.DB, rows []*domain.CanonicalName) ([]*domain.CanonicalName, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*domain.CanonicalName{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *canonicalNameRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.CanonicalName, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*domain.CanonicalName
	if err := t.WithContext(ctx).Preload("Category").Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *canonicalNameRepo) GetByStandardizedName(ctx context.Context, tx *gorm.DB, standardizedName string) (*domain.CanonicalName, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if standardizedName == "" {
		return nil, nil
	}
	var out []*domain.CanonicalName
	if err := t.WithContext(ctx).Preload("Category").
		Where("standardized_name = ?", standardizedName).
		Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *canonicalNameRepo) GetByStandardizedNames(ctx context.Context, tx *gorm.DB, standardizedNames []string) ([]*domain.CanonicalName, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.CanonicalName
	if len(standardizedNames) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).Preload("Category").
		Where("standardized_name IN ?", standardizedNames).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *canonicalNameRepo) GetByName(ctx context.Context, tx *gorm.DB, canonicalName string) (*domain.CanonicalName, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	canonicalName = strings.TrimSpace(canonicalName)
	if canonicalName == "" {
		return nil, nil
	}
	var out []*domain.CanonicalName
	if err := t.WithContext(ctx).Preload("Category").
		Where("LOWER(canonical_name) = LOWER(?)", canonicalName).
		Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *canonicalNameRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(ctx).
		Model(&domain.CanonicalName{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *canonicalNameRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(ctx).Where("id = ?", id).Delete(&domain.CanonicalName{}).Error
}

func (r *canonicalNameRepo) SearchByText(ctx context.Context, tx *gorm.DB, text string, threshold float64, categories []string) ([]*domain.CanonicalNameHit, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	text = strings.TrimSpace(text)
	var out []*domain.CanonicalNameHit
	if text == "" || len(categories) == 0 {
		return out, nil
	}

	// Exact prefix matches rank above pure similarity so short queries still
	// surface the obvious hit first. An excepted search text contributes no
	// similarity rank at all, so it only ever matches by exact prefix.
	prefix := text + "%"
	err := t.WithContext(ctx).Raw(`
SELECT cn.*,
       GREATEST(
           CASE WHEN cn.canonical_name ILIKE ? THEN 1.0 ELSE 0 END,
           CASE WHEN x.excepted THEN 0 ELSE similarity(cn.canonical_name, ?) END,
           CASE WHEN x.excepted THEN 0 ELSE COALESCE(MAX(similarity(a.alias, ?)), 0) END
       ) AS rank
FROM canonical_name cn
JOIN canonical_name_category c ON c.id = cn.category_id
LEFT JOIN alias a ON a.canonical_name_id = cn.id
CROSS JOIN (
    SELECT EXISTS (
        SELECT 1 FROM search_text_exception WHERE lower(search_text) = lower(?)
    ) AS excepted
) x
WHERE c.name IN ?
GROUP BY cn.id, x.excepted
HAVING GREATEST(
           CASE WHEN cn.canonical_name ILIKE ? THEN 1.0 ELSE 0 END,
           CASE WHEN x.excepted THEN 0 ELSE similarity(cn.canonical_name, ?) END,
           CASE WHEN x.excepted THEN 0 ELSE COALESCE(MAX(similarity(a.alias, ?)), 0) END
       ) >= ?
ORDER BY rank DESC, cn.canonical_name ASC
`,
		prefix, text, text, text, categories, prefix, text, text, threshold,
	).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
