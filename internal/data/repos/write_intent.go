package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

type WriteIntentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.GraphWriteIntent) (*domain.GraphWriteIntent, error)
	MarkStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
	// ListPendingOlderThan returns pending intents whose last update is older
	// than the cutoff; the in-flight window is excluded so the sweep never
	// races an operation that is still running.
	ListPendingOlderThan(ctx context.Context, tx *gorm.DB, age time.Duration) ([]*domain.GraphWriteIntent, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type writeIntentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWriteIntentRepo(db *gorm.DB, baseLog *logger.Logger) WriteIntentRepo {
	return &writeIntentRepo{db: db, log: baseLog.With("repo", "WriteIntentRepo")}
}

func (r *writeIntentRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.GraphWriteIntent) (*domain.GraphWriteIntent, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil, nil
	}
	if row.Status == "" {
		row.Status = domain.IntentStatusPending
	}
	if err := t.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *writeIntentRepo) MarkStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || status == "" {
		return nil
	}
	return t.WithContext(ctx).
		Model(&domain.GraphWriteIntent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *writeIntentRepo) ListPendingOlderThan(ctx context.Context, tx *gorm.DB, age time.Duration) ([]*domain.GraphWriteIntent, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	cutoff := time.Now().UTC().Add(-age)
	var out []*domain.GraphWriteIntent
	if err := t.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.IntentStatusPending, cutoff).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *writeIntentRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(ctx).Where("id = ?", id).Delete(&domain.GraphWriteIntent{}).Error
}
