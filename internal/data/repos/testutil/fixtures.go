package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/normalization"
)

func SeedCategory(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *domain.CanonicalNameCategory {
	tb.Helper()
	c := &domain.CanonicalNameCategory{ID: uuid.New(), Name: name}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}

func SeedCanonicalName(tb testing.TB, ctx context.Context, tx *gorm.DB, categoryID uuid.UUID, name string) *domain.CanonicalName {
	tb.Helper()
	cn := &domain.CanonicalName{
		ID:               uuid.New(),
		CanonicalName:    name,
		StandardizedName: normalization.StandardizeName(name),
		CategoryID:       categoryID,
	}
	if err := tx.WithContext(ctx).Create(cn).Error; err != nil {
		tb.Fatalf("seed canonical name: %v", err)
	}
	return cn
}

func SeedAlias(tb testing.TB, ctx context.Context, tx *gorm.DB, canonicalNameID uuid.UUID, alias string) *domain.Alias {
	tb.Helper()
	a := &domain.Alias{
		ID:                uuid.New(),
		Alias:             alias,
		StandardizedAlias: normalization.StandardizeName(alias),
		CanonicalNameID:   canonicalNameID,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed alias: %v", err)
	}
	return a
}
