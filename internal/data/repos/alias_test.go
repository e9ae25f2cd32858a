package repos

import (
	"context"
	"testing"

	"github.com/LeshegoT/the-hive-backend/internal/data/repos/testutil"
)

func TestAliasRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewAliasRepo(db, testutil.Logger(t))

	skill := testutil.SeedCategory(t, ctx, tx, "skill")
	golang := testutil.SeedCanonicalName(t, ctx, tx, skill.ID, "Golang")
	goName := testutil.SeedCanonicalName(t, ctx, tx, skill.ID, "Go")

	testutil.SeedAlias(t, ctx, tx, golang.ID, "The Go Language")
	testutil.SeedAlias(t, ctx, tx, golang.ID, "Gopher Lang")

	rows, err := repo.GetByCanonicalNameID(ctx, tx, golang.ID)
	if err != nil {
		t.Fatalf("GetByCanonicalNameID: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("GetByCanonicalNameID: want=2 got=%d", len(rows))
	}

	byAlias, err := repo.GetByStandardizedAlias(ctx, tx, "the-go-language")
	if err != nil || len(byAlias) != 1 {
		t.Fatalf("GetByStandardizedAlias: err=%v len=%d", err, len(byAlias))
	}

	if err := repo.Repoint(ctx, tx, golang.ID, goName.ID); err != nil {
		t.Fatalf("Repoint: %v", err)
	}
	moved, err := repo.GetByCanonicalNameID(ctx, tx, goName.ID)
	if err != nil || len(moved) != 2 {
		t.Fatalf("Repoint result: err=%v len=%d", err, len(moved))
	}
	if left, _ := repo.GetByCanonicalNameID(ctx, tx, golang.ID); len(left) != 0 {
		t.Fatalf("Repoint left aliases behind: %d", len(left))
	}

	if err := repo.DeleteByCanonicalNameID(ctx, tx, goName.ID); err != nil {
		t.Fatalf("DeleteByCanonicalNameID: %v", err)
	}
	if left, _ := repo.GetByCanonicalNameID(ctx, tx, goName.ID); len(left) != 0 {
		t.Fatalf("DeleteByCanonicalNameID left aliases: %d", len(left))
	}
}
