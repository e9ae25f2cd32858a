package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/LeshegoT/the-hive-backend/internal/data/repos/testutil"
	"github.com/LeshegoT/the-hive-backend/internal/domain"
)

func TestCanonicalNameRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCanonicalNameRepo(db, testutil.Logger(t))

	skill := testutil.SeedCategory(t, ctx, tx, "skill")
	cert := testutil.SeedCategory(t, ctx, tx, "certification")

	ts := testutil.SeedCanonicalName(t, ctx, tx, skill.ID, "TypeScript")
	testutil.SeedCanonicalName(t, ctx, tx, cert.ID, "AWS Solutions Architect")

	got, err := repo.GetByID(ctx, tx, ts.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.StandardizedName != "typescript" {
		t.Fatalf("GetByID: got %+v", got)
	}
	if got.Category == nil || got.Category.Name != "skill" {
		t.Fatalf("GetByID: category not preloaded: %+v", got.Category)
	}

	if got, err := repo.GetByStandardizedName(ctx, tx, "typescript"); err != nil || got == nil {
		t.Fatalf("GetByStandardizedName: err=%v got=%+v", err, got)
	}
	if got, err := repo.GetByStandardizedName(ctx, tx, "missing"); err != nil || got != nil {
		t.Fatalf("GetByStandardizedName for absent row: err=%v got=%+v", err, got)
	}
	if got, err := repo.GetByName(ctx, tx, "typescript"); err != nil || got == nil {
		t.Fatalf("GetByName should be case-insensitive: err=%v got=%+v", err, got)
	}

	rows, err := repo.GetByStandardizedNames(ctx, tx, []string{"typescript", "aws-solutions-architect", "missing"})
	if err != nil {
		t.Fatalf("GetByStandardizedNames: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("GetByStandardizedNames: want 2 rows, got %d", len(rows))
	}

	guid := uuid.New()
	if err := repo.UpdateFields(ctx, tx, ts.ID, map[string]interface{}{"guid": guid}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, _ = repo.GetByID(ctx, tx, ts.ID)
	if got.Guid == nil || *got.Guid != guid {
		t.Fatalf("UpdateFields: guid not written: %+v", got)
	}

	if err := repo.Delete(ctx, tx, ts.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := repo.GetByID(ctx, tx, ts.ID); got != nil {
		t.Fatalf("Delete: row survived")
	}
}

func TestCanonicalNameRepoSearchByText(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCanonicalNameRepo(db, testutil.Logger(t))
	aliasRepo := NewAliasRepo(db, testutil.Logger(t))

	skill := testutil.SeedCategory(t, ctx, tx, "skill")
	cert := testutil.SeedCategory(t, ctx, tx, "certification")

	ts := testutil.SeedCanonicalName(t, ctx, tx, skill.ID, "TypeScript")
	js := testutil.SeedCanonicalName(t, ctx, tx, skill.ID, "JavaScript")
	testutil.SeedCanonicalName(t, ctx, tx, cert.ID, "TypeScript Certification")

	if _, err := aliasRepo.Create(ctx, tx, []*domain.Alias{{
		Alias: "ECMAScript", StandardizedAlias: "ecmascript", CanonicalNameID: js.ID,
	}}); err != nil {
		t.Fatalf("seed alias: %v", err)
	}

	hits, err := repo.SearchByText(ctx, tx, "TypeScript", 0.3, []string{"skill"})
	if err != nil {
		t.Fatalf("SearchByText: %v", err)
	}
	if len(hits) == 0 {
		t.Fatalf("SearchByText: no hits")
	}
	if hits[0].ID != ts.ID {
		t.Fatalf("SearchByText: exact prefix should rank first, got %s", hits[0].CanonicalName.CanonicalName)
	}
	for _, h := range hits {
		if h.Category != nil && h.Category.Name == "certification" {
			t.Fatalf("SearchByText: category filter leaked %s", h.CanonicalName.CanonicalName)
		}
	}

	// Alias similarity surfaces the owning canonical name.
	aliasHits, err := repo.SearchByText(ctx, tx, "ECMAScript", 0.3, []string{"skill"})
	if err != nil {
		t.Fatalf("SearchByText via alias: %v", err)
	}
	found := false
	for _, h := range aliasHits {
		if h.ID == js.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("SearchByText via alias: JavaScript not found")
	}

	// Threshold drops weak matches.
	if hits, err := repo.SearchByText(ctx, tx, "zzzz", 0.9, []string{"skill"}); err != nil || len(hits) != 0 {
		t.Fatalf("SearchByText threshold: err=%v hits=%d", err, len(hits))
	}
}

func TestCanonicalNameRepoSearchByTextExceptions(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCanonicalNameRepo(db, testutil.Logger(t))
	exceptionRepo := NewSearchExceptionRepo(db, testutil.Logger(t))

	skill := testutil.SeedCategory(t, ctx, tx, "skill")
	eng := testutil.SeedCanonicalName(t, ctx, tx, skill.ID, "Engineering")
	testutil.SeedCanonicalName(t, ctx, tx, skill.ID, "Civil Engineering")

	// Without an exception the word fuzzy-matches both rows.
	hits, err := repo.SearchByText(ctx, tx, "Engineering", 0.3, []string{"skill"})
	if err != nil {
		t.Fatalf("SearchByText: %v", err)
	}
	if len(hits) < 2 {
		t.Fatalf("SearchByText before exception: want>=2 hits got=%d", len(hits))
	}

	if _, err := exceptionRepo.Create(ctx, tx, "Engineering"); err != nil {
		t.Fatalf("seed exception: %v", err)
	}

	// Excepted text matches only by exact prefix; the similarity-only
	// neighbor drops out.
	hits, err = repo.SearchByText(ctx, tx, "Engineering", 0.3, []string{"skill"})
	if err != nil {
		t.Fatalf("SearchByText with exception: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("SearchByText with exception: want=1 hit got=%d", len(hits))
	}
	if hits[0].ID != eng.ID {
		t.Fatalf("SearchByText with exception kept the wrong row: %s", hits[0].CanonicalName.CanonicalName)
	}
}
