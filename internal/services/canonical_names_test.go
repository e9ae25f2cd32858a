package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/pkg/apperr"
)

func seedCanonicalName(t *testing.T, h *harness, name, category string) *domain.CanonicalName {
	t.Helper()
	ctx := context.Background()
	cat, err := h.store.EnsureByName(ctx, nil, category)
	if err != nil {
		t.Fatalf("ensure category: %v", err)
	}
	rows, err := h.store.Create(ctx, nil, []*domain.CanonicalName{{
		CanonicalName:    name,
		StandardizedName: standardize(name),
		CategoryID:       cat.ID,
	}})
	if err != nil {
		t.Fatalf("seed canonical name: %v", err)
	}
	return rows[0]
}

func standardize(name string) string {
	// Mirrors normalization.StandardizeName for the simple seeds used here.
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ':
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

func TestRenameRejectsCollision(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	ts := seedCanonicalName(t, h, "TypeScript", "skill")
	seedCanonicalName(t, h, "JavaScript", "skill")

	_, err := h.canonicalNames.Rename(ctx, nil, ts.ID, "JavaScript")
	if !apperr.IsConflict(err) {
		t.Fatalf("rename onto existing name: want conflict, got %v", err)
	}
	// The row is untouched.
	row, _ := h.store.GetByID(ctx, nil, ts.ID)
	if row.CanonicalName != "TypeScript" {
		t.Fatalf("failed rename mutated the row: %+v", row)
	}
}

func TestRenameUpdatesStandardizedName(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	row := seedCanonicalName(t, h, "Java Script", "skill")
	renamed, err := h.canonicalNames.Rename(ctx, nil, row.ID, "JavaScript")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.CanonicalName != "JavaScript" || renamed.StandardizedName != "javascript" {
		t.Fatalf("rename result: %+v", renamed)
	}
}

func TestMergeIntoRepointsAliases(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	from := seedCanonicalName(t, h, "Golang", "skill")
	into := seedCanonicalName(t, h, "Go", "skill")
	if _, err := h.canonicalNames.AddAlias(ctx, nil, from.ID, "The Go Language"); err != nil {
		t.Fatalf("seed alias: %v", err)
	}

	if err := h.canonicalNames.MergeInto(ctx, nil, from.ID, into.ID); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if row, _ := h.store.GetByID(ctx, nil, from.ID); row != nil {
		t.Fatalf("merged row still exists")
	}
	details, err := h.canonicalNames.RetrieveDetails(ctx, "go")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	want := map[string]bool{"Golang": false, "The Go Language": false}
	for _, a := range details.Aliases {
		if _, ok := want[a]; ok {
			want[a] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("alias %q missing after merge: %v", name, details.Aliases)
		}
	}
}

func TestMergeIntoSelfIsConflict(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	row := seedCanonicalName(t, h, "Go", "skill")

	err := h.canonicalNames.MergeInto(ctx, nil, row.ID, row.ID)
	if !apperr.IsConflict(err) {
		t.Fatalf("self merge: want conflict, got %v", err)
	}
}

func TestMergeAcrossCategoriesIsConflict(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	skill := seedCanonicalName(t, h, "AWS", "skill")
	cert := seedCanonicalName(t, h, "AWS SA", "certification")

	err := h.canonicalNames.MergeInto(ctx, nil, skill.ID, cert.ID)
	if !apperr.IsConflict(err) {
		t.Fatalf("cross-category merge: want conflict, got %v", err)
	}
}

func TestRetrieveDetailsNotFound(t *testing.T) {
	h := newHarness()
	_, err := h.canonicalNames.RetrieveDetails(context.Background(), "missing")
	if !apperr.IsNotFound(err) {
		t.Fatalf("want not-found, got %v", err)
	}
}

func TestUpdateGuidsPartitionsFailures(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	row := seedCanonicalName(t, h, "Go", "skill")
	guid := uuid.New()

	result, err := h.canonicalNames.UpdateGuidsByStandardizedNames(ctx, []GuidUpdate{
		{StandardizedName: "go", Guid: guid},
		{StandardizedName: "does-not-exist", Guid: uuid.New()},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(result.Succeeded) != 1 || result.Succeeded[0].StandardizedName != "go" {
		t.Fatalf("succeeded: %+v", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0].StandardizedName != "does-not-exist" {
		t.Fatalf("failed: %+v", result.Failed)
	}
	got, _ := h.store.GetByID(ctx, nil, row.ID)
	if got.Guid == nil || *got.Guid != guid {
		t.Fatalf("guid not written: %+v", got)
	}
}

func TestAddAliasShadowingCanonicalNameIsConflict(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	go1 := seedCanonicalName(t, h, "Go", "skill")
	seedCanonicalName(t, h, "Rust", "skill")

	_, err := h.canonicalNames.AddAlias(ctx, nil, go1.ID, "Rust")
	if !apperr.IsConflict(err) {
		t.Fatalf("alias shadowing canonical name: want conflict, got %v", err)
	}
}

func TestAddAliasIsIdempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	row := seedCanonicalName(t, h, "Go", "skill")
	a1, err := h.canonicalNames.AddAlias(ctx, nil, row.ID, "Golang")
	if err != nil {
		t.Fatalf("first alias: %v", err)
	}
	a2, err := h.canonicalNames.AddAlias(ctx, nil, row.ID, "Golang")
	if err != nil {
		t.Fatalf("second alias: %v", err)
	}
	if a1.ID != a2.ID {
		t.Fatalf("duplicate alias created")
	}
}

func TestSearchTextExceptions(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.canonicalNames.AddSearchTextException(ctx, nil, "the"); err != nil {
		t.Fatalf("add exception: %v", err)
	}
	if err := h.canonicalNames.AddSearchTextException(ctx, nil, "  "); !apperr.IsValidation(err) {
		t.Fatalf("blank exception: want validation error, got %v", err)
	}
	got, err := h.canonicalNames.RetrieveSearchTextExceptions(ctx)
	if err != nil {
		t.Fatalf("list exceptions: %v", err)
	}
	if len(got) != 1 || got[0] != "the" {
		t.Fatalf("exceptions: %v", got)
	}
}
