package domain

import "testing"

func TestPageWindow(t *testing.T) {
	cases := []struct {
		page     Page
		total    int
		from, to int
	}{
		{Page{StartIndex: 0, PageLength: 2}, 5, 0, 2},
		{Page{StartIndex: 1, PageLength: 2}, 5, 2, 4},
		{Page{StartIndex: 2, PageLength: 2}, 5, 4, 5},
		{Page{StartIndex: 3, PageLength: 2}, 5, 5, 5},
		{Page{StartIndex: 0, PageLength: 0}, 5, 0, 0},
		{Page{StartIndex: -1, PageLength: 2}, 5, 0, 2},
	}
	for i, c := range cases {
		from, to := c.page.Window(c.total)
		if from != c.from || to != c.to {
			t.Fatalf("case %d: want [%d,%d) got [%d,%d)", i, c.from, c.to, from, to)
		}
	}
}

func TestPageWindowNoOverlapNoGaps(t *testing.T) {
	total := 5
	seen := map[int]bool{}
	for start := 0; ; start++ {
		from, to := (Page{StartIndex: start, PageLength: 2}).Window(total)
		if from == to {
			break
		}
		for i := from; i < to; i++ {
			if seen[i] {
				t.Fatalf("index %d returned twice", i)
			}
			seen[i] = true
		}
	}
	if len(seen) != total {
		t.Fatalf("pages covered %d of %d items", len(seen), total)
	}
}

func TestAttributeRepeatable(t *testing.T) {
	a := Attribute{MetaDataTags: []string{"featured", MetaDataTagRepeatable}}
	if !a.Repeatable() {
		t.Fatalf("expected repeatable")
	}
	b := Attribute{MetaDataTags: []string{"featured"}}
	if b.Repeatable() {
		t.Fatalf("expected not repeatable")
	}
}
