package permission

import "testing"

func TestCatalogKnown(t *testing.T) {
	for _, r := range All() {
		if !Known(r) {
			t.Fatalf("catalogued resource %s reported unknown", r)
		}
	}
	if Known(Resource("sales.refunds")) {
		t.Fatal("uncatalogued resource reported known")
	}
}

func TestGroupedCoversCatalog(t *testing.T) {
	groups := Grouped()
	seen := make(map[Resource]bool)
	prev := ""
	for _, g := range groups {
		if g.Group <= prev {
			t.Fatalf("groups not sorted: %q after %q", g.Group, prev)
		}
		prev = g.Group
		for _, r := range g.Resources {
			if r.Group() != g.Group {
				t.Fatalf("resource %s bucketed under %s", r, g.Group)
			}
			seen[r] = true
		}
	}
	for _, r := range All() {
		if !seen[r] {
			t.Fatalf("resource %s missing from grouped catalog", r)
		}
	}
}
