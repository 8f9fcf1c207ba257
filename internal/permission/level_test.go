package permission

import "testing"

func TestSatisfiesTable(t *testing.T) {
	cases := []struct {
		name     string
		required Level
		granted  Level
		want     bool
	}{
		{"read satisfied by full", ReadOnly, FullControl, true},
		{"full not satisfied by read", FullControl, ReadOnly, false},
		{"read satisfied by read", ReadOnly, ReadOnly, true},
		{"read satisfied by restricted", ReadOnly, Restricted, true},
		{"full not satisfied by restricted", FullControl, Restricted, false},
		{"restricted satisfied by full", Restricted, FullControl, true},
		{"restricted satisfied by restricted", Restricted, Restricted, true},
		{"restricted not satisfied by read", Restricted, ReadOnly, false},
		{"none requirement always passes", NoAccess, NoAccess, true},
		{"none grant fails read", ReadOnly, NoAccess, false},
		{"none grant fails full", FullControl, NoAccess, false},
		{"none grant fails restricted", Restricted, NoAccess, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Satisfies(tc.required, tc.granted); got != tc.want {
				t.Fatalf("Satisfies(%s, %s) = %v, want %v", tc.required, tc.granted, got, tc.want)
			}
		})
	}
}

func TestSatisfiesNoAccessGrantOnlySatisfiesNoAccess(t *testing.T) {
	for _, required := range Levels() {
		got := Satisfies(required, NoAccess)
		want := required == NoAccess
		if got != want {
			t.Fatalf("Satisfies(%s, none) = %v, want %v", required, got, want)
		}
	}
}

func TestSatisfiesUnknownLevels(t *testing.T) {
	if Satisfies(Level("root"), FullControl) {
		t.Fatal("unknown required level must never be satisfied")
	}
	if Satisfies(ReadOnly, Level("root")) {
		t.Fatal("unknown granted level must never satisfy")
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel(" Full "); err != nil || lvl != FullControl {
		t.Fatalf("ParseLevel(Full) = %v, %v", lvl, err)
	}
	if _, err := ParseLevel("superuser"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
