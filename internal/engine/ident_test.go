package engine

import "testing"

func TestValidIdentifier(t *testing.T) {
	valid := []string{
		"name",
		"user_id",
		"_internal",
		"a1",
		"t.name",
		"warehouses.created_at",
		"UPPER_case",
	}
	for _, name := range valid {
		if !ValidIdentifier(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}

	invalid := []string{
		"",
		"1name",
		".name",
		"name.",
		"a.b.c",
		"a..b",
		"t.1col",
		"name;",
		"na me",
		"name--",
		`"name"`,
		"name)",
		"naïve",
		"col\n",
	}
	for _, name := range invalid {
		if ValidIdentifier(name) {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}
