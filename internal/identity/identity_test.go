package identity_test

import (
	"errors"
	"testing"

	"mezzpress/internal/identity"
)

func baseUnit() identity.WorkUnit {
	return identity.WorkUnit{
		ManifestID:      "aot-s01e01-transcode",
		ContentChecksum: "d41d8cd98f00b204e9800998ecf8427e",
		ContentSize:     32_212_254_720,
		AudioLanguages:  []string{"en", "ja"},
		ProfileVersion:  "v1.0",
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	unit := baseUnit()

	first, err := identity.Derive(unit)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := identity.Derive(unit)
		if err != nil {
			t.Fatalf("Derive failed on iteration %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("expected identical key, got %s vs %s", again, first)
		}
	}
	if len(first) != 64 {
		t.Fatalf("expected 64-char hex key, got %d chars", len(first))
	}
}

func TestDeriveProfileVersionSensitivity(t *testing.T) {
	unit := baseUnit()
	v1, err := identity.Derive(unit)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	unit.ProfileVersion = "v2.0"
	v2, err := identity.Derive(unit)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if v1 == v2 {
		t.Fatal("expected profile version change to change the key")
	}
}

func TestNormalizeSortsLanguages(t *testing.T) {
	shuffled := baseUnit()
	shuffled.AudioLanguages = []string{"ja", "en"}
	shuffled.ContentChecksum = "D41D8CD98F00B204E9800998ECF8427E"

	sorted, err := identity.Derive(baseUnit())
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	normalized, err := identity.Derive(shuffled.Normalize())
	if err != nil {
		t.Fatalf("Derive after Normalize failed: %v", err)
	}
	if sorted != normalized {
		t.Fatal("expected pre-normalization ordering to not affect the key")
	}
}

func TestDeriveRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*identity.WorkUnit)
	}{
		{"missing checksum", func(u *identity.WorkUnit) { u.ContentChecksum = "" }},
		{"uppercase checksum", func(u *identity.WorkUnit) { u.ContentChecksum = "ABCDEF0123456789ABCDEF0123456789" }},
		{"zero size", func(u *identity.WorkUnit) { u.ContentSize = 0 }},
		{"negative size", func(u *identity.WorkUnit) { u.ContentSize = -1 }},
		{"missing manifest id", func(u *identity.WorkUnit) { u.ManifestID = "" }},
		{"missing profile", func(u *identity.WorkUnit) { u.ProfileVersion = "" }},
		{"unsorted languages", func(u *identity.WorkUnit) { u.AudioLanguages = []string{"ja", "en"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			unit := baseUnit()
			tc.mutate(&unit)
			if _, err := identity.Derive(unit); !errors.Is(err, identity.ErrMalformedWorkUnit) {
				t.Fatalf("expected ErrMalformedWorkUnit, got %v", err)
			}
		})
	}
}

func TestDistinctTuplesProduceDistinctKeys(t *testing.T) {
	unit := baseUnit()
	base, err := identity.Derive(unit)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	mutations := []func(*identity.WorkUnit){
		func(u *identity.WorkUnit) { u.ManifestID = "aot-s01e02-transcode" },
		func(u *identity.WorkUnit) { u.ContentChecksum = "c41d8cd98f00b204e9800998ecf8427e" },
		func(u *identity.WorkUnit) { u.ContentSize++ },
		func(u *identity.WorkUnit) { u.AudioLanguages = []string{"en"} },
	}
	for i, mutate := range mutations {
		mutated := baseUnit()
		mutate(&mutated)
		key, err := identity.Derive(mutated)
		if err != nil {
			t.Fatalf("Derive failed for mutation %d: %v", i, err)
		}
		if key == base {
			t.Fatalf("mutation %d should have changed the key", i)
		}
	}
}
