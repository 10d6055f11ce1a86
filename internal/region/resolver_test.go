package region

import (
	"errors"
	"testing"

	"cancel_sweep/internal/domain"
)

func countries() *domain.CountryDatabase {
	return &domain.CountryDatabase{Entries: []domain.Country{
		{Code: 124, Name: "Canada", TwoLetterCode: "CA", ThreeLetterCode: "CAN"},
		{Code: 840, Name: "United States", TwoLetterCode: "US", ThreeLetterCode: "USA"},
	}}
}

func markets() *domain.MarketDatabase {
	return &domain.MarketDatabase{Entries: []domain.Market{
		{Code: "XTSE", Country: 124, DisplayName: "TSX"},
		{Code: "XNYS", Country: 840, DisplayName: "NYSE"},
		// Display names that collide with other interpretations.
		{Code: "XCAX", Country: 124, DisplayName: "CA"},
		{Code: "XBRK", Country: 840, DisplayName: "BRK.NYSE"},
	}}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		token string
		kind  domain.RegionKind
		check func(domain.Region) bool
	}{
		{"*", domain.RegionGlobal, nil},
		{"US", domain.RegionCountry, func(r domain.Region) bool { return r.Country() == 840 }},
		{"CAN", domain.RegionCountry, func(r domain.Region) bool { return r.Country() == 124 }},
		{"United States", domain.RegionCountry, func(r domain.Region) bool { return r.Country() == 840 }},
		{"TSX", domain.RegionMarket, func(r domain.Region) bool { return r.Market() == "XTSE" }},
		{"XNYS", domain.RegionMarket, func(r domain.Region) bool { return r.Market() == "XNYS" }},
		{"RY.TSX", domain.RegionSecurity, func(r domain.Region) bool {
			return r.Security() == domain.Security{Symbol: "RY", Market: "XTSE", Country: 124}
		}},
		{" IBM.NYSE ", domain.RegionSecurity, func(r domain.Region) bool { return r.Security().Symbol == "IBM" }},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			r, err := Resolve(tt.token, countries(), markets())
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.token, err)
			}
			if r.Kind() != tt.kind {
				t.Fatalf("Kind = %s, want %s", r.Kind(), tt.kind)
			}
			if tt.check != nil && !tt.check(r) {
				t.Errorf("unexpected region %s", r)
			}
		})
	}
}

func TestResolve_Priority(t *testing.T) {
	// "CA" is both a country code and a market display name.
	r, err := Resolve("CA", countries(), markets())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r.Kind() != domain.RegionCountry {
		t.Errorf("CA resolved to %s, want country", r.Kind())
	}

	// "BRK.NYSE" is both a market display name and BRK listed on NYSE.
	r, err = Resolve("BRK.NYSE", countries(), markets())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r.Kind() != domain.RegionMarket || r.Market() != "XBRK" {
		t.Errorf("BRK.NYSE resolved to %s, want market XBRK", r)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	first, _ := Resolve("BRK.NYSE", countries(), markets())
	for i := 0; i < 10; i++ {
		again, _ := Resolve("BRK.NYSE", countries(), markets())
		if again != first {
			t.Fatalf("resolution changed: %s != %s", again, first)
		}
	}
}

func TestResolve_Invalid(t *testing.T) {
	for _, token := range []string{"", "ZZ", "us", "RY.LSE", "T", "**"} {
		_, err := Resolve(token, countries(), markets())
		if !errors.Is(err, domain.ErrInvalidRegion) {
			t.Errorf("Resolve(%q) error = %v, want ErrInvalidRegion", token, err)
		}
		var invalid *domain.InvalidRegionError
		if !errors.As(err, &invalid) {
			t.Errorf("Resolve(%q) should return InvalidRegionError", token)
		}
	}
}

func TestResolve_NilDatabases(t *testing.T) {
	r, err := Resolve("*", nil, nil)
	if err != nil || !r.IsGlobal() {
		t.Errorf("wildcard should resolve without databases, got %s, %v", r, err)
	}
	if _, err := Resolve("US", nil, nil); err == nil {
		t.Error("expected error without databases")
	}
}
