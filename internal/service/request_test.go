package service

import (
	"testing"

	"cancel_sweep/internal/domain"
)

func TestRequest_Scope(t *testing.T) {
	id := domain.OrderID(42)

	tests := []struct {
		name    string
		req     Request
		want    Scope
		wantErr error
	}{
		{"order", Request{OrderID: &id}, ScopeOrder, nil},
		{"account", Request{Account: "ACME"}, ScopeAccount, nil},
		{"account with region", Request{Account: "ACME", Region: "CA"}, ScopeAccount, nil},
		{"region", Request{Region: "*"}, ScopeRegion, nil},
		{"blank", Request{Account: "  ", Region: "\t"}, ScopeNone, domain.ErrNoScope},
		{"empty", Request{}, ScopeNone, domain.ErrNoScope},
		{"order and account", Request{OrderID: &id, Account: "ACME"}, ScopeNone, domain.ErrConflictingScope},
		{"order and region", Request{OrderID: &id, Region: "US"}, ScopeNone, domain.ErrConflictingScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Scope()
			if err != tt.wantErr {
				t.Fatalf("Scope() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Scope() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRequest_MessageDefault(t *testing.T) {
	if got := (Request{}).message(); got != DefaultMessage {
		t.Errorf("message() = %q, want %q", got, DefaultMessage)
	}
	if got := (Request{Message: "Halted."}).message(); got != "Halted." {
		t.Errorf("message() = %q", got)
	}
}

func TestRequest_Target(t *testing.T) {
	id := domain.OrderID(7)
	if got := (Request{OrderID: &id}).target(); got != "7" {
		t.Errorf("target() = %q, want 7", got)
	}
	if got := (Request{Account: "ACME", Region: "TSX"}).target(); got != "ACME@TSX" {
		t.Errorf("target() = %q", got)
	}
	if got := (Request{Region: "US"}).target(); got != "US" {
		t.Errorf("target() = %q", got)
	}
}
