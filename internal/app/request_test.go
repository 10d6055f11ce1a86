package app

import (
	"errors"
	"testing"
	"time"

	"cancel_sweep/internal/domain"
	"cancel_sweep/internal/service"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		source string
		want   time.Time
		ok     bool
	}{
		{"2020-03-02 09:30:15", time.Date(2020, 3, 2, 9, 30, 15, 0, time.UTC), true},
		{"2020-03-02", time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), true},
		{" 2020-03-02 ", time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), true},
		{"2020/03/02", time.Time{}, false},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got, err := ParseDate(tt.source)
			if (err == nil) != tt.ok {
				t.Fatalf("ParseDate(%q) error = %v, want ok=%v", tt.source, err, tt.ok)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.source, got, tt.want)
			}
		})
	}
}

func TestBuildRequest(t *testing.T) {
	req, err := BuildRequest(Flags{
		Account: "ACME",
		Region:  "TSX",
		Begin:   "2020-03-02",
		End:     "2020-03-02 16:00:00",
	})
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if scope, _ := req.Scope(); scope != service.ScopeAccount {
		t.Errorf("scope = %s, want ACCOUNT", scope)
	}
	if req.End.Hour() != 16 || req.Begin.Hour() != 0 {
		t.Errorf("range = %v - %v", req.Begin, req.End)
	}
	if req.Message != "" {
		t.Errorf("message = %q, want empty so the default applies", req.Message)
	}
}

func TestBuildRequest_Order(t *testing.T) {
	req, err := BuildRequest(Flags{Order: "42", Message: "Halted."})
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if req.OrderID == nil || *req.OrderID != 42 {
		t.Errorf("OrderID = %v, want 42", req.OrderID)
	}
}

func TestBuildRequest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		flags   Flags
		wantErr error
	}{
		{"no scope", Flags{Begin: "2020-03-02"}, domain.ErrNoScope},
		{"conflicting scope", Flags{Order: "1", Region: "CA"}, domain.ErrConflictingScope},
		{"bad order", Flags{Order: "abc"}, nil},
		{"negative order", Flags{Order: "-1"}, nil},
		{"bad begin", Flags{Region: "*", Begin: "03/02/2020"}, nil},
		{"bad end", Flags{Region: "*", End: "noon"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRequest(tt.flags)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
