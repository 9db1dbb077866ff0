package domain

import (
	"strings"
	"testing"
)

func TestNewTransactionID_Format(t *testing.T) {
	id, err := NewTransactionID()
	if err != nil {
		t.Fatalf("NewTransactionID returned error: %v", err)
	}
	if !strings.HasPrefix(id, TransactionIDPrefix) {
		t.Fatalf("expected prefix %q, got %q", TransactionIDPrefix, id)
	}
	if len(id) != len(TransactionIDPrefix)+14 {
		t.Fatalf("expected reference length %d, got %d (%q)", len(TransactionIDPrefix)+14, len(id), id)
	}
	if !ValidTransactionID(id) {
		t.Fatalf("generated reference failed validation: %q", id)
	}
}

func TestNewTransactionID_RandomSegmentVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		id, err := NewTransactionID()
		if err != nil {
			t.Fatalf("NewTransactionID returned error: %v", err)
		}
		seen[id] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected varying references, got %d distinct out of 32", len(seen))
	}
}

func TestValidTransactionID(t *testing.T) {
	cases := []struct {
		id    string
		valid bool
	}{
		{"ISA-A1B2C3D4123456", true},
		{"ISA-FFFFFFFF000000", true},
		{"isa-a1b2c3d4123456", false},
		{"ISA-A1B2C3D412345", false},
		{"ISA-G1B2C3D4123456", false},
		{"A1B2C3D4123456", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidTransactionID(tc.id); got != tc.valid {
			t.Errorf("ValidTransactionID(%q) = %t, want %t", tc.id, got, tc.valid)
		}
	}
}
