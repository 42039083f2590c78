package erd

import (
	"errors"
	"testing"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{"0x0092", 0x0092, false},
		{"0092", 0x0092, false},
		{"92", 0x0092, false},
		{"0X4024", 0x4024, false},
		{" 0x000a ", 0x000a, false},
		{"", 0, true},
		{"0x", 0, true},
		{"zz", 0, true},
		{"0x10000", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseID(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Errorf("ParseID(%q) error = %v, want ErrInvalidID", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseID(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseID(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIDFormatting(t *testing.T) {
	id := ID(0x000a)
	if got := id.String(); got != "0x000a" {
		t.Errorf("String() = %q, want %q", got, "0x000a")
	}
	if got := id.Hex(); got != "000a" {
		t.Errorf("Hex() = %q, want %q", got, "000a")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		id   ID
		want Class
	}{
		{0x0092, ClassCommonManifest},
		{0x0093, ClassFeatureManifest},
		{0x0097, ClassFeatureManifest},
		{0x0098, ClassOrdinary},
		{0x0109, ClassFeatureManifest},
		{0x0118, ClassFeatureManifest},
		{0x0119, ClassOrdinary},
		{0x0001, ClassOrdinary},
	}

	for _, tt := range tests {
		if got := Classify(tt.id); got != tt.want {
			t.Errorf("Classify(%s) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
