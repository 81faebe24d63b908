package version

import (
	"strings"
	"testing"
)

func withBuildDate(t *testing.T, date string) {
	t.Helper()
	old := BuildDate
	BuildDate = date
	t.Cleanup(func() { BuildDate = old })
}

func TestCalculateBuildID(t *testing.T) {
	tests := []struct {
		name      string
		date      string
		expected  int
		wantError bool
	}{
		{name: "epoch date", date: "2026-01-01", expected: 0},
		{name: "next day", date: "2026-01-02", expected: 1},
		{name: "one year later", date: "2027-01-01", expected: 365},
		{name: "across a leap year", date: "2029-01-01", expected: 1096},
		{name: "invalid format", date: "01/02/2026", wantError: true},
		{name: "empty date", date: "", wantError: true},
		{name: "before epoch", date: "2025-12-31", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuildDate(t, tt.date)

			got, err := CalculateBuildID()
			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error, got nil (id=%d)", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("CalculateBuildID() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestString(t *testing.T) {
	withBuildDate(t, "")
	if s := String(); !strings.HasPrefix(s, "Build unknown") {
		t.Errorf("String() = %q, want unknown build", s)
	}

	withBuildDate(t, "2026-01-11")
	s := String()
	if !strings.HasPrefix(s, "Build 10 (2026-01-11)") {
		t.Errorf("String() = %q", s)
	}
	if !strings.Contains(s, "ci[local]") {
		t.Errorf("String() = %q, want local CI fallback", s)
	}
}

func TestInfo_CarriesProtocol(t *testing.T) {
	withBuildDate(t, "2026-01-01")
	info := Info()
	if !info.Calculated || info.Protocol != Protocol {
		t.Errorf("Info() = %+v", info)
	}
}
