package objstore

import (
	"regexp"
	"testing"
	"time"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme", "Acme"},
		{"St. Mary's Hospital", "St__Mary_s_Hospital"},
		{"A001", "A001"},
		{"MRD/2024#17", "MRD_2024_17"},
		{"under_score-dash", "under_score-dash"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDraftKey(t *testing.T) {
	key := DraftKey("Acme", "A001", "deadbeef", ".pdf")
	want := "drafts/Acme/A001_deadbeef.pdf.enc"
	if key != want {
		t.Errorf("DraftKey = %q, want %q", key, want)
	}
	if !IsDraftKey(key) {
		t.Error("IsDraftKey(draft key) = false")
	}
}

func TestFinalKey(t *testing.T) {
	date := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	key := FinalKey("Acme", "A001", "deadbeef", date)
	want := "Acme/2025/03/A001_deadbeef.enc"
	if key != want {
		t.Errorf("FinalKey = %q, want %q", key, want)
	}
	if IsDraftKey(key) {
		t.Error("IsDraftKey(final key) = true")
	}
}

func TestTokenFromKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"drafts/Acme/A001_deadbeef.pdf.enc", "deadbeef"},
		{"Acme/2025/03/A001_cafe0123.enc", "cafe0123"},
		{"drafts/Acme/A001.pdf.enc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TokenFromKey(tt.key); got != tt.want {
			t.Errorf("TokenFromKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestRandomTokenShape(t *testing.T) {
	hex8 := regexp.MustCompile(`^[0-9a-f]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		tok := RandomToken()
		if !hex8.MatchString(tok) {
			t.Fatalf("RandomToken() = %q, want 8 hex chars", tok)
		}
		seen[tok] = true
	}
	if len(seen) < 2 {
		t.Error("RandomToken() produced no variation")
	}
}

func TestLegacyCandidates(t *testing.T) {
	got := LegacyCandidates("draft/Acme/A001_deadbeef.pdf.enc")
	want := []string{
		"drafts/Acme/A001_deadbeef.pdf.enc",
		"draft/Acme/A001_deadbeef.pdf.enc",
		"drafts_backup/drafts/Acme/A001_deadbeef.pdf.enc",
	}
	if len(got) != len(want) {
		t.Fatalf("LegacyCandidates returned %d keys, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
