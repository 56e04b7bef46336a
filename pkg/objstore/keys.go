package objstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Key layouts are compatibility-critical: other systems read the bucket
// directly. Do not change the formats without a migration plan.
//
//	Draft: drafts/{tenant_slug}/{mrd_slug}_{8-hex}.{ext}.enc
//	Final: {tenant_slug}/{YYYY}/{MM}/{mrd_slug}_{unique}.enc

const DraftPrefix = "drafts/"

// LegacyDraftPrefixes are historical layouts still present in live buckets.
var LegacyDraftPrefixes = []string{"draft/", "drafts_backup/drafts/"}

var slugPattern = regexp.MustCompile(`[^A-Za-z0-9 _-]`)

// Slug replaces every character outside [A-Za-z0-9 _-] with '_', then
// spaces with '_'.
func Slug(s string) string {
	s = slugPattern.ReplaceAllString(s, "_")
	return strings.ReplaceAll(s, " ", "_")
}

// RandomToken returns the 8-char hex token embedded in object keys.
func RandomToken() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// DraftKey builds the staging key for a freshly uploaded file.
func DraftKey(tenant, mrd, token, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s%s/%s_%s.%s.enc", DraftPrefix, Slug(tenant), Slug(mrd), token, ext)
}

// FinalKey builds the published key. The year/month partition comes from
// the record date (discharge > admission > creation, decided by the caller).
func FinalKey(tenant, mrd, token string, recordDate time.Time) string {
	return fmt.Sprintf("%s/%04d/%02d/%s_%s.enc",
		Slug(tenant), recordDate.Year(), int(recordDate.Month()), Slug(mrd), token)
}

var tokenPattern = regexp.MustCompile(`_([0-9a-f]{8})\.`)

// TokenFromKey extracts the 8-hex token from a draft or final key so the
// identity survives the draft→final move. Returns "" if absent.
func TokenFromKey(key string) string {
	m := tokenPattern.FindStringSubmatch(key)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

// IsDraftKey reports whether key uses the current draft layout.
func IsDraftKey(key string) bool {
	return strings.HasPrefix(key, DraftPrefix)
}

// LegacyCandidates maps a draft key to the equivalent keys under historical
// layouts, most recent layout first. Used during confirmation when the
// object is missing at its recorded key.
func LegacyCandidates(key string) []string {
	rest := key
	for _, p := range append([]string{DraftPrefix}, LegacyDraftPrefixes...) {
		if strings.HasPrefix(key, p) {
			rest = strings.TrimPrefix(key, p)
			break
		}
	}

	out := make([]string, 0, len(LegacyDraftPrefixes)+1)
	out = append(out, DraftPrefix+rest)
	for _, p := range LegacyDraftPrefixes {
		out = append(out, p+rest)
	}
	return out
}
