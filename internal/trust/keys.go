package trust

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// examKeyLength is the number of hex characters of the digest retained as
// the comparable browser exam key. The client derives the same prefix.
const examKeyLength = 32

// KeyMaterial carries the server-side identifiers used to recompute the
// expected proof-of-environment keys for one session.
type KeyMaterial struct {
	SessionID   uuid.UUID
	CourseID    uuid.UUID
	CandidateID int
	ExamURL     string
	// ExamConfig is the lockdown configuration the client is expected to be
	// running with. The config key commits to its canonical form.
	ExamConfig map[string]string
}

// ExpectedExamKey derives the session-bound browser exam key:
// the first examKeyLength hex characters of SHA-256(sessionID|courseID|candidateID).
func ExpectedExamKey(sessionID, courseID uuid.UUID, candidateID int) string {
	material := sessionID.String() + "|" + courseID.String() + "|" + strconv.Itoa(candidateID)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])[:examKeyLength]
}

// ExpectedConfigKey derives the configuration-bound key:
// SHA-256(examURL + hex(SHA-256(canonical config))).
func ExpectedConfigKey(examURL string, config map[string]string) string {
	inner := sha256.Sum256([]byte(CanonicalConfig(config)))
	outer := sha256.Sum256([]byte(examURL + hex.EncodeToString(inner[:])))
	return hex.EncodeToString(outer[:])
}

// CanonicalConfig serializes the configuration as key=value pairs sorted
// lexicographically by key, joined with ';' and no whitespace. The ordering
// is load-bearing: the client hashes the same canonical form.
func CanonicalConfig(config map[string]string) string {
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(config[k])
	}
	return b.String()
}

// keysEqual compares a reported key against the expected value in constant
// time. Empty reported keys never match.
func keysEqual(reported, expected string) bool {
	if reported == "" || len(reported) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(reported), []byte(expected)) == 1
}

// Fingerprint hashes an opaque environment descriptor into the stable
// browser fingerprint stored on the session at admission.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
