package trust

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestExpectedExamKeyStableAndSessionBound(t *testing.T) {
	sid := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	cid := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	key := ExpectedExamKey(sid, cid, 42)

	assert.Len(t, key, examKeyLength)
	assert.Equal(t, key, ExpectedExamKey(sid, cid, 42))
	assert.NotEqual(t, key, ExpectedExamKey(uuid.New(), cid, 42))
	assert.NotEqual(t, key, ExpectedExamKey(sid, cid, 43))
}

func TestExpectedConfigKeyCommitsToConfig(t *testing.T) {
	url := "https://exams.example.com/api/v1"
	base := map[string]string{"kiosk": "true", "allow_clipboard": "false"}

	key := ExpectedConfigKey(url, base)

	assert.Len(t, key, 64)
	assert.Equal(t, key, ExpectedConfigKey(url, map[string]string{
		"allow_clipboard": "false",
		"kiosk":           "true",
	}))
	assert.NotEqual(t, key, ExpectedConfigKey(url, map[string]string{"kiosk": "false"}))
	assert.NotEqual(t, key, ExpectedConfigKey("https://other.example.com", base))
}

func TestCanonicalConfigSortsKeys(t *testing.T) {
	got := CanonicalConfig(map[string]string{
		"zeta":  "1",
		"alpha": "2",
		"mid":   "3",
	})

	assert.Equal(t, "alpha=2;mid=3;zeta=1", got)
	assert.Equal(t, "", CanonicalConfig(nil))
	assert.Equal(t, "", CanonicalConfig(map[string]string{}))
}

func TestKeysEqual(t *testing.T) {
	assert.True(t, keysEqual("abc123", "abc123"))
	assert.False(t, keysEqual("abc124", "abc123"))
	assert.False(t, keysEqual("abc", "abc123"))
	// Empty reported keys never match, even against an empty expectation.
	assert.False(t, keysEqual("", ""))
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("Mozilla/5.0", "203.0.113.9")
	b := Fingerprint("Mozilla/5.0", "203.0.113.9")
	c := Fingerprint("Mozilla/5.0", "203.0.113.10")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
