package trust

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certvault/certvault-backend/internal/model"
)

func testKeyMaterial() KeyMaterial {
	return KeyMaterial{
		SessionID:   uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		CourseID:    uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		CandidateID: 42,
		ExamURL:     "https://exams.example.com/api/v1",
		ExamConfig:  map[string]string{"allow_clipboard": "false", "kiosk": "true"},
	}
}

func validEnv(km KeyMaterial) *model.ClientEnvironment {
	examKey := ExpectedExamKey(km.SessionID, km.CourseID, km.CandidateID)
	configKey := ExpectedConfigKey(km.ExamURL, km.ExamConfig)
	return &model.ClientEnvironment{
		UserAgent:      "SafeExamBrowser/3.7.0",
		HasSecureAPI:   true,
		BrowserExamKey: &examKey,
		ConfigKey:      &configKey,
	}
}

func TestEvaluateSecureAPIBothKeysValid(t *testing.T) {
	km := testKeyMaterial()
	got := Evaluate(validEnv(km), km)

	assert.Equal(t, TierMaximum, got.Tier)
	assert.True(t, got.IsVerified)
	assert.Equal(t, MethodSecureAPI, got.Method)
	assert.Empty(t, got.Issues)
}

func TestEvaluateLegacyObjectCeilingEnhanced(t *testing.T) {
	km := testKeyMaterial()
	env := validEnv(km)
	env.HasSecureAPI = false
	env.HasLegacyObject = true

	got := Evaluate(env, km)

	assert.Equal(t, TierEnhanced, got.Tier)
	assert.True(t, got.IsVerified)
	assert.Equal(t, MethodLegacyObject, got.Method)
}

func TestEvaluateSecureAPIWinsOverLegacyObject(t *testing.T) {
	km := testKeyMaterial()
	env := validEnv(km)
	env.HasLegacyObject = true

	got := Evaluate(env, km)

	assert.Equal(t, MethodSecureAPI, got.Method)
	assert.Equal(t, TierMaximum, got.Tier)
}

func TestEvaluateDegradesOneTierPerBadKey(t *testing.T) {
	km := testKeyMaterial()
	wrong := "deadbeefdeadbeefdeadbeefdeadbeef"

	tests := []struct {
		name       string
		mutate     func(env *model.ClientEnvironment)
		wantTier   Tier
		wantIssues []string
	}{
		{
			name:       "exam key wrong",
			mutate:     func(env *model.ClientEnvironment) { env.BrowserExamKey = &wrong },
			wantTier:   TierEnhanced,
			wantIssues: []string{IssueExamKeyMismatch},
		},
		{
			name:       "config key missing",
			mutate:     func(env *model.ClientEnvironment) { env.ConfigKey = nil },
			wantTier:   TierEnhanced,
			wantIssues: []string{IssueConfigKeyMissing},
		},
		{
			name: "both keys missing",
			mutate: func(env *model.ClientEnvironment) {
				env.BrowserExamKey = nil
				env.ConfigKey = nil
			},
			wantTier:   TierBasic,
			wantIssues: []string{IssueExamKeyMissing, IssueConfigKeyMissing},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnv(km)
			tt.mutate(env)

			got := Evaluate(env, km)

			assert.Equal(t, tt.wantTier, got.Tier)
			assert.False(t, got.IsVerified)
			assert.Equal(t, tt.wantIssues, got.Issues)
		})
	}
}

func TestEvaluateLegacyObjectFloorsAtBasic(t *testing.T) {
	km := testKeyMaterial()
	env := &model.ClientEnvironment{
		UserAgent:       "SafeExamBrowser/3.7.0",
		HasLegacyObject: true,
	}

	// Ceiling ENHANCED minus two degradations would land below BASIC.
	got := Evaluate(env, km)

	assert.Equal(t, TierBasic, got.Tier)
	assert.False(t, got.IsVerified)
	assert.Len(t, got.Issues, 2)
}

func TestEvaluateUserAgentHeuristic(t *testing.T) {
	km := testKeyMaterial()

	tests := []struct {
		name     string
		ua       string
		wantTier Tier
	}{
		{"seb long form", "SafeExamBrowser/3.7.0 (Windows NT 10.0)", TierBasic},
		{"seb short form", "Mozilla/5.0 SEB/3.4", TierBasic},
		{"case insensitive", "SAFEEXAMBROWSER", TierBasic},
		{"ordinary browser", "Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0", TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(&model.ClientEnvironment{UserAgent: tt.ua}, km)

			assert.Equal(t, tt.wantTier, got.Tier)
			assert.False(t, got.IsVerified)
			if tt.wantTier == TierBasic {
				assert.Equal(t, MethodUserAgent, got.Method)
			} else {
				assert.Equal(t, MethodNone, got.Method)
			}
		})
	}
}

func TestEvaluateNeverFails(t *testing.T) {
	km := testKeyMaterial()

	for _, env := range []*model.ClientEnvironment{
		nil,
		{},
		{UserAgent: ""},
	} {
		got := Evaluate(env, km)
		require.Equal(t, TierNone, got.Tier)
		require.False(t, got.IsVerified)
		require.Equal(t, MethodNone, got.Method)
	}
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "NONE", TierNone.String())
	assert.Equal(t, "BASIC", TierBasic.String())
	assert.Equal(t, "ENHANCED", TierEnhanced.String())
	assert.Equal(t, "MAXIMUM", TierMaximum.String())
	assert.Equal(t, "NONE", Tier(99).String())
}
