// Package trust classifies a candidate's reported runtime environment into a
// discrete tier and validates the cryptographic proof-of-environment keys.
// Everything here is a pure function of its inputs: callers persist results
// and turn issues into ledger entries.
package trust

import (
	"strings"

	"github.com/certvault/certvault-backend/internal/model"
)

// Tier is the ordered confidence level assigned to a reported environment.
type Tier int

const (
	TierNone Tier = iota
	TierBasic
	TierEnhanced
	TierMaximum
)

// String implements fmt.Stringer; the string form is what gets persisted.
func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "BASIC"
	case TierEnhanced:
		return "ENHANCED"
	case TierMaximum:
		return "MAXIMUM"
	default:
		return "NONE"
	}
}

// Detection methods, in priority order. First match wins; a matched method
// is never downgraded to a later one.
const (
	MethodSecureAPI    = "secure_api"
	MethodLegacyObject = "legacy_object"
	MethodUserAgent    = "user_agent"
	MethodNone         = "none"
)

// Issue codes surfaced in Assessment.Issues. KEY_MISMATCH issues carry the
// mismatching key name after a colon.
const (
	IssueExamKeyMismatch   = "KEY_MISMATCH:browser_exam_key"
	IssueConfigKeyMismatch = "KEY_MISMATCH:config_key"
	IssueExamKeyMissing    = "KEY_MISSING:browser_exam_key"
	IssueConfigKeyMissing  = "KEY_MISSING:config_key"
)

// lockdownUserAgents are case-insensitive substrings identifying dedicated
// exam-lockdown browsers. The heuristic is the weakest signal: it can reach
// BASIC at most and is never marked verified.
var lockdownUserAgents = []string{
	"safeexambrowser",
	"seb/",
	"certvault-lockdown",
}

// Assessment is the evaluator's output contract.
type Assessment struct {
	Tier       Tier     `json:"tier"`
	IsVerified bool     `json:"is_verified"`
	Method     string   `json:"method"`
	Issues     []string `json:"issues,omitempty"`
}

// Evaluate runs the detection protocol against the reported environment.
// It never fails: malformed or missing signals resolve to TierNone. On any
// uncertainty the lower tier wins.
func Evaluate(env *model.ClientEnvironment, km KeyMaterial) Assessment {
	if env == nil || env.UserAgent == "" {
		return Assessment{Tier: TierNone, Method: MethodNone}
	}

	if env.HasSecureAPI {
		return evaluateKeyed(env, km, MethodSecureAPI, TierMaximum)
	}

	if env.HasLegacyObject {
		return evaluateKeyed(env, km, MethodLegacyObject, TierEnhanced)
	}

	ua := strings.ToLower(env.UserAgent)
	for _, marker := range lockdownUserAgents {
		if strings.Contains(ua, marker) {
			return Assessment{Tier: TierBasic, IsVerified: false, Method: MethodUserAgent}
		}
	}

	return Assessment{Tier: TierNone, Method: MethodNone}
}

// evaluateKeyed scores a capability interface whose ceiling tier requires
// both keys to validate. Each invalid or missing key degrades the result by
// exactly one level from the ceiling; verification is granted only when
// both keys independently validate.
func evaluateKeyed(env *model.ClientEnvironment, km KeyMaterial, method string, ceiling Tier) Assessment {
	var issues []string

	examKeyValid := false
	if env.BrowserExamKey == nil {
		issues = append(issues, IssueExamKeyMissing)
	} else if keysEqual(*env.BrowserExamKey, ExpectedExamKey(km.SessionID, km.CourseID, km.CandidateID)) {
		examKeyValid = true
	} else {
		issues = append(issues, IssueExamKeyMismatch)
	}

	configKeyValid := false
	if env.ConfigKey == nil {
		issues = append(issues, IssueConfigKeyMissing)
	} else if keysEqual(*env.ConfigKey, ExpectedConfigKey(km.ExamURL, km.ExamConfig)) {
		configKeyValid = true
	} else {
		issues = append(issues, IssueConfigKeyMismatch)
	}

	tier := ceiling
	if !examKeyValid {
		tier--
	}
	if !configKeyValid {
		tier--
	}
	if tier < TierBasic {
		tier = TierBasic
	}

	return Assessment{
		Tier:       tier,
		IsVerified: examKeyValid && configKeyValid,
		Method:     method,
		Issues:     issues,
	}
}
