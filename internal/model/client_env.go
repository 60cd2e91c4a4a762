package model

// ClientEnvironment is the wire-level descriptor of the candidate's reported
// runtime. Optional fields are pointers: an absent key is "not provided",
// which is distinct from an empty string (treated as a mismatch).
type ClientEnvironment struct {
	UserAgent       string  `json:"user_agent" binding:"required,max=1024"`
	HasSecureAPI    bool    `json:"has_secure_api"`
	HasLegacyObject bool    `json:"has_legacy_object"`
	BrowserExamKey  *string `json:"browser_exam_key,omitempty"`
	ConfigKey       *string `json:"config_key,omitempty"`
	Version         *string `json:"version,omitempty"`
}
