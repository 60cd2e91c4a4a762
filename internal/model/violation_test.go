package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSeverity(t *testing.T) {
	tests := []struct {
		vtype ViolationType
		want  ViolationSeverity
	}{
		{ViolationSecurityBreach, SeverityHigh},
		{ViolationKeyMismatch, SeverityHigh},
		{ViolationTabSwitch, SeverityMedium},
		{ViolationFullscreenExit, SeverityMedium},
		{ViolationWindowBlur, SeverityLow},
		{ViolationProhibitedKeys, SeverityLow},
		{ViolationRightClick, SeverityLow},
		{ViolationCopyPaste, SeverityLow},
		{ViolationWindowFocus, SeverityInfo},
		{ViolationEmergencyOverride, SeverityInfo},
		{ViolationType("SOMETHING_NEW"), SeverityLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.vtype.DefaultSeverity(), "type %s", tt.vtype)
	}
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "INFO", SeverityInfo.String())
	assert.Equal(t, "LOW", SeverityLow.String())
	assert.Equal(t, "MEDIUM", SeverityMedium.String())
	assert.Equal(t, "HIGH", SeverityHigh.String())
	assert.Equal(t, "UNKNOWN", ViolationSeverity(9).String())
}
