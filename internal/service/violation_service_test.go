package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/certvault/certvault-backend/internal/model"
)

func TestIsBreach(t *testing.T) {
	assert.True(t, isBreach(model.ViolationSecurityBreach))
	assert.True(t, isBreach(model.ViolationKeyMismatch))
	assert.False(t, isBreach(model.ViolationTabSwitch))
	assert.False(t, isBreach(model.ViolationEmergencyOverride))
	assert.False(t, isBreach(model.ViolationType("SOMETHING_NEW")))
}
