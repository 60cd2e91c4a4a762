package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/certvault/certvault-backend/internal/model"
)

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name          string
		correct       int
		totalAnswered int
		want          float64
	}{
		{"perfect", 10, 10, 100},
		{"four of five", 4, 5, 80},
		{"one of three", 1, 3, 100.0 / 3.0},
		{"nothing answered", 0, 0, 0},
		{"all wrong", 0, 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComputeScore(tt.correct, tt.totalAnswered), 1e-9)
		})
	}
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, model.GradeA},
		{90, model.GradeA},
		{89.99, model.GradeB},
		{80, model.GradeB},
		{79.5, model.GradeC},
		{70, model.GradeC},
		{69, model.GradeD},
		{60, model.GradeD},
		{59.99, model.GradeF},
		{0, model.GradeF},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.score), "score %v", tt.score)
	}
}

func TestTimeSpentMinutesSumsAnswerSeconds(t *testing.T) {
	tests := []struct {
		seconds int64
		want    int
	}{
		{0, 0},
		{29, 0},
		{30, 1},
		{89, 1},
		{90, 2},
		{3000, 50},
		{2700, 45},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeSpentMinutes(tt.seconds), "%d seconds", tt.seconds)
	}
}

func TestFinalGradeRequiresPass(t *testing.T) {
	assert.Equal(t, model.GradeA, finalGrade(95, true))
	assert.Equal(t, model.GradeC, finalGrade(72, true))

	// Disqualified attempts keep their raw score but never a passing grade.
	assert.Equal(t, model.GradeF, finalGrade(95, false))
	assert.Equal(t, model.GradeF, finalGrade(65, false))
}

func TestNewCertificateNumberFormat(t *testing.T) {
	num := NewCertificateNumber("GO101")

	parts := strings.Split(num, "-")
	assert.Len(t, parts, 3)
	assert.Equal(t, "CERT", parts[0])
	assert.Equal(t, "GO101", parts[1])
	assert.Len(t, parts[2], 12)
	assert.Equal(t, strings.ToUpper(parts[2]), parts[2])

	assert.NotEqual(t, num, NewCertificateNumber("GO101"))
}

func TestNewVerificationCode(t *testing.T) {
	code := NewVerificationCode()

	assert.Len(t, code, 16)
	assert.NotEqual(t, code, NewVerificationCode())
}

func TestDisqualifies(t *testing.T) {
	assert.True(t, disqualifies(model.ReasonSecurityViolation))
	assert.True(t, disqualifies(model.ReasonMultipleViolations))
	assert.False(t, disqualifies(model.ReasonExpired))
	assert.False(t, disqualifies(model.ReasonProctorTerminated))
}
