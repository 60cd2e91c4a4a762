package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStatusIsActive(t *testing.T) {
	assert.True(t, SessionStatusPending.IsActive())
	assert.True(t, SessionStatusInProgress.IsActive())
	assert.False(t, SessionStatusCompleted.IsActive())
	assert.False(t, SessionStatusTerminated.IsActive())
}

func TestDeadlineRequiresAdmission(t *testing.T) {
	s := &ExamSession{DurationSeconds: 3600}

	_, ok := s.Deadline(2 * time.Minute)
	assert.False(t, ok)

	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.StartedAt = &started

	deadline, ok := s.Deadline(2 * time.Minute)
	assert.True(t, ok)
	assert.Equal(t, started.Add(time.Hour+2*time.Minute), deadline)
}

func TestTimeRemaining(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := &ExamSession{DurationSeconds: 3600, StartedAt: &started}

	// Mid-exam, no grace.
	assert.InDelta(t, 1800, s.TimeRemaining(started.Add(30*time.Minute), 0), 1e-9)

	// Past the deadline, floored at zero.
	assert.Zero(t, s.TimeRemaining(started.Add(2*time.Hour), 0))

	// Grace extends the window.
	assert.InDelta(t, 60, s.TimeRemaining(started.Add(time.Hour+time.Minute), 2*time.Minute), 1e-9)

	// Not yet admitted: the full duration is still available.
	unstarted := &ExamSession{DurationSeconds: 3600}
	assert.InDelta(t, 3600, unstarted.TimeRemaining(time.Now(), 0), 1e-9)
}
