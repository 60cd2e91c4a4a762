package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateLoginKey returns the cache key for a candidate's login session (JTI).
func (r *CacheKeyStruct) CandidateLoginKey(candidateID int) string {
	return fmt.Sprintf("login:%d", candidateID)
}

// ExamPaperKey returns the cache key for a course's candidate-facing paper.
func (r *CacheKeyStruct) ExamPaperKey(courseID string) string {
	return fmt.Sprintf("course:%s:paper", courseID)
}

// AnswerKeyKey returns the cache key for a course's grading key hash.
func (r *CacheKeyStruct) AnswerKeyKey(courseID string) string {
	return fmt.Sprintf("course:%s:answer_key", courseID)
}

// ExamConfigKey returns the cache key for a course's lockdown configuration.
func (r *CacheKeyStruct) ExamConfigKey(courseID string) string {
	return fmt.Sprintf("course:%s:exam_config", courseID)
}

// SessionStartKey returns the cache key for a session's admission timestamp.
func (r *CacheKeyStruct) SessionStartKey(sessionID string) string {
	return fmt.Sprintf("session:%s:started_at", sessionID)
}

// SessionHeartbeatKey returns the cache key for a session's last heartbeat.
func (r *CacheKeyStruct) SessionHeartbeatKey(sessionID string) string {
	return fmt.Sprintf("session:%s:heartbeat", sessionID)
}

var CacheKey = NewCacheKeyStruct()
