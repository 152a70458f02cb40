package config

import "time"

const (
	// Message log
	MaxMessagesPerRoom = 100

	// Group matching
	GroupMinSize   = 3
	GroupMaxSize   = 6
	MaxGenderRatio = 2

	// Locks
	LockTTL        = 5 * time.Second
	LockRetry      = 25 * time.Millisecond
	LockAcquireMax = 3 * time.Second

	// Profile defaults
	DefaultNickname = "익명의친구"
	DefaultLanguage = "ko"
)
