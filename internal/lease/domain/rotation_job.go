// Package domain defines the lease manager entities: scheduled rotation jobs
// and their execution state.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobKind identifies what a rotation job rotates.
type JobKind string

const (
	// KindTransitKeyRotate advances a transit key to its next version.
	KindTransitKeyRotate JobKind = "transit-key-rotate"

	// KindDBRootRotate rotates the admin password of a database configuration.
	KindDBRootRotate JobKind = "db-root-rotate"

	// KindKVRewrap rewrites the current version of a KV path so it is sealed
	// under fresh nonces.
	KindKVRewrap JobKind = "kv-rewrap"
)

// Kinds lists every supported job kind.
var Kinds = []JobKind{KindTransitKeyRotate, KindDBRootRotate, KindKVRewrap}

// Valid reports whether the kind is supported.
func (k JobKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// RotationJob is one recurring rotation. Target names the rotated resource
// (key name, configuration name, or KV path). LockedBy and LockedUntil
// implement the scheduler's at-most-once execution claim; FailureCount drives
// the retry backoff between failed runs.
type RotationJob struct {
	ID              uuid.UUID
	Kind            JobKind
	Target          string
	Interval        time.Duration
	NextExecutionAt time.Time
	FailureCount    int
	LastError       *string
	Active          bool
	LockedBy        string
	LockedUntil     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Due reports whether the job should run at the given instant.
func (j *RotationJob) Due(now time.Time) bool {
	return j.Active && !now.Before(j.NextExecutionAt)
}
