package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad input rejected before any state change.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an operation on an unknown id.
	ErrNotFound = errors.New("not found")
	// ErrSync marks a failed remote call. Never fatal.
	ErrSync = errors.New("sync failed")
)

// SyncError describes a failed remote operation on one entity.
type SyncError struct {
	Op     string // load, upsert, delete
	Entity string // profile, habit
	ID     string
	Err    error
}

func (e *SyncError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("sync %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("sync %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func (e *SyncError) Is(target error) bool { return target == ErrSync }

// NewSyncError wraps err, or returns nil when err is nil.
func NewSyncError(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	return &SyncError{Op: op, Entity: entity, ID: id, Err: err}
}
