// Package common defines shared sentinel errors used across storysync
// components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound = errors.New("not found")

	// Local draft persistence errors (storage unavailable, quota,
	// corrupted payload). State is treated as absent on read failures.
	ErrLocalPersistence = errors.New("local persistence error")

	// Settings accessor errors.
	ErrSettingsFetch = errors.New("settings fetch failed")

	// Business-rule rejections on admin list mutation. These are expected
	// user-input conditions, never retried.
	ErrDuplicateAdmin = errors.New("admin already exists")
	ErrLastAdmin      = errors.New("cannot remove the last admin")

	// Generic remote write failure (network, permission). Not retried by
	// mutation paths, surfaced immediately.
	ErrRemoteWrite = errors.New("remote write failed")

	// Validation errors.
	ErrInvalidEmail = errors.New("invalid email")
)
