// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"errors"
	"strconv"
)

var (
	// ErrEmptyInput is returned when a matrix is built from zero usable records.
	ErrEmptyInput = errors.New("no interaction records")

	// ErrUserNotFound is returned when the query user has no row in the
	// training matrix. Callers handle cold start themselves.
	ErrUserNotFound = errors.New("user not found in training data")

	// ErrEmptyNeighborSet is returned when the query user is the only user
	// in the training matrix.
	ErrEmptyNeighborSet = errors.New("user has no neighbors")

	// ErrNoSnapshot is returned by the engine before the first snapshot is loaded.
	ErrNoSnapshot = errors.New("no snapshot loaded")

	// ErrDimensionMismatch is returned when a similarity matrix was not
	// computed from the training matrix it is paired with.
	ErrDimensionMismatch = errors.New("similarity and training matrices are not aligned")
)

// UserNotFoundError carries the unknown user id.
// errors.Is(err, ErrUserNotFound) reports true for it.
type UserNotFoundError struct {
	UserID string
}

// Error implements the error interface.
func (e *UserNotFoundError) Error() string {
	return ErrUserNotFound.Error() + ": " + strconv.Quote(e.UserID)
}

// Is matches ErrUserNotFound.
func (e *UserNotFoundError) Is(target error) bool {
	return target == ErrUserNotFound
}
