// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/VernAnge/recommendations-app/internal/logging"
	"github.com/VernAnge/recommendations-app/internal/recommend"
)

// RespondEngineError maps an engine error to its HTTP status and error code:
//
//	unknown user          404 USER_NOT_FOUND
//	no other users        422 NO_NEIGHBORS
//	no snapshot loaded    503 NOT_READY
//	deadline exceeded     504 TIMEOUT
//	anything else         500 INTERNAL_ERROR
func RespondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var notFound *recommend.UserNotFoundError
	switch {
	case errors.As(err, &notFound):
		rw.Error(http.StatusNotFound, ErrCodeUserNotFound, notFound.Error())
	case errors.Is(err, recommend.ErrEmptyNeighborSet):
		rw.Error(http.StatusUnprocessableEntity, ErrCodeNoNeighbors, "the snapshot holds no other users to compare with")
	case errors.Is(err, recommend.ErrNoSnapshot):
		rw.ServiceUnavailable(ErrCodeNotReady, "no recommendation snapshot is loaded yet")
	case errors.Is(err, context.DeadlineExceeded):
		rw.Error(http.StatusGatewayTimeout, ErrCodeTimeout, "recommendation timed out")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Recommendation failed")
		rw.InternalError("failed to generate recommendations")
	}
}
