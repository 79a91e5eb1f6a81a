package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emberforge/realm-gov/src/gov"
)

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"err": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, gov.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, gov.ErrNotAMember), errors.Is(err, gov.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, gov.ErrTargetNotFound):
		return http.StatusNotFound
	case errors.Is(err, gov.ErrInvalidMetadata):
		return http.StatusBadRequest
	case errors.Is(err, gov.ErrDuplicateProposal),
		errors.Is(err, gov.ErrAlreadyVoted),
		errors.Is(err, gov.ErrProposalNotPending),
		errors.Is(err, gov.ErrAllianceLimitExceeded),
		errors.Is(err, gov.ErrAllianceExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
